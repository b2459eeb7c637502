// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"menupro-service/internal/config"
	"menupro-service/internal/db"
	entitlementHandler "menupro-service/internal/handlers/entitlement"
	notifyH "menupro-service/internal/handlers/notification"
	paymentHandler "menupro-service/internal/handlers/payment"
	settingsHandler "menupro-service/internal/handlers/settings"
	subscriptionHandler "menupro-service/internal/handlers/subscription"
	wsHandler "menupro-service/internal/handlers/websocket"
	"menupro-service/internal/middleware"
	"menupro-service/internal/pkg/jwt"
	"menupro-service/internal/pkg/lease"
	"menupro-service/internal/pkg/ratelimit"
	"menupro-service/internal/repository/postgres"
	"menupro-service/internal/scheduler"
	"menupro-service/internal/service/entitlement"
	notifyUsecase "menupro-service/internal/service/notification"
	paymentUsecase "menupro-service/internal/service/payment"
	settingsUsecase "menupro-service/internal/service/settings"
	subscriptionUsecase "menupro-service/internal/service/subscription"
	"menupro-service/internal/websocket"
	wsHandlers "menupro-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	http      *http.Server
	pool      *pgxpool.Pool
	redis     *redis.Client
	scheduler *scheduler.DailyScheduler
	hubCancel context.CancelFunc
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Start wires every component and serves HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	logger := s.logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, db.PostgresConfig{
		URL:      s.cfg.DatabaseURL,
		MaxConns: s.cfg.DBMaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	logger.Info("connected to postgres")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addresses: []string{s.cfg.RedisAddr},
		Password:  s.cfg.RedisPass,
		DB:        0,
		PoolSize:  10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redis = redisClient
	logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(dbWrapper)
	restaurantRepo := postgres.NewRestaurantRepository(dbWrapper)
	settingsRepo := postgres.NewSettingsRepository(dbWrapper)
	notifyRepo := postgres.NewNotificationRepository(dbWrapper)
	paymentRepo := postgres.NewPaymentRepository(dbWrapper)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(jwtManager.Verifier, logger)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	s.hubCancel = hubCancel
	go hub.Run(hubCtx)

	// ----- Services (Usecases) -----
	settingsProvider := settingsUsecase.NewProvider(settingsRepo, s.cfg.SubscriptionDefaults, logger)
	notifService := notifyUsecase.NewNotificationService(notifyRepo, restaurantRepo, hub, logger)
	engine := subscriptionUsecase.NewEngine(
		subscriptionRepo,
		settingsProvider,
		notifService,
		logger,
		subscriptionUsecase.WithWorkers(s.cfg.DailyCheckWorkers),
	)
	gate := entitlement.NewGate(engine)
	paymentService := paymentUsecase.NewPaymentService(
		paymentRepo,
		engine,
		ratelimit.NewLimiter(redisClient, "payment_submit", s.cfg.PaymentSubmitLimit, time.Hour),
		logger,
	)

	// ----- Scheduler -----
	daily, err := scheduler.NewDailyScheduler(engine, lease.NewStore(redisClient, "menupro"), scheduler.Config{
		Spec:     s.cfg.DailyCheckCron,
		Timezone: s.cfg.DailyCheckTimezone,
		LeaseTTL: s.cfg.DailyCheckLease,
	}, logger)
	if err != nil {
		return err
	}
	if err := daily.Start(); err != nil {
		return err
	}
	s.scheduler = daily

	// Register WebSocket handlers
	hub.RegisterHandler(wsHandlers.NewNotificationHandler(notifService))
	hub.RegisterHandler(wsHandlers.NewEntitlementHandler(gate, restaurantRepo))

	// ----- Handlers -----
	handlers := &Handlers{
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(engine, daily),
		PaymentHandler:      paymentHandler.NewPaymentHandler(paymentService),
		SettingsHandler:     settingsHandler.NewSettingsHandler(settingsProvider),
		EntitlementHandler:  entitlementHandler.NewEntitlementHandler(gate),
		NotifHandler:        notifyH.NewNotificationHandler(notifService),
		WSHandler:           wsHandler.NewWebSocketHandler(hub, s.cfg.AllowedOrigins, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(jwtManager.Verifier),
		OwnerMiddleware:     middleware.RequireRestaurantOwner(restaurantRepo),
	}

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.RequestLogger(logger),
		middleware.CORS(s.cfg.AllowedOrigins),
	)
	SetupRouter(s.engine, handlers)

	// ----- Start HTTP -----
	s.http = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, lets the daily job finish and closes the pools.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
		}
	}
	if s.hubCancel != nil {
		s.hubCancel()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}

	return errors.Join(errs...)
}
