// internal/service/subscription/engine.go
package subscription

import (
	"context"
	"errors"
	"time"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/domain/settings"
	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// PolicySource supplies the subscription thresholds.
type PolicySource interface {
	Policy(ctx context.Context) (settings.Policy, error)
}

// Notifier tells a restaurant owner about an entitlement change. Delivery is
// the implementation's concern; the engine never fails because of it.
type Notifier interface {
	Notify(ctx context.Context, restaurantID int64, kind notification.Kind, title, body string, metadata map[string]interface{}) error
}

// Engine owns the PRO entitlement state machine.
type Engine struct {
	store    subscription.Store
	policy   PolicySource
	notifier Notifier
	logger   *zap.Logger

	now           func() time.Time
	newID         func() string
	workers       int
	pageSize      int
	notifyTimeout time.Duration
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the ULID generator for records and events.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithWorkers bounds how many restaurants reconciliation handles at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.notifyTimeout = d
		}
	}
}

func NewEngine(store subscription.Store, policy PolicySource, notifier Notifier, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		policy:        policy,
		notifier:      notifier,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return ulid.Make().String() },
		workers:       1,
		pageSize:      200,
		notifyTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// loadPolicy wraps settings failures as SYSTEM_ERROR.
func (e *Engine) loadPolicy(ctx context.Context, restaurantID int64) (settings.Policy, error) {
	pol, err := e.policy.Policy(ctx)
	if err != nil {
		e.logger.Error("failed to load subscription settings",
			zap.Int64("restaurant_id", restaurantID),
			zap.Error(err),
		)
		return settings.Policy{}, xerrors.System(restaurantID, "failed to load subscription settings", err)
	}
	return pol, nil
}

// classify keeps coded errors and turns everything else into a logged SYSTEM_ERROR.
func (e *Engine) classify(restaurantID int64, op string, err error) error {
	var coded *xerrors.Error
	if errors.As(err, &coded) {
		return coded
	}
	if errors.Is(err, xerrors.ErrNotFound) {
		return xerrors.New(xerrors.CodeSubscriptionNotFound, restaurantID, "subscription not found")
	}

	e.logger.Error("subscription operation failed",
		zap.String("operation", op),
		zap.Int64("restaurant_id", restaurantID),
		zap.Error(err),
	)
	return xerrors.System(restaurantID, "failed to "+op, err)
}
