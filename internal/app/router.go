// internal/app/router.go
package app

import (
	"net/http"

	entitlementHandler "menupro-service/internal/handlers/entitlement"
	notifyHandler "menupro-service/internal/handlers/notification"
	paymentHandler "menupro-service/internal/handlers/payment"
	settingsHandler "menupro-service/internal/handlers/settings"
	subscriptionHandler "menupro-service/internal/handlers/subscription"
	wsHandler "menupro-service/internal/handlers/websocket"
	"menupro-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	PaymentHandler      *paymentHandler.PaymentHandler
	SettingsHandler     *settingsHandler.SettingsHandler
	EntitlementHandler  *entitlementHandler.EntitlementHandler
	NotifHandler        *notifyHandler.NotificationHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	// OwnerMiddleware resolves :id and checks the caller owns it
	OwnerMiddleware     gin.HandlerFunc
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Metrics ====================
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Notifications ====================
	notifications := api.Group("/notifications")
	notifications.Use(h.AuthMiddleware.Auth())
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.GET("/count/unread", h.NotifHandler.GetUnreadCount)
		notifications.PUT("/read-all", h.NotifHandler.MarkAllAsRead)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
	}

	// ==================== Restaurant Owner Routes ====================
	restaurants := api.Group("/restaurants/:id")
	restaurants.Use(h.AuthMiddleware.Auth(), h.OwnerMiddleware)
	{
		restaurants.GET("/subscription", h.SubscriptionHandler.GetSubscription)
		restaurants.POST("/subscription/trial", h.SubscriptionHandler.StartTrial)
		restaurants.GET("/entitlement", h.EntitlementHandler.Check)
		restaurants.POST("/payments", h.PaymentHandler.Submit)
	}

	// ==================== Admin Routes ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		adminSubs := admin.Group("/restaurants/:id/subscription")
		{
			adminSubs.GET("", h.SubscriptionHandler.AdminGetSubscription)
			adminSubs.POST("/grant", h.SubscriptionHandler.GrantPaidDays)
			adminSubs.POST("/force-expire", h.SubscriptionHandler.ForceExpire)
			adminSubs.POST("/suspend", h.SubscriptionHandler.Suspend)
			adminSubs.POST("/unsuspend", h.SubscriptionHandler.Unsuspend)
		}

		admin.POST("/subscriptions/reconcile", h.SubscriptionHandler.RunDailyChecks)

		settings := admin.Group("/settings")
		{
			settings.GET("", h.SettingsHandler.List)
			settings.GET("/:key", h.SettingsHandler.Get)
			settings.PUT("/:key", h.SettingsHandler.Update)
		}

		payments := admin.Group("/payments")
		{
			payments.GET("", h.PaymentHandler.List)
			payments.POST("/:id/approve", h.PaymentHandler.Approve)
			payments.POST("/:id/reject", h.PaymentHandler.Reject)
		}

		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
