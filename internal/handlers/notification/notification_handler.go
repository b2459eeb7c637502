// internal/handlers/notification/notification_handler.go
package notification

import (
	"context"
	"net/http"
	"strconv"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/middleware"
	"menupro-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Service interface {
	GetUserNotifications(ctx context.Context, identityID int64, filters *notification.NotificationListFilters) (*notification.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, id int64, identityID int64) (int, error)
	MarkAllAsRead(ctx context.Context, identityID int64) (int64, error)
	GetUnreadCount(ctx context.Context, identityID int64) (int, error)
}

type NotificationHandler struct {
	notificationService Service
}

func NewNotificationHandler(notificationService Service) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotifications retrieves paginated notifications for the current user
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	var filters notification.NotificationListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.notificationService.GetUserNotifications(c.Request.Context(), identityID, &filters)
	if err != nil {
		response.FromError(c, "failed to get notifications", err)
		return
	}

	response.Success(c, http.StatusOK, "notifications retrieved", result)
}

// MarkAsRead marks a notification as read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	notifID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid notification ID", err)
		return
	}

	count, err := h.notificationService.MarkAsRead(c.Request.Context(), notifID, identityID)
	if err != nil {
		response.FromError(c, "failed to mark as read", err)
		return
	}

	response.Success(c, http.StatusOK, "notification marked as read", gin.H{
		"unread_count": count,
	})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	updated, err := h.notificationService.MarkAllAsRead(c.Request.Context(), identityID)
	if err != nil {
		response.FromError(c, "failed to mark all as read", err)
		return
	}

	response.Success(c, http.StatusOK, "all notifications marked as read", gin.H{
		"updated":      updated,
		"unread_count": 0,
	})
}

// GetUnreadCount gets the count of unread notifications
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	count, err := h.notificationService.GetUnreadCount(c.Request.Context(), identityID)
	if err != nil {
		response.FromError(c, "failed to get unread count", err)
		return
	}

	response.Success(c, http.StatusOK, "unread count retrieved", gin.H{
		"unread_count": count,
	})
}
