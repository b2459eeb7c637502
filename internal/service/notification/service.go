// internal/service/notification/service.go
package notification

import (
	"context"
	"fmt"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/domain/restaurant"
	"menupro-service/internal/domain/websocket"

	"go.uber.org/zap"
)

// Repository is the persistence the service needs; postgres.NotificationRepository satisfies it.
type Repository interface {
	Create(ctx context.Context, n *notification.Notification) error
	GetUserNotifications(ctx context.Context, identityID int64, filters *notification.NotificationListFilters) ([]notification.Notification, int64, error)
	MarkAsRead(ctx context.Context, id int64, identityID int64) error
	MarkAllAsRead(ctx context.Context, identityID int64) (int64, error)
	GetUnreadCount(ctx context.Context, identityID int64) (int, error)
}

// Pusher delivers live messages to connected clients.
type Pusher interface {
	BroadcastNotification(identityID int64, n *websocket.NotificationData)
	BroadcastNotificationCount(identityID int64, count int)
	BroadcastEntitlementChange(identityID int64, change *websocket.EntitlementChangeData)
}

// NotificationService handles notification business logic
type NotificationService struct {
	repo        Repository
	restaurants restaurant.Repository
	hub         Pusher
	logger      *zap.Logger
}

func NewNotificationService(repo Repository, restaurants restaurant.Repository, hub Pusher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:        repo,
		restaurants: restaurants,
		hub:         hub,
		logger:      logger,
	}
}

// Notify persists a notification for the restaurant owner and pushes it live.
func (s *NotificationService) Notify(ctx context.Context, restaurantID int64, kind notification.Kind, title, body string, metadata map[string]interface{}) error {
	rest, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		return fmt.Errorf("failed to resolve restaurant owner: %w", err)
	}

	n := &notification.Notification{
		IdentityID:   rest.OwnerIdentityID,
		RestaurantID: &restaurantID,
		Kind:         kind,
		Title:        title,
		Message:      body,
		Type:         notification.TypeFor(kind),
		Metadata:     metadata,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.push(n)
	return nil
}

// GetUserNotifications retrieves notifications for a user with filters
func (s *NotificationService) GetUserNotifications(ctx context.Context, identityID int64, filters *notification.NotificationListFilters) (*notification.NotificationListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	notifications, total, err := s.repo.GetUserNotifications(ctx, identityID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	unread, err := s.repo.GetUnreadCount(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unread count: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &notification.NotificationListResponse{
		Notifications: notifications,
		Unread:        unread,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
		TotalPages:    totalPages,
	}, nil
}

// MarkAsRead marks a notification as read and returns the remaining unread count
func (s *NotificationService) MarkAsRead(ctx context.Context, id int64, identityID int64) (int, error) {
	if err := s.repo.MarkAsRead(ctx, id, identityID); err != nil {
		return 0, fmt.Errorf("failed to mark as read: %w", err)
	}

	count, err := s.repo.GetUnreadCount(ctx, identityID)
	if err != nil {
		s.logger.Warn("failed to get unread count", zap.Int64("identity_id", identityID), zap.Error(err))
		return 0, nil
	}
	s.hub.BroadcastNotificationCount(identityID, count)
	return count, nil
}

// MarkAllAsRead marks all notifications as read for a user
func (s *NotificationService) MarkAllAsRead(ctx context.Context, identityID int64) (int64, error) {
	updated, err := s.repo.MarkAllAsRead(ctx, identityID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all as read: %w", err)
	}

	s.hub.BroadcastNotificationCount(identityID, 0)
	return updated, nil
}

// GetUnreadCount gets the count of unread notifications
func (s *NotificationService) GetUnreadCount(ctx context.Context, identityID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, identityID)
}

func (s *NotificationService) push(n *notification.Notification) {
	if s.hub == nil {
		return
	}

	s.hub.BroadcastNotification(n.IdentityID, &websocket.NotificationData{
		ID:           n.ID,
		RestaurantID: n.RestaurantID,
		Kind:         string(n.Kind),
		Title:        n.Title,
		Message:      n.Message,
		Type:         string(n.Type),
		Metadata:     n.Metadata,
		CreatedAt:    n.CreatedAt,
	})

	if changesEntitlement(n.Kind) {
		s.hub.BroadcastEntitlementChange(n.IdentityID, &websocket.EntitlementChangeData{
			RestaurantID: *n.RestaurantID,
			Kind:         string(n.Kind),
		})
	}
}

// changesEntitlement is false for reminders, which leave access untouched.
func changesEntitlement(kind notification.Kind) bool {
	switch kind {
	case notification.KindTrialEndingSoon, notification.KindPeriodEndingSoon:
		return false
	}
	return true
}
