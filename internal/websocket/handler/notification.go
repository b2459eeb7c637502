// internal/websocket/handler/notification.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	wstypes "menupro-service/internal/domain/websocket"
	ws "menupro-service/internal/websocket"
)

// NotificationReader is the part of the notification service sockets use.
type NotificationReader interface {
	MarkAsRead(ctx context.Context, id int64, identityID int64) (int, error)
	MarkAllAsRead(ctx context.Context, identityID int64) (int64, error)
	GetUnreadCount(ctx context.Context, identityID int64) (int, error)
}

type NotificationHandler struct {
	notificationService NotificationReader
}

func NewNotificationHandler(notificationService NotificationReader) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// SupportedEvents returns events this handler supports
func (h *NotificationHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeNotificationRead,
		wstypes.EventTypeNotificationReadAll,
		wstypes.EventTypeNotificationCount,
	}
}

// HandleMessage processes notification-related messages
func (h *NotificationHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeNotificationRead:
		return h.handleMarkAsRead(ctx, client, msg)

	case wstypes.EventTypeNotificationReadAll:
		return h.handleMarkAllAsRead(ctx, client)

	case wstypes.EventTypeNotificationCount:
		return h.handleGetCount(ctx, client)

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *NotificationHandler) handleMarkAsRead(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req struct {
		NotificationID int64 `json:"notification_id"`
	}

	if err := mapToStruct(msg.Data, &req); err != nil {
		return err
	}

	count, err := h.notificationService.MarkAsRead(ctx, req.NotificationID, client.GetIdentityID())
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationRead, map[string]interface{}{
		"notification_id": req.NotificationID,
		"success":         true,
		"unread_count":    count,
	}))

	return nil
}

func (h *NotificationHandler) handleMarkAllAsRead(ctx context.Context, client *ws.Client) error {
	updated, err := h.notificationService.MarkAllAsRead(ctx, client.GetIdentityID())
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationReadAll, map[string]interface{}{
		"success":      true,
		"updated":      updated,
		"unread_count": 0,
	}))

	return nil
}

func (h *NotificationHandler) handleGetCount(ctx context.Context, client *ws.Client) error {
	count, err := h.notificationService.GetUnreadCount(ctx, client.GetIdentityID())
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeNotificationCount, map[string]interface{}{
		"unread_count": count,
	}))

	return nil
}

// Helper function to convert interface{} to struct
func mapToStruct(data interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}
