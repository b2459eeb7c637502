// internal/websocket/handler/entitlement.go
package handlers

import (
	"context"
	"fmt"

	"menupro-service/internal/domain/restaurant"
	wstypes "menupro-service/internal/domain/websocket"
	"menupro-service/internal/service/entitlement"
	ws "menupro-service/internal/websocket"
)

type Gate interface {
	Check(ctx context.Context, restaurantID int64) entitlement.Decision
}

// EntitlementHandler answers entitlement:check for restaurants the caller owns.
type EntitlementHandler struct {
	gate        Gate
	restaurants restaurant.Repository
}

func NewEntitlementHandler(gate Gate, restaurants restaurant.Repository) *EntitlementHandler {
	return &EntitlementHandler{gate: gate, restaurants: restaurants}
}

func (h *EntitlementHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeEntitlementCheck}
}

func (h *EntitlementHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req struct {
		RestaurantID int64 `json:"restaurant_id"`
	}
	if err := mapToStruct(msg.Data, &req); err != nil {
		return err
	}
	if req.RestaurantID <= 0 {
		return fmt.Errorf("restaurant_id is required")
	}

	if !client.IsAdmin() {
		rest, err := h.restaurants.FindByID(ctx, req.RestaurantID)
		if err != nil {
			return err
		}
		if !rest.IsOwnedBy(client.GetIdentityID()) {
			return fmt.Errorf("restaurant %d is not owned by caller", req.RestaurantID)
		}
	}

	client.Subscribe(wstypes.ChannelEntitlement)
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeEntitlementCheck, h.gate.Check(ctx, req.RestaurantID)))
	return nil
}
