// internal/service/subscription/mutation.go
package subscription

import (
	"context"
	"errors"
	"time"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/domain/subscription"
	"menupro-service/internal/metrics"
	xerrors "menupro-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// mutation is one locked, transactional change to a single restaurant.
type mutation struct {
	ctx  context.Context
	tx   subscription.Tx
	e    *Engine
	now  time.Time
	rec  *subscription.SubscriptionRecord
	plan subscription.Plan // restaurants.current_plan as stored

	events  []subscription.EventType
	notices []notice
	healed  bool
}

type notice struct {
	kind     notification.Kind
	title    string
	body     string
	metadata map[string]interface{}
}

// mutate runs fn against the locked record, creating it first if needed.
// Notifications queued by fn are sent only after the transaction commits.
func (e *Engine) mutate(ctx context.Context, restaurantID int64, op string, fn func(m *mutation) error) (*subscription.SubscriptionRecord, error) {
	m, err := e.mutateRaw(ctx, restaurantID, fn)
	if err != nil {
		return nil, e.classify(restaurantID, op, err)
	}
	e.afterCommit(ctx, m)
	return m.rec, nil
}

func (e *Engine) mutateRaw(ctx context.Context, restaurantID int64, fn func(m *mutation) error) (*mutation, error) {
	var m *mutation
	err := e.store.WithinTx(ctx, func(tx subscription.Tx) error {
		m = &mutation{ctx: ctx, tx: tx, e: e, now: e.now()}
		if err := m.load(restaurantID); err != nil {
			return err
		}
		return fn(m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// load locks the restaurant, then gets or creates its record.
func (m *mutation) load(restaurantID int64) error {
	plan, err := m.tx.LockRestaurant(m.ctx, restaurantID)
	if err != nil {
		return err
	}
	m.plan = plan

	rec, err := m.tx.LockByRestaurant(m.ctx, restaurantID)
	if err == nil {
		m.rec = rec
		return nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return err
	}

	rec = subscription.NewRecord(m.e.newID(), restaurantID, m.now)
	inserted, err := m.tx.Insert(m.ctx, rec)
	if err != nil {
		return err
	}
	if !inserted {
		// someone else created it between our read and insert
		m.rec, err = m.tx.LockByRestaurant(m.ctx, restaurantID)
		return err
	}

	m.rec = rec
	if err := m.appendEvent(subscription.EventCreated, nil); err != nil {
		return err
	}
	return m.syncPlan()
}

// transition persists the record, writes its event and realigns the plan flag.
func (m *mutation) transition(eventType subscription.EventType, metadata map[string]interface{}) error {
	m.rec.Touch(m.now)
	if err := m.tx.Update(m.ctx, m.rec); err != nil {
		return err
	}
	if err := m.appendEvent(eventType, metadata); err != nil {
		return err
	}
	return m.syncPlan()
}

func (m *mutation) appendEvent(eventType subscription.EventType, metadata map[string]interface{}) error {
	ev := subscription.NewEvent(m.e.newID(), m.rec, eventType, metadata, m.now)
	if err := m.tx.AppendEvent(m.ctx, ev); err != nil {
		return err
	}
	m.events = append(m.events, eventType)
	return nil
}

// syncPlan writes current_plan when it disagrees with the record.
func (m *mutation) syncPlan() error {
	want := m.rec.EffectivePlan(m.now)
	if want == m.plan {
		return nil
	}
	if err := m.tx.SetCurrentPlan(m.ctx, m.rec.RestaurantID, want); err != nil {
		return err
	}
	m.plan = want
	return nil
}

func (m *mutation) notify(kind notification.Kind, title, body string, metadata map[string]interface{}) {
	m.notices = append(m.notices, notice{kind: kind, title: title, body: body, metadata: metadata})
}

func (e *Engine) afterCommit(ctx context.Context, m *mutation) {
	for _, ev := range m.events {
		metrics.RecordTransition(string(ev))
	}
	if m.healed {
		metrics.RecordPlanRepair()
	}
	if len(m.notices) == 0 || e.notifier == nil {
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()

	for _, n := range m.notices {
		if err := e.notifier.Notify(nctx, m.rec.RestaurantID, n.kind, n.title, n.body, n.metadata); err != nil {
			metrics.RecordNotificationFailure(string(n.kind))
			e.logger.Warn("failed to send subscription notification",
				zap.Int64("restaurant_id", m.rec.RestaurantID),
				zap.String("kind", string(n.kind)),
				zap.Error(err),
			)
		}
	}
}
