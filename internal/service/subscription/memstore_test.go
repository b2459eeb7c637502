package subscription

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/domain/settings"
	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"
)

// memStore is a transactional in-memory subscription.Store. WithinTx holds a
// single lock for the whole transaction and restores a snapshot on failure.
type memStore struct {
	mu          sync.Mutex
	restaurants map[int64]subscription.Plan
	records     map[int64]*subscription.SubscriptionRecord
	events      []subscription.SubscriptionEvent

	failUpdate map[int64]error
	panicOn    map[int64]bool
	findErr    error
}

func newMemStore(restaurantIDs ...int64) *memStore {
	s := &memStore{
		restaurants: map[int64]subscription.Plan{},
		records:     map[int64]*subscription.SubscriptionRecord{},
		failUpdate:  map[int64]error{},
		panicOn:     map[int64]bool{},
	}
	for _, id := range restaurantIDs {
		s.restaurants[id] = subscription.PlanBasic
	}
	return s
}

// seed stores a record and plan flag directly, bypassing the engine.
func (s *memStore) seed(rec *subscription.SubscriptionRecord, plan subscription.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[rec.RestaurantID] = plan
	s.records[rec.RestaurantID] = rec.Clone()
}

func (s *memStore) record(restaurantID int64) *subscription.SubscriptionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[restaurantID]
	if !ok {
		return nil
	}
	return rec.Clone()
}

func (s *memStore) plan(restaurantID int64) subscription.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restaurants[restaurantID]
}

// eventTypes lists the events of a restaurant oldest first.
func (s *memStore) eventTypes(restaurantID int64) []subscription.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[restaurantID]
	if !ok {
		return nil
	}
	var out []subscription.EventType
	for _, ev := range s.events {
		if ev.SubscriptionID == rec.ID {
			out = append(out, ev.EventType)
		}
	}
	return out
}

func (s *memStore) lastEvent(restaurantID int64) subscription.SubscriptionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[restaurantID]
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].SubscriptionID == rec.ID {
			return s.events[i]
		}
	}
	return subscription.SubscriptionEvent{}
}

func (s *memStore) FindByRestaurant(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	rec, ok := s.records[restaurantID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *memStore) ListEvents(ctx context.Context, subscriptionID string, limit int) ([]subscription.SubscriptionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []subscription.SubscriptionEvent{}
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].SubscriptionID == subscriptionID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *memStore) ListRestaurantIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id := range s.records {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx subscription.Tx) error) error {
	s.mu.Lock()

	restaurants := make(map[int64]subscription.Plan, len(s.restaurants))
	for k, v := range s.restaurants {
		restaurants[k] = v
	}
	records := make(map[int64]*subscription.SubscriptionRecord, len(s.records))
	for k, v := range s.records {
		records[k] = v.Clone()
	}
	eventCount := len(s.events)

	committed := false
	defer func() {
		if !committed {
			s.restaurants = restaurants
			s.records = records
			s.events = s.events[:eventCount]
		}
		s.mu.Unlock()
	}()

	if err := fn(&memTx{s: s}); err != nil {
		return err
	}
	committed = true
	return nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) LockRestaurant(ctx context.Context, restaurantID int64) (subscription.Plan, error) {
	plan, ok := t.s.restaurants[restaurantID]
	if !ok {
		return "", xerrors.New(xerrors.CodeRestaurantNotFound, restaurantID, "restaurant not found")
	}
	return plan, nil
}

func (t *memTx) LockByRestaurant(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error) {
	rec, ok := t.s.records[restaurantID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return rec.Clone(), nil
}

func (t *memTx) Insert(ctx context.Context, rec *subscription.SubscriptionRecord) (bool, error) {
	if _, ok := t.s.records[rec.RestaurantID]; ok {
		return false, nil
	}
	t.s.records[rec.RestaurantID] = rec.Clone()
	return true, nil
}

func (t *memTx) Update(ctx context.Context, rec *subscription.SubscriptionRecord) error {
	if t.s.panicOn[rec.RestaurantID] {
		panic(fmt.Sprintf("corrupt row for restaurant %d", rec.RestaurantID))
	}
	if err := t.s.failUpdate[rec.RestaurantID]; err != nil {
		return err
	}
	if _, ok := t.s.records[rec.RestaurantID]; !ok {
		return xerrors.ErrNotFound
	}
	t.s.records[rec.RestaurantID] = rec.Clone()
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, ev *subscription.SubscriptionEvent) error {
	t.s.events = append(t.s.events, *ev)
	return nil
}

func (t *memTx) SetCurrentPlan(ctx context.Context, restaurantID int64, plan subscription.Plan) error {
	t.s.restaurants[restaurantID] = plan
	return nil
}

// --- collaborators ---

type fixedPolicy struct {
	pol settings.Policy
	err error
}

func (p *fixedPolicy) Policy(ctx context.Context) (settings.Policy, error) {
	return p.pol, p.err
}

type sentNotice struct {
	RestaurantID int64
	Kind         notification.Kind
	Title        string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, restaurantID int64, kind notification.Kind, title, body string, metadata map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{RestaurantID: restaurantID, Kind: kind, Title: title})
	return n.err
}

func (n *recordingNotifier) kinds() []notification.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Kind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const day = 24 * time.Hour
