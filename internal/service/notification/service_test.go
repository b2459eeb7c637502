package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/domain/restaurant"
	"menupro-service/internal/domain/websocket"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	rows      []notification.Notification
	createErr error
}

func (r *memRepo) Create(ctx context.Context, n *notification.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	n.ID = int64(len(r.rows) + 1)
	n.CreatedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r.rows = append(r.rows, *n)
	return nil
}

func (r *memRepo) GetUserNotifications(ctx context.Context, identityID int64, filters *notification.NotificationListFilters) ([]notification.Notification, int64, error) {
	out := []notification.Notification{}
	for _, n := range r.rows {
		if n.IdentityID == identityID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memRepo) MarkAsRead(ctx context.Context, id int64, identityID int64) error {
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].IdentityID == identityID && !r.rows[i].IsRead {
			r.rows[i].IsRead = true
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (r *memRepo) MarkAllAsRead(ctx context.Context, identityID int64) (int64, error) {
	var n int64
	for i := range r.rows {
		if r.rows[i].IdentityID == identityID && !r.rows[i].IsRead {
			r.rows[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *memRepo) GetUnreadCount(ctx context.Context, identityID int64) (int, error) {
	count := 0
	for _, n := range r.rows {
		if n.IdentityID == identityID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

type stubRestaurants map[int64]int64

func (s stubRestaurants) FindByID(ctx context.Context, id int64) (*restaurant.Restaurant, error) {
	owner, ok := s[id]
	if !ok {
		return nil, xerrors.New(xerrors.CodeRestaurantNotFound, id, "restaurant not found")
	}
	return &restaurant.Restaurant{ID: id, OwnerIdentityID: owner}, nil
}

type recordingPusher struct {
	notifications []*websocket.NotificationData
	counts        []int
	changes       []*websocket.EntitlementChangeData
}

func (p *recordingPusher) BroadcastNotification(identityID int64, n *websocket.NotificationData) {
	p.notifications = append(p.notifications, n)
}

func (p *recordingPusher) BroadcastNotificationCount(identityID int64, count int) {
	p.counts = append(p.counts, count)
}

func (p *recordingPusher) BroadcastEntitlementChange(identityID int64, change *websocket.EntitlementChangeData) {
	p.changes = append(p.changes, change)
}

func newService(repo *memRepo, pusher *recordingPusher) *NotificationService {
	return NewNotificationService(repo, stubRestaurants{10: 500}, pusher, zap.NewNop())
}

func TestNotify_PersistsForOwnerAndPushes(t *testing.T) {
	repo := &memRepo{}
	pusher := &recordingPusher{}
	svc := newService(repo, pusher)

	err := svc.Notify(context.Background(), 10, notification.KindTrialExpired, "Trial ended", "Your trial has ended", map[string]interface{}{"days": 14})
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, int64(500), row.IdentityID)
	assert.Equal(t, int64(10), *row.RestaurantID)
	assert.Equal(t, notification.TypeAlert, row.Type)

	require.Len(t, pusher.notifications, 1)
	assert.Equal(t, "TRIAL_EXPIRED", pusher.notifications[0].Kind)
	require.Len(t, pusher.changes, 1)
	assert.Equal(t, int64(10), pusher.changes[0].RestaurantID)
}

func TestNotify_RemindersDoNotSignalEntitlementChange(t *testing.T) {
	pusher := &recordingPusher{}
	svc := newService(&memRepo{}, pusher)

	require.NoError(t, svc.Notify(context.Background(), 10, notification.KindPeriodEndingSoon, "Renew soon", "3 days left", nil))
	assert.Len(t, pusher.notifications, 1)
	assert.Empty(t, pusher.changes)
}

func TestNotify_Failures(t *testing.T) {
	pusher := &recordingPusher{}

	svc := newService(&memRepo{}, pusher)
	err := svc.Notify(context.Background(), 99, notification.KindTrialStarted, "t", "b", nil)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	svc = newService(&memRepo{createErr: errors.New("db down")}, pusher)
	err = svc.Notify(context.Background(), 10, notification.KindTrialStarted, "t", "b", nil)
	assert.Error(t, err)
	assert.Empty(t, pusher.notifications)
}

func TestGetUserNotifications_Paging(t *testing.T) {
	repo := &memRepo{}
	svc := newService(repo, &recordingPusher{})
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(context.Background(), 10, notification.KindSubscriptionExtended, "t", "b", nil))
	}

	resp, err := svc.GetUserNotifications(context.Background(), 500, &notification.NotificationListFilters{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 3, resp.Unread)
}

func TestMarkAsRead(t *testing.T) {
	repo := &memRepo{}
	pusher := &recordingPusher{}
	svc := newService(repo, pusher)
	require.NoError(t, svc.Notify(context.Background(), 10, notification.KindTrialStarted, "t", "b", nil))
	require.NoError(t, svc.Notify(context.Background(), 10, notification.KindTrialStarted, "t", "b", nil))

	count, err := svc.MarkAsRead(context.Background(), 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []int{1}, pusher.counts)

	_, err = svc.MarkAsRead(context.Background(), 1, 500)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = svc.MarkAsRead(context.Background(), 2, 777)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	updated, err := svc.MarkAllAsRead(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
	assert.Equal(t, []int{1, 0}, pusher.counts)
}
