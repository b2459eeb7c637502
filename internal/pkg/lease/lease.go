// internal/pkg/lease/lease.go
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when releasing a lease owned by someone else or already expired.
var ErrNotHeld = errors.New("lease not held")

const markerTTL = 48 * time.Hour

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store hands out named, expiring locks and once-per-day completion markers.
type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Lease is a held lock.
type Lease struct {
	store *Store
	key   string
	token string
}

// Acquire takes the named lease for ttl. It returns (nil, nil) when another holder has it.
func (s *Store) Acquire(ctx context.Context, name, token string, ttl time.Duration) (*Lease, error) {
	key := s.key("lease", name)
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{store: s, key: key, token: token}, nil
}

// Release drops the lease if we still hold it.
func (l *Lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.store.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// MarkDone records that the named job completed for day (YYYY-MM-DD).
func (s *Store) MarkDone(ctx context.Context, name, day string) error {
	if err := s.client.Set(ctx, s.key("done", name, day), time.Now().UTC().Format(time.RFC3339), markerTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark %s done: %w", name, err)
	}
	return nil
}

// IsDone reports whether the named job already completed for day.
func (s *Store) IsDone(ctx context.Context, name, day string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key("done", name, day)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s marker: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
