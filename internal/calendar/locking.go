package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const defaultLockTTL = 30 * time.Second

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SlotLocker hands out short-lived Redis locks, one per business day, so
// overlapping intervals with different starts still contend for the same key.
type SlotLocker struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewSlotLocker creates a locker. A non-positive ttl defaults to 30s.
func NewSlotLocker(client *redis.Client, ttl time.Duration, logger *logging.Logger) *SlotLocker {
	if client == nil {
		panic("calendar: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotLocker{redis: client, ttl: ttl, logger: logger}
}

// Acquire takes the lock for the day containing start, in start's location. The returned release
// func is safe to call once the write has finished.
func (l *SlotLocker) Acquire(ctx context.Context, start time.Time) (func(), error) {
	key := slotLockKey(start)
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("calendar: acquire slot lock: %w", err)
	}
	if !ok {
		return nil, ErrSlotLocked
	}
	return func() {
		// The caller's context may already be done once the write returns.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release slot lock", "key", key, "error", err)
		}
	}, nil
}

func slotLockKey(start time.Time) string {
	return "slot_lock:" + start.Format(time.DateOnly)
}

// LockingCalendar serializes writes per day across replicas and re-checks
// availability while holding the lock, so two concurrent turns cannot book
// the same interval.
type LockingCalendar struct {
	Calendar
	locker *SlotLocker
}

// NewLockingCalendar wraps inner with slot locks.
func NewLockingCalendar(inner Calendar, locker *SlotLocker) *LockingCalendar {
	return &LockingCalendar{Calendar: inner, locker: locker}
}

func (c *LockingCalendar) CreateEvent(ctx context.Context, ev NewEvent) (Event, error) {
	release, err := c.lockAndCheck(ctx, ev.Start, ev.End)
	if err != nil {
		return Event{}, err
	}
	defer release()
	return c.Calendar.CreateEvent(ctx, ev)
}

func (c *LockingCalendar) UpdateEvent(ctx context.Context, id string, start, end time.Time) (Event, error) {
	release, err := c.lockAndCheck(ctx, start, end)
	if err != nil {
		return Event{}, err
	}
	defer release()
	return c.Calendar.UpdateEvent(ctx, id, start, end)
}

func (c *LockingCalendar) lockAndCheck(ctx context.Context, start, end time.Time) (func(), error) {
	release, err := c.locker.Acquire(ctx, start)
	if err != nil {
		return nil, err
	}
	ok, err := c.Calendar.IsAvailable(ctx, start, end)
	if err != nil {
		release()
		return nil, err
	}
	if !ok {
		release()
		return nil, ErrSlotUnavailable
	}
	return release, nil
}
