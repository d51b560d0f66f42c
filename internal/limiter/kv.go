package limiter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/storage"
)

// AttemptsKey is the store key holding failure counters.
const AttemptsKey = "focusVaultLoginAttempts"

type attempt struct {
	Fails        int       `json:"fails"`
	BlockedUntil time.Time `json:"blockedUntil"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// KV is a store-backed limiter with a sliding failure window and lockout.
// Counters survive process restarts, which matters for a CLI that runs once per command.
type KV struct {
	store    storage.Store
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

var _ Limiter = (*KV)(nil)

// NewKV constructs a store-backed limiter.
func NewKV(store storage.Store, window time.Duration, maxFails int, blockFor time.Duration) *KV {
	return &KV{store: store, window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (l *KV) WithClock(now func() time.Time) *KV {
	l.now = now
	return l
}

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (l *KV) load(ctx context.Context) (map[string]attempt, error) {
	raw, err := l.store.Get(ctx, AttemptsKey)
	if errors.Is(err, errs.ErrNotFound) {
		return map[string]attempt{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := map[string]attempt{}
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		// corrupt counters are not worth locking anyone out over
		return map[string]attempt{}, nil
	}
	return m, nil
}

func (l *KV) save(ctx context.Context, m map[string]attempt) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, AttemptsKey, raw)
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *KV) Allow(ctx context.Context, email string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.load(ctx)
	if err != nil {
		return false, 0, err
	}
	a, ok := m[normalize(email)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); a.BlockedUntil.After(now) {
		return false, a.BlockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for email.
func (l *KV) Success(ctx context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.load(ctx)
	if err != nil {
		return err
	}
	key := normalize(email)
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return l.save(ctx, m)
}

// Failure records a failed attempt; may set a block until a future time.
func (l *KV) Failure(ctx context.Context, email string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.load(ctx)
	if err != nil {
		return false, 0, err
	}
	now := l.now()
	key := normalize(email)
	a := m[key]
	if now.Sub(a.UpdatedAt) > l.window {
		a.Fails = 0
	}
	a.Fails++
	a.UpdatedAt = now

	blocked := false
	if l.maxFails > 0 && a.Fails >= l.maxFails {
		a.BlockedUntil = now.Add(l.blockFor)
		a.Fails = 0
		blocked = true
	}
	m[key] = a
	if err := l.save(ctx, m); err != nil {
		return false, 0, err
	}
	if blocked {
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
