package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
)

// State is the checkout progress of one cart session.
type State string

const (
	StateIdle        State = "idle"
	StateSubmitting  State = "submitting"
	StateRedirecting State = "redirecting"
	StateFailed      State = "failed"
)

// Tracker guards the Idle -> Submitting -> Redirecting|Failed transitions per session.
type Tracker interface {
	// Begin moves the session to Submitting and returns a token naming the
	// attempt, or returns ErrCheckoutInProgress.
	Begin(ctx context.Context, session string) (string, error)
	// Finish records the terminal state of attempt. It is a no-op once a newer
	// attempt has taken over the session.
	Finish(ctx context.Context, session, attempt string, state State) error
	State(ctx context.Context, session string) (State, error)
}

type memoryEntry struct {
	state   State
	attempt string
}

// MemoryTracker keeps states in process.
type MemoryTracker struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{entries: make(map[string]memoryEntry)}
}

func (t *MemoryTracker) Begin(_ context.Context, session string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[session].state == StateSubmitting {
		return "", ErrCheckoutInProgress
	}
	attempt := uuid.NewString()
	t.entries[session] = memoryEntry{state: StateSubmitting, attempt: attempt}
	return attempt, nil
}

func (t *MemoryTracker) Finish(_ context.Context, session, attempt string, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.entries[session]
	if current.state != StateSubmitting || current.attempt != attempt {
		return nil
	}
	t.entries[session] = memoryEntry{state: state}
	return nil
}

func (t *MemoryTracker) State(_ context.Context, session string) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[session]; ok {
		return entry.state, nil
	}
	return StateIdle, nil
}

// submittingPrefix starts every stored Submitting marker; the attempt token follows it.
const submittingPrefix = string(StateSubmitting) + ":"

type markerStore interface {
	SetUnlessPrefixed(ctx context.Context, key, prefix, value string, ttl time.Duration) (bool, error)
	CompareAndSet(ctx context.Context, key, expected, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	CheckoutKey(session string) string
}

// RedisTracker shares states across instances. The Submitting marker expires
// after ttl so a crashed attempt does not block the session forever. Both
// transitions run as single scripts, so two instances never hold Submitting
// for the same session at once.
type RedisTracker struct {
	store markerStore
	ttl   time.Duration
}

func NewRedisTracker(store markerStore, ttl time.Duration) (*RedisTracker, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis store required")
	}
	if ttl <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout submit ttl must be positive")
	}
	return &RedisTracker{store: store, ttl: ttl}, nil
}

func (t *RedisTracker) Begin(ctx context.Context, session string) (string, error) {
	attempt := uuid.NewString()
	set, err := t.store.SetUnlessPrefixed(ctx, t.store.CheckoutKey(session), submittingPrefix, submittingPrefix+attempt, t.ttl)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark checkout submitting")
	}
	if !set {
		return "", ErrCheckoutInProgress
	}
	return attempt, nil
}

func (t *RedisTracker) Finish(ctx context.Context, session, attempt string, state State) error {
	if _, err := t.store.CompareAndSet(ctx, t.store.CheckoutKey(session), submittingPrefix+attempt, string(state), t.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record checkout state")
	}
	return nil
}

func (t *RedisTracker) State(ctx context.Context, session string) (State, error) {
	value, err := t.store.Get(ctx, t.store.CheckoutKey(session))
	if errors.Is(err, goredis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read checkout state")
	}
	if strings.HasPrefix(value, submittingPrefix) {
		return StateSubmitting, nil
	}
	return State(value), nil
}
