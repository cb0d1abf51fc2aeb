package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DEFAULT_IDLE_TIMEOUT is how long an untouched session stays in memory.
const DEFAULT_IDLE_TIMEOUT = 30 * time.Minute

// Registry holds the live engines of a process keyed by session id.
type Registry struct {
	newEngine   func() *Engine
	idleTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewRegistry(newEngine func() *Engine, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DEFAULT_IDLE_TIMEOUT
	}
	return &Registry{
		newEngine:   newEngine,
		idleTimeout: idleTimeout,
		now:         time.Now,
		engines:     map[string]*Engine{},
	}
}

func (r *Registry) Get(sessionID string) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[sessionID]
	return e, ok
}

// GetOrCreate returns the engine of sessionID, creating an empty one if
// needed. created is true for new engines.
func (r *Registry) GetOrCreate(sessionID string) (e *Engine, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[sessionID]; ok {
		return e, false
	}
	e = r.newEngine()
	r.engines[sessionID] = e
	return e, true
}

// Remove drops the engine after writing its pending answers.
func (r *Registry) Remove(ctx context.Context, sessionID string) {
	r.mu.Lock()
	e, ok := r.engines[sessionID]
	delete(r.engines, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := e.Close(ctx); err != nil {
		slog.Error("failed to close session engine", slog.String("sessionID", sessionID), slog.String("error", err.Error()))
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// EvictIdle closes and removes engines idle for longer than the idle timeout.
// It returns the number of evicted engines.
func (r *Registry) EvictIdle(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	idle := map[string]*Engine{}
	for id, e := range r.engines {
		if e.LastActive().Before(cutoff) {
			idle[id] = e
			delete(r.engines, id)
		}
	}
	r.mu.Unlock()

	for id, e := range idle {
		if err := e.Close(ctx); err != nil {
			slog.Error("failed to close idle session engine", slog.String("sessionID", id), slog.String("error", err.Error()))
		}
	}
	if len(idle) > 0 {
		slog.Debug("evicted idle sessions", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Run evicts idle engines every interval until ctx is done, then closes the
// remaining engines.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll(context.Background())
			return
		case <-ticker.C:
			r.EvictIdle(ctx)
		}
	}
}

// CloseAll writes the pending answers of every engine and empties the
// registry.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	engines := r.engines
	r.engines = map[string]*Engine{}
	r.mu.Unlock()

	for id, e := range engines {
		if err := e.Close(ctx); err != nil {
			slog.Error("failed to close session engine", slog.String("sessionID", id), slog.String("error", err.Error()))
		}
	}
}
