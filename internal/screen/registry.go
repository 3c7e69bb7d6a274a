package screen

import (
	"context"
	"sync"
	"time"

	"github.com/DukeRupert/guichet/internal/metrics"
	"github.com/DukeRupert/guichet/internal/session"
)

// DefaultIdleTTL is how long an unused screen is kept.
const DefaultIdleTTL = 30 * time.Minute

// Factory builds the screen of one session.
type Factory[T any] func(sess session.Context) *Screen[T]

// Registry keeps one screen per session for one entity and evicts screens
// that have not been used for the idle TTL.
type Registry[T any] struct {
	entity  string
	factory Factory[T]
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	screens map[string]*registryEntry[T]
}

type registryEntry[T any] struct {
	screen   *Screen[T]
	lastUsed time.Time
}

// NewRegistry creates a registry. entity labels the registry in metrics.
func NewRegistry[T any](entity string, factory Factory[T], ttl time.Duration) *Registry[T] {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry[T]{
		entity:  entity,
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		screens: make(map[string]*registryEntry[T]),
	}
}

// Get returns the screen of sess, creating it on first use.
func (r *Registry[T]) Get(sess session.Context) *Screen[T] {
	key := sess.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.screens[key]; ok {
		e.lastUsed = r.now()
		return e.screen
	}
	s := r.factory(sess)
	r.screens[key] = &registryEntry[T]{screen: s, lastUsed: r.now()}
	metrics.ScreensActive.WithLabelValues(r.entity).Inc()
	return s
}

// Sweep closes and removes idle screens. It returns how many were evicted.
func (r *Registry[T]) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []*Screen[T]
	for key, e := range r.screens {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e.screen)
			delete(r.screens, key)
		}
	}
	r.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	metrics.ScreensActive.WithLabelValues(r.entity).Sub(float64(len(evicted)))
	return len(evicted)
}

// Run sweeps every interval until ctx is done, then closes every screen.
func (r *Registry[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of live screens.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// Close closes and removes every screen.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	screens := r.screens
	r.screens = make(map[string]*registryEntry[T])
	r.mu.Unlock()

	for _, e := range screens {
		e.screen.Close()
	}
	metrics.ScreensActive.WithLabelValues(r.entity).Sub(float64(len(screens)))
}
