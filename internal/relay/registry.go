package relay

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// DefaultRetention is how long closed sessions stay listed.
const DefaultRetention = 10 * time.Minute

// pruneSchedule drives the closed-session pruner.
const pruneSchedule = "@every 1m"

// Registry tracks live sessions and keeps closed ones listed for a while.
// Sessions are independent; the registry never shares adapters between them.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	retention time.Duration

	cron *cron.Cron
}

// NewRegistry creates a registry. A non-positive retention uses
// DefaultRetention.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		retention: retention,
	}
}

// Create registers a new idle session.
func (r *Registry) Create(kind transport.Kind, target string) *Session {
	s := newSession(uuid.New().String(), kind, target)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// List returns all tracked sessions, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ActiveCount returns the number of sessions that are not closed.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.State() != StateClosed {
			n++
		}
	}
	return n
}

// Close requests termination of one session.
func (r *Registry) Close(id string) error {
	s := r.Get(id)
	if s == nil {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseAll requests termination of every session.
func (r *Registry) CloseAll() {
	for _, s := range r.List() {
		s.Close()
	}
}

// Prune drops sessions closed longer than the retention period before now
// and returns how many were removed.
func (r *Registry) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		closedAt := s.ClosedAt()
		if !closedAt.IsZero() && now.Sub(closedAt) >= r.retention {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartPruner schedules Prune in the background until Stop is called.
func (r *Registry) StartPruner() error {
	c := cron.New()
	if _, err := c.AddFunc(pruneSchedule, func() {
		if n := r.Prune(time.Now()); n > 0 {
			log.Printf("[relay] pruned %d closed sessions", n)
		}
	}); err != nil {
		return err
	}
	c.Start()

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	return nil
}

// Stop halts the pruner, if running.
func (r *Registry) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
