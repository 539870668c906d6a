// Package suppressor holds message ids the bot is about to act on so the
// events those actions trigger are not audited again.
package suppressor

import (
	"sync"
	"time"
)

// DefaultTTL is how long an id stays suppressed when no TTL is configured.
const DefaultTTL = 7 * time.Second

// Suppressor is a set of ids with per-id expiry. It is safe for concurrent use.
type Suppressor struct {
	mu  sync.Mutex
	ttl time.Duration
	ids map[string]time.Time
	now func() time.Time
}

// ThreadKey is the id under which a thread deletion is suppressed. Threads
// started from a message share its id, so thread ids get their own prefix.
func ThreadKey(threadID string) string {
	return "thread:" + threadID
}

func New(ttl time.Duration) *Suppressor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Suppressor{ttl: ttl, ids: make(map[string]time.Time), now: time.Now}
}

// Add suppresses the next event for id until the TTL elapses.
func (s *Suppressor) Add(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.ids[id] = s.now().Add(s.ttl)
}

// Consume reports whether id was suppressed and clears it.
func (s *Suppressor) Consume(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.ids[id]
	if !ok {
		return false
	}
	delete(s.ids, id)
	return s.now().Before(expires)
}

// Len returns the number of ids that have not expired.
func (s *Suppressor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.ids)
}

func (s *Suppressor) sweep() {
	now := s.now()
	for id, expires := range s.ids {
		if !now.Before(expires) {
			delete(s.ids, id)
		}
	}
}
