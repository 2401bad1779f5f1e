package pose

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionFull is returned when a session already holds its maximum poses.
var ErrSessionFull = errors.New("saved pose limit reached")

// Session holds reference poses a live pose is matched against.
type Session struct {
	mu             sync.RWMutex
	saved          []Pose
	maxSaved       int
	distanceWeight float64
}

func NewSession(maxSaved int, distanceWeight float64) *Session {
	return &Session{maxSaved: maxSaved, distanceWeight: distanceWeight}
}

// Capture stores a copy of p as a reference pose.
func (s *Session) Capture(p Pose) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.saved) >= s.maxSaved {
		return len(s.saved), ErrSessionFull
	}
	cp := make(Pose, len(p))
	copy(cp, p)
	s.saved = append(s.saved, cp)
	return len(s.saved), nil
}

func (s *Session) Reset() {
	s.mu.Lock()
	s.saved = nil
	s.mu.Unlock()
}

// Saved returns a snapshot of the reference poses.
func (s *Session) Saved() []Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Pose, len(s.saved))
	for i, p := range s.saved {
		cp := make(Pose, len(p))
		copy(cp, p)
		out[i] = cp
	}
	return out
}

// Match scores current against every saved pose, in capture order.
func (s *Session) Match(current Pose) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]float64, len(s.saved))
	for i, saved := range s.saved {
		scores[i] = Compare(current, saved, s.distanceWeight)
	}
	return scores
}

// Registry keeps one Session per client session id. Sessions not touched
// for a while are dropped by Prune.
type Registry struct {
	mu             sync.Mutex
	sessions       map[string]*Session
	lastUsed       map[string]time.Time
	maxSaved       int
	distanceWeight float64
	now            func() time.Time
}

func NewRegistry(maxSaved int, distanceWeight float64) *Registry {
	return &Registry{
		sessions:       make(map[string]*Session),
		lastUsed:       make(map[string]time.Time),
		maxSaved:       maxSaved,
		distanceWeight: distanceWeight,
		now:            time.Now,
	}
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = NewSession(r.maxSaved, r.distanceWeight)
		r.sessions[id] = s
	}
	r.lastUsed[id] = r.now()
	return s
}

// Lookup returns the session for id without creating it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		r.lastUsed[id] = r.now()
	}
	return s, ok
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	delete(r.lastUsed, id)
	r.mu.Unlock()
}

// Prune drops sessions unused for longer than idle and returns how many
// were removed.
func (r *Registry) Prune(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, at := range r.lastUsed {
		if now.Sub(at) > idle {
			delete(r.sessions, id)
			delete(r.lastUsed, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
