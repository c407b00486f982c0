// Package session holds in-process session state for think-sessions and
// parallel-reasoning sessions (SessionStore) and the per-session SSE
// fan-out that streams their progress to clients (SSEHub).
//
// Grounded on the teacher's background-worker idiom (ticker + stopCh +
// sync.WaitGroup, see internal/service/expirer.go) applied to a sweep loop
// instead of a deletion policy, since the teacher has no session concept of
// its own.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/engram/internal/domain"
)

const defaultSweepInterval = 1 * time.Minute

// nowFunc is overridable in tests.
var nowFunc = time.Now

// Store is an in-process map of session id to session state, with a
// background TTL sweep. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session

	ttl           time.Duration
	sweepInterval time.Duration
	logger        *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewStore(ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		sessions:      make(map[string]*domain.Session),
		ttl:           ttl,
		sweepInterval: defaultSweepInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// CreateSession allocates a fresh session id of the form
// "<kind>-<timestampMs>-<short-random>" and stores the initial record.
func (st *Store) CreateSession(kind domain.SessionKind) *domain.Session {
	id := newSessionID(kind)
	s := &domain.Session{
		ID:        id,
		Kind:      kind,
		Status:    domain.SessionProcessing,
		StartedAt: nowFunc(),
	}
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s
}

func newSessionID(kind domain.SessionKind) string {
	ts := nowFunc().UnixMilli()
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s-%d-%s", kind, ts, hex.EncodeToString(buf))
}

// Get returns a copy of the session, or false if it doesn't exist.
func (st *Store) Get(id string) (domain.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	return *s, true
}

// Update applies fn to a copy of the current session state and stores the
// result, copy-on-write.
func (st *Store) Update(id string, fn func(s *domain.Session)) (domain.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	existing, ok := st.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	next := *existing
	fn(&next)
	st.sessions[id] = &next
	return next, true
}

// Delete removes a session immediately.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Start launches the background TTL sweep goroutine.
func (st *Store) Start() {
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(st.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st.sweep()
			case <-st.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweep goroutine and waits for it to exit.
func (st *Store) Stop() {
	close(st.stopCh)
	st.wg.Wait()
}

func (st *Store) sweep() {
	cutoff := nowFunc().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.StartedAt.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 && st.logger != nil {
		st.logger.Info("swept expired sessions", zap.Int("count", removed))
	}
}
