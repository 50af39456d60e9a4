package core

// session.go holds per-browser upload state.
//
// Each browser session owns exactly one UploadSession. A new upload
// overwrites it; tables are published only after a successful run, and a
// failed run clears whatever was published before. Sink actions read the
// published TableSet and never modify the session.

import (
	"sync"
	"time"
)

// UploadSession is the state of one browser session.
type UploadSession struct {
	ID         string
	FileName   string
	Credential string // never rendered or logged
	Phase      Phase
	Error      string // set when Phase is PhaseFailed
	Tables     *TableSet
	Report     *ValidationReport
	Duration   time.Duration
	UploadedAt time.Time
	UpdatedAt  time.Time

	run uint64 // bumped by Begin; older runs may not write
}

// Ready reports whether sink actions are allowed.
func (s UploadSession) Ready() bool {
	return s.Phase == PhaseReady && s.Tables != nil
}

// HasCredential reports whether an API key is remembered for the session.
func (s UploadSession) HasCredential() bool {
	return s.Credential != ""
}

// SessionStore is an in-memory, mutex-guarded map of upload sessions.
// Values handed out are copies; the published *TableSet is shared and
// treated as immutable once published.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*UploadSession
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*UploadSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns a copy of the session, or false if it does not exist.
func (s *SessionStore) Get(id string) (UploadSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return UploadSession{}, false
	}
	return *sess, true
}

// Ensure returns the session, creating an idle one if needed.
func (s *SessionStore) Ensure(id string) UploadSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.ensureLocked(id)
}

func (s *SessionStore) ensureLocked(id string) *UploadSession {
	sess, ok := s.sessions[id]
	if !ok {
		now := s.now()
		sess = &UploadSession{ID: id, Phase: PhaseIdle, UpdatedAt: now}
		s.sessions[id] = sess
	}
	return sess
}

// Begin starts a new upload cycle, discarding any previously published tables.
// It returns the run token that SetPhase, Publish and Fail must present;
// calls carrying an older token are ignored.
func (s *SessionStore) Begin(id, fileName, credential string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := s.ensureLocked(id)
	sess.run++
	sess.FileName = fileName
	sess.Credential = credential
	sess.Phase = PhaseIdle
	sess.Error = ""
	sess.Tables = nil
	sess.Report = nil
	sess.Duration = 0
	sess.UploadedAt = now
	sess.UpdatedAt = now
	return sess.run
}

// currentLocked returns the session if run is still its latest run.
func (s *SessionStore) currentLocked(id string, run uint64) (*UploadSession, bool) {
	sess, ok := s.sessions[id]
	if !ok || sess.run != run {
		return nil, false
	}
	return sess, true
}

// SetPhase records a pipeline transition.
func (s *SessionStore) SetPhase(id string, run uint64, phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.currentLocked(id, run); ok {
		sess.Phase = phase
		sess.UpdatedAt = s.now()
	}
}

// Publish stores the result of a successful run and marks the session ready.
// It reports false, leaving the session alone, when run was superseded.
func (s *SessionStore) Publish(id string, run uint64, result *RunResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.currentLocked(id, run)
	if !ok {
		return false
	}
	sess.Phase = PhaseReady
	sess.Error = ""
	sess.Tables = result.Tables
	sess.Report = result.Report
	sess.Duration = result.Duration
	sess.UpdatedAt = s.now()
	return true
}

// Fail marks the session failed. Nothing is published. Like Publish it
// ignores superseded runs.
func (s *SessionStore) Fail(id string, run uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.currentLocked(id, run)
	if !ok {
		return false
	}
	sess.Phase = PhaseFailed
	sess.Error = err.Error()
	sess.Tables = nil
	sess.Report = nil
	sess.UpdatedAt = s.now()
	return true
}

// Touch extends the session's lifetime.
func (s *SessionStore) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.UpdatedAt = s.now()
	}
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. Sessions with a run in progress are kept.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.Phase.Running() {
			continue
		}
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
