package game

import "sync"

// SessionStore maps room codes to their live GameSession.
type SessionStore struct {
	sessions map[string]*GameSession
	mu       sync.RWMutex
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*GameSession),
	}
}

// GetOrCreate returns the session for code, creating one seeded with zero
// scores for players if none exists. The lookup and the insert happen under
// one lock so two callers can never create two sessions for a room.
func (s *SessionStore) GetOrCreate(code string, players []Player) (*GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[code]; ok {
		return session, false
	}
	session := newGameSession(code, players)
	s.sessions[code] = session
	return session, true
}

func (s *SessionStore) Get(code string) (*GameSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

// Delete discards the session and any reset still pending for it.
func (s *SessionStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[code]; ok {
		session.cancelReset()
		delete(s.sessions, code)
	}
}

func (s *SessionStore) Has(code string) bool {
	_, ok := s.Get(code)
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
