package bot

import "sync"

// FlowKind names one multi-step conversational task.
type FlowKind int

const (
	FlowNone FlowKind = iota
	FlowSell
	FlowAddEvent
	FlowRemoveEvent
	FlowBlock
	FlowUnblock
)

// Step identifies the position inside a flow. Step values are only
// meaningful together with their FlowKind.
type Step int

const (
	StepNone Step = iota

	// Sell flow.
	StepSellSelectEvent
	StepSellSection
	StepSellQuantity
	StepSellPrice
	StepSellPhone

	// Add-event flow.
	StepAddEventName
	StepAddEventDate
	StepAddEventTime
	StepAddEventLocation

	// Remove-event flow.
	StepRemoveEventSelect

	// Block / unblock flows.
	StepBlockEnterID
	StepUnblockEnterID
)

// Session is one user's active flow with the fields collected so far.
type Session struct {
	Flow FlowKind
	Step Step
	Data map[string]string
}

func newSession(flow FlowKind, step Step) *Session {
	return &Session{Flow: flow, Step: step, Data: make(map[string]string)}
}

// clone returns a copy so callers can't mutate stored state in place.
func (s *Session) clone() *Session {
	c := &Session{Flow: s.Flow, Step: s.Step, Data: make(map[string]string, len(s.Data))}
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return c
}

// SessionStore holds the per-user conversation state. It is safe for
// concurrent access across users; the per-user lock additionally serializes
// update handling for a single user, since flow state is not re-entrant.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

// NewSessionStore constructs an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns a clone of the user's session, or nil when no flow is active.
func (s *SessionStore) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.clone()
	}
	return nil
}

// Set replaces the user's session outright. Starting a new flow while one is
// in progress abandons the old one, collected fields included.
func (s *SessionStore) Set(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess.clone()
}

// Clear drops the user's session, returning them to no-active-flow.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// userLock returns the mutex serializing one user's updates, creating it
// lazily. Lock instances are never removed; the map grows with the user
// base, which is small.
func (s *SessionStore) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}
