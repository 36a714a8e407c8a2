package assistant

import (
	"sync"

	"github.com/yhzhou/smartcal/store"
)

// pendingOperation tags which action a numeric selection will complete.
type pendingOperation string

const (
	operationDelete pendingOperation = "delete"
	operationModify pendingOperation = "modify"
)

// sessionState bridges two conversational turns for one user.
//
// Candidates + Operation means a numbered selection is awaited; Selected
// means the user picked an event to modify and the next message carries the
// edit payload. State is never time-boxed: a stale pending selection can be
// resumed until the process restarts.
type sessionState struct {
	Candidates []*store.Event
	Operation  pendingOperation
	Selected   *store.Event
}

// sessionManager holds per-user disambiguation state in process memory.
//
// The mutex guards the map itself. Two concurrent messages from the same
// user can still interleave on the conversational level; that race is
// inherited from the original design and left as is.
type sessionManager struct {
	mu     sync.Mutex
	states map[int32]*sessionState
}

func newSessionManager() *sessionManager {
	return &sessionManager{states: map[int32]*sessionState{}}
}

func (m *sessionManager) get(userID int32) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID]
}

func (m *sessionManager) set(userID int32, state *sessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = state
}

func (m *sessionManager) clear(userID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
}
