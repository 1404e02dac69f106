package authstate

import (
	"errors"
	"sync"
	"time"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface. Entries older than the configured timeout are treated as
// expired and pruned opportunistically.
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]*FlowState
	timeout time.Duration
	nowTime func() time.Time
}

// NewInMemoryRepo creates a new in-memory auth flow state repository.
func NewInMemoryRepo(timeout time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		states:  make(map[string]*FlowState),
		timeout: timeout,
		nowTime: time.Now,
	}
}

// Upsert stores or updates an auth flow state.
func (r *InMemoryRepo) Upsert(state string, flowState *FlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flowState == nil {
		return errors.New("flowState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()

	// Create a copy to prevent external modifications
	r.states[state] = &FlowState{
		Provider:  flowState.Provider,
		ReturnURL: flowState.ReturnURL,
		CreatedAt: flowState.CreatedAt,
	}

	return nil
}

// Take retrieves and removes an auth flow state. A state can be consumed at
// most once.
func (r *InMemoryRepo) Take(state string) (*FlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flowState, exists := r.states[state]
	if !exists {
		return nil, errors.New("state not found")
	}
	delete(r.states, state)

	if r.expired(flowState) {
		return nil, errors.New("state expired")
	}

	return &FlowState{
		Provider:  flowState.Provider,
		ReturnURL: flowState.ReturnURL,
		CreatedAt: flowState.CreatedAt,
	}, nil
}

func (r *InMemoryRepo) expired(flowState *FlowState) bool {
	if r.timeout <= 0 {
		return false
	}
	return r.nowTime().Sub(flowState.CreatedAt) > r.timeout
}

func (r *InMemoryRepo) prune() {
	for state, flowState := range r.states {
		if r.expired(flowState) {
			delete(r.states, state)
		}
	}
}
