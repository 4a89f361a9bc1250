// Package state tracks each client's optimization request lifecycle with an
// explicit state machine, so a second submit cannot race an in-flight one
// and the UI can observe pending/completed/failed transitions.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// Pipeline states.
const (
	StateIdle      = "idle"
	StatePending   = "pending"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Pipeline events.
const (
	EventSubmit  = "submit"
	EventSucceed = "succeed"
	EventFail    = "fail"
	EventReset   = "reset"
)

// PipelineState is the observable snapshot of one client's pipeline.
type PipelineState struct {
	ClientID     string    `json:"client_id"`
	CurrentState string    `json:"state"`
	Since        time.Time `json:"since"`
	Algorithm    string    `json:"algorithm,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Machine wraps the FSM for one client.
type Machine struct {
	mu            sync.RWMutex
	clientID      string
	fsm           *fsm.FSM
	state         *PipelineState
	onStateChange func(clientID, from, to string)
}

// NewMachine creates a machine starting at idle.
func NewMachine(clientID string, onStateChange func(clientID, from, to string)) *Machine {
	m := &Machine{
		clientID:      clientID,
		onStateChange: onStateChange,
		state: &PipelineState{
			ClientID:     clientID,
			CurrentState: StateIdle,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			// A new submit is allowed from any settled state, never while pending.
			{Name: EventSubmit, Src: []string{StateIdle, StateCompleted, StateFailed}, Dst: StatePending},

			{Name: EventSucceed, Src: []string{StatePending}, Dst: StateCompleted},
			{Name: EventFail, Src: []string{StatePending}, Dst: StateFailed},

			{Name: EventReset, Src: []string{StateCompleted, StateFailed}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(m.clientID, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// CurrentState returns the current state name.
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetState returns a copy of the full snapshot.
func (m *Machine) GetState() *PipelineState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stateCopy := *m.state
	stateCopy.CurrentState = m.fsm.Current()
	return &stateCopy
}

// UpdateState mutates the snapshot under the lock.
func (m *Machine) UpdateState(update func(s *PipelineState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(m.state)
}

// Trigger fires an event.
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.state.CurrentState = m.fsm.Current()
	m.state.Since = time.Now()
	return nil
}

// CanTransition reports whether the event is allowed right now.
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}

// Manager holds the per-client machines.
type Manager struct {
	mu       sync.RWMutex
	machines map[string]*Machine
	onChange func(clientID, from, to string)
}

// NewManager creates a manager; onChange fires on every transition.
func NewManager(onChange func(clientID, from, to string)) *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
		onChange: onChange,
	}
}

// GetOrCreate returns the client's machine, creating it at idle.
func (m *Manager) GetOrCreate(clientID string) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if machine, ok := m.machines[clientID]; ok {
		return machine
	}

	machine := NewMachine(clientID, m.onChange)
	m.machines[clientID] = machine
	return machine
}

// Get returns the client's machine if present.
func (m *Manager) Get(clientID string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	machine, ok := m.machines[clientID]
	return machine, ok
}

// GetAllStates snapshots every client's pipeline state.
func (m *Manager) GetAllStates() map[string]*PipelineState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]*PipelineState)
	for clientID, machine := range m.machines {
		states[clientID] = machine.GetState()
	}
	return states
}
