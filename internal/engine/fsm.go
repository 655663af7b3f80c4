package engine

import (
	"context"
	"sync"

	"github.com/rendis/drawsynth/internal/store"
	"github.com/rendis/drawsynth/pkg/schema"
)

// TransitionHook is called before or after a state transition.
type TransitionHook func(from, to schema.RunState) error

// EventAppender receives journal events. The Store and the streaming hub both satisfy it.
type EventAppender interface {
	AppendEvent(ctx context.Context, event *store.Event) error
}

// ValidTransitions defines the allowed moves of a run. render is terminal.
var ValidTransitions = map[schema.RunState][]schema.RunState{
	schema.StateGenerate: {schema.StateValidate, schema.StateRender},
	schema.StateValidate: {schema.StateRefine, schema.StateRender},
	schema.StateRefine:   {schema.StateGenerate},
	schema.StateRender:   {},
}

// InitialState is the state every run starts in.
const InitialState = schema.StateGenerate

// NextState is the transition function of a run.
//
//   - generate -> render for freeform output, generate -> validate otherwise
//   - validate -> render when the result is valid or attempts >= maxAttempts
//   - validate -> refine otherwise
//   - refine -> generate
//
// render maps to itself.
func NextState(current schema.RunState, dt schema.DiagramType, result *schema.ValidationResult, attempts, maxAttempts int) schema.RunState {
	switch current {
	case schema.StateGenerate:
		if dt == schema.DiagramFreeform {
			return schema.StateRender
		}
		return schema.StateValidate
	case schema.StateValidate:
		if result == nil || result.Valid || attempts >= maxAttempts {
			return schema.StateRender
		}
		return schema.StateRefine
	case schema.StateRefine:
		return schema.StateGenerate
	default:
		return schema.StateRender
	}
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s schema.RunState) bool {
	return len(ValidTransitions[s]) == 0
}

type hookKey struct {
	from, to schema.RunState
}

// StateMachine guards run state transitions and journals each entered state.
type StateMachine struct {
	mu       sync.Mutex
	appender EventAppender
	before   map[hookKey][]TransitionHook
	after    map[hookKey][]TransitionHook
}

// NewStateMachine creates a StateMachine that emits events via the given
// appender. A nil appender disables journaling.
func NewStateMachine(appender EventAppender) *StateMachine {
	return &StateMachine{
		appender: appender,
		before:   make(map[hookKey][]TransitionHook),
		after:    make(map[hookKey][]TransitionHook),
	}
}

// OnBefore registers a hook called before a transition.
func (m *StateMachine) OnBefore(from, to schema.RunState, hook TransitionHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := hookKey{from, to}
	m.before[key] = append(m.before[key], hook)
}

// OnAfter registers a hook called after a transition.
func (m *StateMachine) OnAfter(from, to schema.RunState, hook TransitionHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := hookKey{from, to}
	m.after[key] = append(m.after[key], hook)
}

// Enter journals the initial state of a run.
func (m *StateMachine) Enter(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emit(ctx, runID, InitialState, 0)
}

// Transition validates and executes a state transition, running hooks and
// emitting the event of the entered state.
func (m *StateMachine) Transition(ctx context.Context, runID string, from, to schema.RunState, attempt int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isValidTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid run transition: %s -> %s", from, to).
			WithDetails(map[string]any{"run_id": runID, "from": string(from), "to": string(to)})
	}

	key := hookKey{from, to}

	for _, hook := range m.before[key] {
		if err := hook(from, to); err != nil {
			return err
		}
	}

	if err := m.emit(ctx, runID, to, attempt); err != nil {
		return err
	}

	for _, hook := range m.after[key] {
		if err := hook(from, to); err != nil {
			return err
		}
	}

	return nil
}

func (m *StateMachine) emit(ctx context.Context, runID string, state schema.RunState, attempt int) error {
	if m.appender == nil {
		return nil
	}
	event := &store.Event{
		RunID:   runID,
		Type:    stateEventType(state),
		State:   state,
		Attempt: attempt,
	}
	if err := m.appender.AppendEvent(ctx, event); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "emit %s event: %s", state, err.Error()).WithCause(err)
	}
	return nil
}

func isValidTransition(from, to schema.RunState) bool {
	for _, a := range ValidTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

func stateEventType(s schema.RunState) string {
	switch s {
	case schema.StateGenerate:
		return schema.EventGenerateStarted
	case schema.StateValidate:
		return schema.EventValidateStarted
	case schema.StateRefine:
		return schema.EventRefineStarted
	default:
		return schema.EventRenderStarted
	}
}
