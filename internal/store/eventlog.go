package store

import (
	"github.com/rendis/drawsynth/pkg/schema"
)

// Replay is a run reconstructed from its journal alone.
type Replay struct {
	RunID    string            `json:"run_id"`
	Status   schema.RunStatus  `json:"status"`
	Trace    []schema.RunState `json:"trace"`
	Attempts int               `json:"attempts"`
	Retries  int               `json:"synthesis_retries"`
}

// ReplayEvents rebuilds the visited states, attempt count and final status of
// a run from its events, which must be ordered by sequence starting at 1.
// Refines and degraded syntheses both count as attempts.
func ReplayEvents(runID string, events []*Event) (*Replay, error) {
	r := &Replay{RunID: runID, Trace: []schema.RunState{}}
	for i, e := range events {
		expected := int64(i + 1)
		if e.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in run %s: expected %d, got %d", runID, expected, e.Sequence)
		}

		switch e.Type {
		case schema.EventRunStarted:
			r.Status = schema.RunStatusActive
		case schema.EventGenerateStarted, schema.EventValidateStarted, schema.EventRenderStarted:
			r.Trace = append(r.Trace, e.State)
		case schema.EventRefineStarted:
			r.Trace = append(r.Trace, e.State)
			r.Attempts++
		case schema.EventSynthesisFailed:
			r.Attempts++
		case schema.EventSynthesisRetrying:
			r.Retries++
		case schema.EventRunCompleted:
			r.Status = schema.RunStatusCompleted
		case schema.EventRunFailed:
			r.Status = schema.RunStatusFailed
		}
	}
	return r, nil
}
