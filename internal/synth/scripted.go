package synth

import (
	"context"
	"sync"

	"github.com/rendis/drawsynth/pkg/schema"
)

// Step is one canned reply of a Scripted synthesizer.
type Step struct {
	Synthesis *Synthesis
	Err       error
}

// Respond is a Step returning items with the given classification.
func Respond(dt schema.DiagramType, items ...schema.Primitive) Step {
	return Step{Synthesis: &Synthesis{Items: items, DiagramType: dt}}
}

// Fail is a Step returning err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Scripted replays canned steps in order, repeating the last one once the
// script is exhausted. It records every request it receives.
type Scripted struct {
	mu    sync.Mutex
	steps []Step
	calls []Request
}

// NewScripted creates a Scripted synthesizer.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// FromAnswers parses raw model answers into a script. An answer that does not
// parse becomes a failing step, so replays see the same errors a live model would cause.
func FromAnswers(ctx context.Context, parser *LLMSynthesizer, answers ...string) *Scripted {
	steps := make([]Step, len(answers))
	for i, a := range answers {
		syn, err := parser.Parse(ctx, a)
		steps[i] = Step{Synthesis: syn, Err: err}
	}
	return NewScripted(steps...)
}

func (s *Scripted) Synthesize(ctx context.Context, req Request) (*Synthesis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	if len(s.steps) == 0 {
		return nil, Malformed("script is empty", nil)
	}
	i := len(s.calls) - 1
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	step := s.steps[i]
	if step.Err != nil {
		return nil, step.Err
	}
	out := *step.Synthesis
	out.Items = append([]schema.Primitive(nil), step.Synthesis.Items...)
	return &out, nil
}

// Calls returns a copy of the requests received so far.
func (s *Scripted) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}

var _ Synthesizer = (*Scripted)(nil)
