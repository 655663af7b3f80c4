// Package synth proposes primitive sets from natural-language drawing
// requests. The orchestrator depends only on the Synthesizer interface.
package synth

import (
	"context"
	"errors"

	"github.com/rendis/drawsynth/pkg/schema"
)

// Request is the input of one synthesis attempt.
type Request struct {
	Prompt        string
	CanvasContext string
	// Feedback is the correction text of the previous attempt; empty on the first attempt.
	Feedback string
	// PriorItems is the rejected primitive set the feedback refers to.
	PriorItems []schema.Primitive
	PriorImage []byte
}

// Synthesis is a candidate primitive set with its classification.
type Synthesis struct {
	Items       []schema.Primitive
	DiagramType schema.DiagramType
	Description string
}

// Synthesizer proposes primitives for a request.
//
// Implementations return a *schema.Error with ErrCodeMalformedOutput when the
// provider answered but the answer could not be turned into primitives, and
// any other error for transport or provider failures.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Synthesis, error)
}

// Malformed wraps err as a malformed-output error.
func Malformed(message string, err error) *schema.Error {
	e := schema.NewError(schema.ErrCodeMalformedOutput, message)
	if err != nil {
		e = e.WithCause(err)
		var se *schema.Error
		if errors.As(err, &se) && se.Details != nil {
			e = e.WithDetails(se.Details)
		}
	}
	return e
}
