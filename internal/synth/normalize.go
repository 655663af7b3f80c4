package synth

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rendis/drawsynth/pkg/schema"
)

// DefaultEnvelopeQuery reshapes the common answer layouts into
// {items, diagramType, description}. It accepts a bare array, or an object
// carrying the list under "items", "shapes" or "primitives".
const DefaultEnvelopeQuery = `
(if type == "array" then {items: .} else . end)
| {
    items: (.items // .shapes // .primitives // []),
    diagramType: ((.diagramType // .diagram_type // "structured") | tostring),
    description: ((.description // .reply // .summary // "") | tostring)
  }`

// Envelope is the normalised answer.
type Envelope struct {
	Items       any    `json:"items"`
	DiagramType string `json:"diagramType"`
	Description string `json:"description"`
}

// Normalizer runs a jq query over a decoded model answer.
// Compiled queries are cached; it is safe for concurrent use.
type Normalizer struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewNormalizer creates a Normalizer with an empty query cache.
func NewNormalizer() *Normalizer {
	return &Normalizer{cache: make(map[string]*gojq.Code)}
}

// Normalize evaluates query against the decoded answer and returns its first
// result, which must be an object.
func (n *Normalizer) Normalize(ctx context.Context, query string, answer any) (*Envelope, error) {
	code, err := n.getOrCompile(query)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, normalizeForJQ(answer))
	val, ok := iter.Next()
	if !ok {
		return nil, schema.NewError(schema.ErrCodeMalformedOutput, "answer normalisation produced no value")
	}
	if err, isErr := val.(error); isErr {
		return nil, schema.NewErrorf(schema.ErrCodeMalformedOutput, "answer normalisation failed: %s", err.Error()).
			WithCause(err)
	}

	obj, ok := val.(map[string]any)
	if !ok {
		return nil, schema.NewError(schema.ErrCodeMalformedOutput, "answer normalisation did not produce an object")
	}
	env := &Envelope{Items: obj["items"]}
	env.DiagramType, _ = obj["diagramType"].(string)
	env.Description, _ = obj["description"].(string)
	return env, nil
}

// Compile checks that query parses and compiles.
func (n *Normalizer) Compile(query string) error {
	_, err := n.getOrCompile(query)
	return err
}

func (n *Normalizer) getOrCompile(query string) (*gojq.Code, error) {
	n.mu.RLock()
	if code, ok := n.cache[query]; ok {
		n.mu.RUnlock()
		return code, nil
	}
	n.mu.RUnlock()

	n.mu.Lock()
	defer n.mu.Unlock()

	if code, ok := n.cache[query]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "jq parse error: %s", err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"query": query})
	}

	// No $ENV access from normalisation queries.
	code, err := gojq.Compile(parsed, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "jq compile error: %s", err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"query": query})
	}

	n.cache[query] = code
	return code, nil
}

// normalizeForJQ converts Go numeric types to float64, the only number type jq knows.
func normalizeForJQ(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = normalizeForJQ(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = normalizeForJQ(v)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
