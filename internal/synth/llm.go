package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/rendis/drawsynth/internal/logging"
	"github.com/rendis/drawsynth/internal/validation"
	"github.com/rendis/drawsynth/pkg/schema"
)

// LLMConfig configures an LLMSynthesizer.
type LLMConfig struct {
	// EnvelopeQuery is the jq query that reshapes a decoded answer. Empty means DefaultEnvelopeQuery.
	EnvelopeQuery string
	Canvas        validation.Config
}

// LLMSynthesizer asks a language model for primitives and checks the answer
// at the boundary: JSON extraction, envelope normalisation, items schema, decode.
type LLMSynthesizer struct {
	completer  Completer
	items      *validation.PrimitiveSchemaValidator
	normalizer *Normalizer
	query      string
	system     string
	logger     *slog.Logger
}

// NewLLMSynthesizer compiles the items schema and the envelope query.
func NewLLMSynthesizer(completer Completer, cfg LLMConfig, logger *slog.Logger) (*LLMSynthesizer, error) {
	items, err := validation.NewPrimitiveSchemaValidator()
	if err != nil {
		return nil, err
	}
	if cfg.EnvelopeQuery == "" {
		cfg.EnvelopeQuery = DefaultEnvelopeQuery
	}
	normalizer := NewNormalizer()
	if err := normalizer.Compile(cfg.EnvelopeQuery); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSynthesizer{
		completer:  completer,
		items:      items,
		normalizer: normalizer,
		query:      cfg.EnvelopeQuery,
		system:     systemPrompt(cfg.Canvas),
		logger:     logger,
	}, nil
}

// Synthesize sends one request to the model and parses the answer.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, req Request) (*Synthesis, error) {
	messages := []Message{{Role: "user", Content: userPrompt(req), Image: req.PriorImage}}

	comp, err := s.completer.Complete(ctx, s.system, messages)
	if err != nil {
		return nil, err
	}
	logging.LogWith(ctx, s.logger).Debug("model answered",
		"model", comp.Model,
		"input_tokens", comp.InputTokens,
		"output_tokens", comp.OutputTokens,
		"duration_ms", comp.Duration.Milliseconds(),
	)
	if comp.Truncated() {
		return nil, Malformed("model answer was truncated at the token limit", nil)
	}
	return s.Parse(ctx, comp.Content)
}

// Parse turns a raw model answer into a Synthesis. Every failure is a
// malformed-output error.
func (s *LLMSynthesizer) Parse(ctx context.Context, content string) (*Synthesis, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, Malformed("model answer contains no JSON", nil)
	}

	var answer any
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, Malformed("model answer is not valid JSON", err)
	}

	env, err := s.normalizer.Normalize(ctx, s.query, answer)
	if err != nil {
		return nil, Malformed("model answer has an unexpected layout", err)
	}

	if err := s.items.ValidateItems(env.Items); err != nil {
		return nil, Malformed("model items failed schema validation", err)
	}

	data, err := json.Marshal(env.Items)
	if err != nil {
		return nil, Malformed("re-encode model items", err)
	}
	prims, err := schema.DecodePrimitives(data)
	if err != nil {
		return nil, Malformed("decode model items", err)
	}

	return &Synthesis{
		Items:       prims,
		DiagramType: schema.ParseDiagramType(env.DiagramType),
		Description: env.Description,
	}, nil
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n?```")

// extractJSON returns the fenced JSON block of content, or the span from the
// first opening brace or bracket to the last matching closer.
func extractJSON(content string) string {
	if m := fencePattern.FindStringSubmatch(content); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return ""
	}
	return content[start : end+1]
}

func userPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Request: ")
	b.WriteString(strings.TrimSpace(req.Prompt))
	if ctx := strings.TrimSpace(req.CanvasContext); ctx != "" {
		b.WriteString("\n\nCurrent canvas:\n")
		b.WriteString(ctx)
	}
	if len(req.PriorImage) > 0 {
		b.WriteString("\n\nThe attached image is a preview of the current canvas.")
	}
	if fb := strings.TrimSpace(req.Feedback); fb != "" {
		b.WriteString("\n\n")
		b.WriteString(fb)
	}
	return b.String()
}

func systemPrompt(canvas validation.Config) string {
	canvas = canvas.WithDefaults()

	kinds := make([]string, len(schema.GeoKinds))
	for i, k := range schema.GeoKinds {
		kinds[i] = string(k)
	}

	return fmt.Sprintf(`You draw diagrams on a %s x %s px canvas with the origin at the top-left.
Answer with one JSON object and nothing else:
{"diagramType": "structured" | "freeform", "description": "<one sentence>", "items": [ ... ]}

Use "structured" for flowcharts, architecture and other box-and-arrow diagrams; use "freeform" for sketches and illustrations.

Each item has a "shape" field:
- geo shapes (%s): x, y, w, h, optional label, color, fillColor, strokeWidth
- "text": x, y, text, optional w, fontSize, fontFamily, color
- "arrow": either start {x,y} and end {x,y} in canvas coordinates, or fromLabel and toLabel naming shape labels; optional label, curvature, arrowheadStart, arrowheadEnd, color
- "line": x, y and at least 2 points relative to x, y
- "polygon": x, y and at least 3 points relative to x, y

For structured diagrams keep every shape inside the canvas, leave at least %s px between shapes, prefer fromLabel/toLabel arrows, and keep rows and columns evenly spaced.`,
		num(canvas.CanvasWidth), num(canvas.CanvasHeight),
		strings.Join(kinds, ", "),
		num(canvas.MinSpacing),
	)
}

func num(f float64) string {
	return fmt.Sprintf("%g", f)
}

var _ Synthesizer = (*LLMSynthesizer)(nil)
