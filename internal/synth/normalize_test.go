package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_DefaultQuery(t *testing.T) {
	n := NewNormalizer()
	answer := map[string]any{
		"shapes":      []any{map[string]any{"shape": "text", "x": 1, "y": 2, "text": "t"}},
		"reply":       "a note",
		"diagramType": "freeform",
	}

	env, err := n.Normalize(context.Background(), DefaultEnvelopeQuery, answer)
	require.NoError(t, err)
	assert.Equal(t, "freeform", env.DiagramType)
	assert.Equal(t, "a note", env.Description)

	items, ok := env.Items.([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, float64(1), items[0].(map[string]any)["x"], "ints are normalised for jq")
}

func TestNormalizer_MissingListDefaultsEmpty(t *testing.T) {
	env, err := NewNormalizer().Normalize(context.Background(), DefaultEnvelopeQuery, map[string]any{"description": "nothing"})
	require.NoError(t, err)
	assert.IsType(t, []any{}, env.Items)
	assert.Empty(t, env.Items)
	assert.Equal(t, "structured", env.DiagramType)
}

func TestNormalizer_IgnoresUnrelatedTypeField(t *testing.T) {
	answer := map[string]any{
		"type":  "freeform",
		"items": []any{map[string]any{"shape": "rectangle", "x": 0, "y": 0}},
	}

	env, err := NewNormalizer().Normalize(context.Background(), DefaultEnvelopeQuery, answer)
	require.NoError(t, err)
	assert.Equal(t, "structured", env.DiagramType, "only diagramType or diagram_type classify an answer")
}

func TestNormalizer_CustomQuery(t *testing.T) {
	n := NewNormalizer()
	query := `{items: .drawing.elements, diagramType: "freeform", description: .drawing.title}`
	answer := map[string]any{"drawing": map[string]any{"title": "boat", "elements": []any{}}}

	env, err := n.Normalize(context.Background(), query, answer)
	require.NoError(t, err)
	assert.Equal(t, "boat", env.Description)
	assert.Equal(t, "freeform", env.DiagramType)
}

func TestNormalizer_NonObjectResult(t *testing.T) {
	_, err := NewNormalizer().Normalize(context.Background(), ".[0]", []any{1.0})
	assert.Error(t, err)
}

func TestNormalizer_EnvironmentIsHidden(t *testing.T) {
	t.Setenv("DRAWSYNTH_SECRET", "leak")
	env, err := NewNormalizer().Normalize(context.Background(),
		`{items: [], diagramType: "structured", description: ($ENV.DRAWSYNTH_SECRET // "")}`, map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, env.Description)
}

func TestNormalizer_CachesCompiledQueries(t *testing.T) {
	n := NewNormalizer()
	require.NoError(t, n.Compile(DefaultEnvelopeQuery))
	require.NoError(t, n.Compile(DefaultEnvelopeQuery))
	assert.Len(t, n.cache, 1)
}
