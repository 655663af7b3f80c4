package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/drawsynth/internal/engine"
	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/internal/store"
	"github.com/rendis/drawsynth/internal/synth"
	"github.com/rendis/drawsynth/internal/validation"
	"github.com/rendis/drawsynth/pkg/schema"
)

// --- Mock Store ---

type mockStore struct {
	store.Store // embed for unimplemented methods

	runs   []*store.Run
	events []*store.Event
}

func (m *mockStore) GetRun(_ context.Context, id string) (*store.Run, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, schema.NewError(schema.ErrCodeNotFound, "run not found")
}

func (m *mockStore) ListRuns(_ context.Context, filter store.RunFilter) ([]*store.Run, error) {
	result := make([]*store.Run, 0)
	for _, r := range m.runs {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		result = append(result, r)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockStore) GetEvents(_ context.Context, runID string, _ int64) ([]*store.Event, error) {
	result := make([]*store.Event, 0)
	for _, e := range m.events {
		if e.RunID == runID {
			result = append(result, e)
		}
	}
	return result, nil
}

// --- Mock Runner ---

type mockRunner struct {
	result *schema.Result
	got    []schema.Request
}

func (m *mockRunner) Run(_ context.Context, req schema.Request) *schema.Result {
	m.got = append(m.got, req)
	return m.result
}

// --- Helpers ---

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}

func newTestServer(t *testing.T, deps DrawServerDeps) *DrawServer {
	t.Helper()
	if deps.Schema == nil {
		v, err := validation.NewPrimitiveSchemaValidator()
		require.NoError(t, err)
		deps.Schema = v
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewDrawServer(deps)
}

func rectItem(label string, x, y float64) map[string]any {
	return map[string]any{"shape": "rectangle", "x": x, "y": y, "w": 150.0, "h": 80.0, "label": label}
}

func flowItems() []any {
	return []any{
		rectItem("Start", 500, 100),
		rectItem("End", 500, 260),
		map[string]any{"shape": "arrow", "fromLabel": "Start", "toLabel": "End"},
	}
}

// --- draw.generate ---

func TestGenerateTool(t *testing.T) {
	runner := &mockRunner{result: &schema.Result{
		RunID:       "run-1",
		Success:     true,
		Reply:       "Here is your diagram.",
		DiagramType: schema.DiagramStructured,
		Shapes:      []schema.RenderedShape{},
		Bindings:    []schema.Binding{},
	}}
	s := newTestServer(t, DrawServerDeps{Runner: runner})

	req := buildRequest("draw.generate", map[string]any{
		"prompt":         "a flowchart",
		"canvas_context": "empty canvas",
		"image":          base64.StdEncoding.EncodeToString([]byte("preview")),
	})
	result, err := s.handleGenerate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	require.Len(t, runner.got, 1)
	assert.Equal(t, "a flowchart", runner.got[0].Prompt)
	assert.Equal(t, "empty canvas", runner.got[0].CanvasContext)
	assert.Equal(t, []byte("preview"), runner.got[0].PriorImage)

	var out map[string]any
	unmarshalResult(t, result, &out)
	assert.Equal(t, "run-1", out["runId"])
	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "outline")
}

func TestGenerateToolWithOrchestratorAndOutline(t *testing.T) {
	s := synth.NewScripted(synth.Respond(schema.DiagramStructured,
		&schema.GeoShape{Shape: schema.ShapeRectangle, X: 500, Y: 100, W: 150, H: 80, Label: "Start"},
		&schema.GeoShape{Shape: schema.ShapeDiamond, X: 500, Y: 260, W: 150, H: 80, Label: "Check"},
		&schema.Arrow{FromLabel: "Start", ToLabel: "Check"},
	))
	orch := engine.NewOrchestrator(s,
		validation.NewGeometryValidator(validation.Config{}),
		render.New(),
		engine.OrchestratorConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	srv := newTestServer(t, DrawServerDeps{Runner: orch})

	result, err := srv.handleGenerate(context.Background(), buildRequest("draw.generate", map[string]any{
		"prompt":  "start then check",
		"outline": true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out struct {
		Success  bool                   `json:"success"`
		Shapes   []schema.RenderedShape `json:"shapes"`
		Bindings []schema.Binding       `json:"bindings"`
		Outline  string                 `json:"outline"`
	}
	unmarshalResult(t, result, &out)
	assert.True(t, out.Success)
	assert.Len(t, out.Shapes, 3)
	assert.Len(t, out.Bindings, 2)
	assert.Contains(t, out.Outline, `n1["Start"]`)
	assert.Contains(t, out.Outline, `n2{"Check"}`)
	assert.Contains(t, out.Outline, "n1 --> n2")
}

func TestGenerateToolFailedRunIsToolError(t *testing.T) {
	runner := &mockRunner{result: &schema.Result{
		Success: false,
		Error:   schema.NewError(schema.ErrCodeSynthesisFailed, "connection reset"),
		Reply:   "Sorry, the drawing could not be produced: connection reset",
	}}
	s := newTestServer(t, DrawServerDeps{Runner: runner})

	result, err := s.handleGenerate(context.Background(), buildRequest("draw.generate", map[string]any{"prompt": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "SYNTHESIS_FAILED")
}

func TestGenerateToolBadInput(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{Runner: &mockRunner{}})

	result, err := s.handleGenerate(context.Background(), buildRequest("draw.generate", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "missing prompt")

	result, err = s.handleGenerate(context.Background(), buildRequest("draw.generate", map[string]any{
		"prompt": "x",
		"image":  "%%% not base64",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "base64")
}

func TestGenerateToolWithoutRunner(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})
	result, err := s.handleGenerate(context.Background(), buildRequest("draw.generate", map[string]any{"prompt": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- draw.validate ---

func TestValidateToolClean(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})

	result, err := s.handleValidate(context.Background(), buildRequest("draw.validate", map[string]any{
		"items": flowItems(),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out map[string]any
	unmarshalResult(t, result, &out)
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, "structured", out["diagramType"])
}

func TestValidateToolOverlap(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})

	result, err := s.handleValidate(context.Background(), buildRequest("draw.validate", map[string]any{
		"items": []any{
			rectItem("Start", 500, 100),
			rectItem("Decision", 500, 150),
		},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Valid    bool                     `json:"valid"`
		Issues   []schema.ValidationIssue `json:"issues"`
		Feedback string                   `json:"feedback"`
	}
	unmarshalResult(t, result, &out)
	assert.False(t, out.Valid)
	assert.NotEmpty(t, out.Issues)
	assert.Contains(t, out.Feedback, `Separate "Decision" and "Start"`)
}

func TestValidateToolFreeformSkipsChecks(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})

	result, err := s.handleValidate(context.Background(), buildRequest("draw.validate", map[string]any{
		"items":        []any{rectItem("A", 500, 100), rectItem("B", 500, 110)},
		"diagram_type": "freeform",
	}))
	require.NoError(t, err)

	var out map[string]any
	unmarshalResult(t, result, &out)
	assert.Equal(t, true, out["valid"])
}

func TestValidateToolRejectsBadItems(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing items", map[string]any{}},
		{"unknown shape", map[string]any{"items": []any{map[string]any{"shape": "hologram", "x": 1.0, "y": 1.0}}}},
		{"not a list", map[string]any{"items": "rectangle"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleValidate(context.Background(), buildRequest("draw.validate", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

// --- draw.render ---

func TestRenderToolShapes(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})

	result, err := s.handleRender(context.Background(), buildRequest("draw.render", map[string]any{
		"items": flowItems(),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var out render.Output
	unmarshalResult(t, result, &out)
	assert.Equal(t, map[string]int{schema.ShapeTypeGeo: 2, schema.ShapeTypeArrow: 1}, out.Counts())
	assert.Len(t, out.Bindings, 2)
}

func TestRenderToolOutlines(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})

	result, err := s.handleRender(context.Background(), buildRequest("draw.render", map[string]any{
		"items":  flowItems(),
		"format": "mermaid",
	}))
	require.NoError(t, err)
	text := extractText(t, result)
	assert.Contains(t, text, "graph TD")
	assert.Contains(t, text, "n1 --> n2")

	result, err = s.handleRender(context.Background(), buildRequest("draw.render", map[string]any{
		"items":  flowItems(),
		"format": "ascii",
	}))
	require.NoError(t, err)
	assert.Contains(t, extractText(t, result), "Start ─→ End")
}

func TestRenderToolImage(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})

	result, err := s.handleRender(context.Background(), buildRequest("draw.render", map[string]any{
		"items":  flowItems(),
		"format": "image",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var found bool
	for _, c := range result.Content {
		if img, ok := c.(mcp.ImageContent); ok {
			found = true
			assert.Equal(t, "image/png", img.MIMEType)
			data, decErr := base64.StdEncoding.DecodeString(img.Data)
			require.NoError(t, decErr)
			assert.Equal(t, byte(0x89), data[0])
		}
	}
	assert.True(t, found, "image content present")
}

func TestRenderToolUnknownFormat(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})
	result, err := s.handleRender(context.Background(), buildRequest("draw.render", map[string]any{
		"items":  flowItems(),
		"format": "svg",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- draw.runs ---

func TestRunsToolList(t *testing.T) {
	ms := &mockStore{runs: []*store.Run{
		{ID: "r1", Status: schema.RunStatusCompleted},
		{ID: "r2", Status: schema.RunStatusFailed},
		{ID: "r3", Status: schema.RunStatusCompleted},
	}}
	s := newTestServer(t, DrawServerDeps{Store: ms})

	result, err := s.handleRuns(context.Background(), buildRequest("draw.runs", map[string]any{
		"status": "completed",
		"limit":  1.0,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Runs  []*store.Run `json:"runs"`
		Count int          `json:"count"`
	}
	unmarshalResult(t, result, &out)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "r1", out.Runs[0].ID)
}

func TestRunsToolSingleRun(t *testing.T) {
	ms := &mockStore{
		runs: []*store.Run{{ID: "r1", Status: schema.RunStatusCompleted}},
		events: []*store.Event{
			{RunID: "r1", Type: schema.EventRunStarted, Sequence: 1},
			{RunID: "r1", Type: schema.EventRunCompleted, Sequence: 2},
			{RunID: "r2", Type: schema.EventRunStarted, Sequence: 1},
		},
	}
	s := newTestServer(t, DrawServerDeps{Store: ms})

	result, err := s.handleRuns(context.Background(), buildRequest("draw.runs", map[string]any{"run_id": "r1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Run    *store.Run     `json:"run"`
		Events []*store.Event `json:"events"`
		Replay *store.Replay  `json:"replay"`
	}
	unmarshalResult(t, result, &out)
	assert.Equal(t, "r1", out.Run.ID)
	assert.Len(t, out.Events, 2)
	require.NotNil(t, out.Replay)
	assert.Equal(t, schema.RunStatusCompleted, out.Replay.Status)

	result, err = s.handleRuns(context.Background(), buildRequest("draw.runs", map[string]any{"run_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRunsToolBrokenJournal(t *testing.T) {
	ms := &mockStore{
		runs: []*store.Run{{ID: "r1", Status: schema.RunStatusCompleted}},
		events: []*store.Event{
			{RunID: "r1", Type: schema.EventRunStarted, Sequence: 1},
			{RunID: "r1", Type: schema.EventRunCompleted, Sequence: 3},
		},
	}
	s := newTestServer(t, DrawServerDeps{Store: ms})

	result, err := s.handleRuns(context.Background(), buildRequest("draw.runs", map[string]any{"run_id": "r1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "sequence gap")
}

func TestRunsToolWithoutStore(t *testing.T) {
	s := newTestServer(t, DrawServerDeps{})
	result, err := s.handleRuns(context.Background(), buildRequest("draw.runs", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "disabled")
}
