package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/drawsynth/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func seedRun(t *testing.T, s *LibSQLStore) *Run {
	t.Helper()
	run := &Run{
		ID:          uuid.New().String(),
		Prompt:      "Start, Decision, End flowchart",
		MaxAttempts: 3,
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.DB().QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestLoadMigrations(t *testing.T) {
	ms, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "initial_schema", ms[0].Name)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header only;\nCREATE TABLE a (x INT);\n\n-- note\nCREATE INDEX i ON a(x);")
	assert.Len(t, stmts, 2)
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := seedRun(t, s)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "Start, Decision, End flowchart", got.Prompt)
	assert.Equal(t, schema.RunStatusActive, got.Status, "status defaults to active")
	assert.Equal(t, 3, got.MaxAttempts)
	assert.Equal(t, 0, got.Attempts)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.Result)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	se, ok := err.(*schema.Error)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeNotFound, se.Code)
}

func TestUpdateRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := seedRun(t, s)

	completed := schema.RunStatusCompleted
	dt := schema.DiagramStructured
	attempts := 1
	now := time.Now().UTC()
	require.NoError(t, s.UpdateRun(ctx, run.ID, RunUpdate{
		Status:      &completed,
		DiagramType: &dt,
		Attempts:    &attempts,
		Result:      json.RawMessage(`{"success":true}`),
		CompletedAt: &now,
	}))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.RunStatusCompleted, got.Status)
	assert.Equal(t, schema.DiagramStructured, got.DiagramType)
	assert.Equal(t, 1, got.Attempts)
	assert.JSONEq(t, `{"success":true}`, string(got.Result))
	assert.NotNil(t, got.CompletedAt)
}

func TestUpdateRun_NoFieldsIsNoop(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.UpdateRun(context.Background(), "missing", RunUpdate{}))
}

func TestUpdateRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	failed := schema.RunStatusFailed
	err := s.UpdateRun(context.Background(), "missing", RunUpdate{Status: &failed})
	require.Error(t, err)
	se, ok := err.(*schema.Error)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeNotFound, se.Code)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, seedRun(t, s).ID)
	}
	failed := schema.RunStatusFailed
	require.NoError(t, s.UpdateRun(ctx, ids[0], RunUpdate{Status: &failed}))

	list, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	active := schema.RunStatusActive
	list, err = s.ListRuns(ctx, RunFilter{Status: &active})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.ListRuns(ctx, RunFilter{Status: &failed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[0], list[0].ID)
}

func TestAppendAndGetEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := seedRun(t, s)

	e1 := &Event{RunID: run.ID, Type: schema.EventRunStarted}
	e2 := &Event{RunID: run.ID, Type: schema.EventGenerateStarted, State: schema.StateGenerate,
		Payload: json.RawMessage(`{"prompt":"x"}`)}
	require.NoError(t, s.AppendEvent(ctx, e1))
	require.NoError(t, s.AppendEvent(ctx, e2))
	assert.Equal(t, int64(1), e1.Sequence)
	assert.Equal(t, int64(2), e2.Sequence)
	assert.False(t, e2.Timestamp.IsZero())

	events, err := s.GetEvents(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, schema.EventRunStarted, events[0].Type)
	assert.Equal(t, schema.RunState(""), events[0].State)
	assert.Equal(t, schema.StateGenerate, events[1].State)
	assert.JSONEq(t, `{"prompt":"x"}`, string(events[1].Payload))

	since, err := s.GetEvents(ctx, run.ID, 1)
	require.NoError(t, err)
	assert.Len(t, since, 1)
}
