package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/drawsynth/internal/feedback"
	"github.com/rendis/drawsynth/internal/logging"
	"github.com/rendis/drawsynth/internal/render"
	"github.com/rendis/drawsynth/internal/store"
	"github.com/rendis/drawsynth/internal/synth"
	"github.com/rendis/drawsynth/internal/validation"
	"github.com/rendis/drawsynth/pkg/schema"
)

// DefaultMaxAttempts is the refine budget of a run.
const DefaultMaxAttempts = 3

// OrchestratorConfig holds configuration for the orchestrator.
type OrchestratorConfig struct {
	MaxAttempts    int                   // refine cycles before the best-effort render
	Retry          *RetryPolicy          // transient synthesis retries (nil = defaults)
	CircuitBreaker *CircuitBreakerConfig // provider protection (nil = defaults)
	Provider       string                // provider name reported by the breaker
	Store          store.Store           // optional; persists runs and their journal
	Journal        EventAppender
	Logger         *slog.Logger
}

// Orchestrator drives one request through generate -> validate -> refine -> render.
// It holds no per-run state and may serve concurrent runs.
type Orchestrator struct {
	synth     synth.Synthesizer
	validator *validation.GeometryValidator
	formatter *feedback.Formatter
	renderer  *render.Renderer
	fsm       *StateMachine
	breaker   *CircuitBreaker
	store     store.Store
	journal   EventAppender
	retry     RetryPolicy
	max       int
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. Journal defaults to Store when only
// Store is set.
func NewOrchestrator(s synth.Synthesizer, v *validation.GeometryValidator, r *render.Renderer, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	retry := DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	journal := cfg.Journal
	if journal == nil && cfg.Store != nil {
		journal = cfg.Store
	}
	cbConfig := DefaultCircuitBreakerConfig()
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	if cfg.Provider == "" {
		cfg.Provider = "synthesizer"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		synth:     s,
		validator: v,
		formatter: feedback.NewFormatter(v.Config()),
		renderer:  r,
		fsm:       NewStateMachine(journal),
		breaker:   NewCircuitBreaker(cfg.Provider, cbConfig),
		store:     cfg.Store,
		journal:   journal,
		retry:     retry,
		max:       cfg.MaxAttempts,
		logger:    logger,
	}
}

// StateMachine exposes the run state machine for hook registration.
func (o *Orchestrator) StateMachine() *StateMachine { return o.fsm }

// CircuitBreaker exposes the provider circuit breaker for diagnostics.
func (o *Orchestrator) CircuitBreaker() *CircuitBreaker { return o.breaker }

// MaxAttempts returns the configured refine budget.
func (o *Orchestrator) MaxAttempts() int { return o.max }

// run is the per-request state object.
type run struct {
	id       string
	req      schema.Request
	attempts int

	items       []schema.Primitive
	diagramType schema.DiagramType
	description string
	reply       string
	validation  *schema.ValidationResult
	feedback    string
	prior       []schema.Primitive

	trace []schema.RunState
}

// Run processes one request. It never returns a Go error: fatal problems are
// reported as a Result with Success=false.
func (o *Orchestrator) Run(ctx context.Context, req schema.Request) *schema.Result {
	st := &run{id: uuid.NewString(), req: req, diagramType: schema.DiagramStructured}
	ctx = logging.WithRunID(ctx, st.id)
	log := o.logger

	o.startRun(ctx, st)
	o.tolerate(ctx, o.fsm.Enter(ctx, st.id))

	state := InitialState
	var out *render.Output
	for {
		st.trace = append(st.trace, state)
		sctx := logging.WithAttempt(logging.WithState(ctx, state), st.attempts)

		switch state {
		case schema.StateGenerate:
			if err := o.generate(sctx, st); err != nil {
				return o.fail(sctx, st, err)
			}

		case schema.StateValidate:
			st.validation = o.validator.Validate(st.items, st.diagramType)
			log.DebugContext(sctx, "validated",
				"valid", st.validation.Valid,
				"errors", len(st.validation.Errors()),
				"warnings", len(st.validation.Warnings()))

		case schema.StateRefine:
			fb, err := o.formatter.Refinement(st.items, st.validation.Issues)
			if err != nil {
				return o.fail(sctx, st, err)
			}
			st.feedback = fb
			st.prior = st.items
			st.attempts++

		case schema.StateRender:
			rendered, err := o.renderer.Render(st.items)
			if err != nil {
				return o.fail(sctx, st, err)
			}
			out = rendered
		}

		if IsTerminal(state) {
			return o.complete(sctx, st, out)
		}

		next := NextState(state, st.diagramType, st.validation, st.attempts, o.max)
		if err := o.fsm.Transition(sctx, st.id, state, next, st.attempts); err != nil {
			if !isStoreError(err) {
				return o.fail(sctx, st, err)
			}
			o.tolerate(sctx, err)
		}
		state = next
	}
}

// generate asks the synthesizer for a candidate. Malformed or empty output
// degrades to an empty freeform result and still consumes an attempt.
func (o *Orchestrator) generate(ctx context.Context, st *run) error {
	st.validation = nil
	syn, err := o.synthesize(ctx, st)
	if err != nil {
		if !isMalformed(err) {
			return err
		}
		o.degrade(ctx, st, err)
		return nil
	}
	if len(syn.Items) == 0 {
		o.degrade(ctx, st, schema.NewError(schema.ErrCodeMalformedOutput, "synthesizer returned no items"))
		return nil
	}

	st.items = syn.Items
	st.diagramType = syn.DiagramType
	if st.diagramType == "" {
		st.diagramType = schema.DiagramStructured
	}
	st.description = syn.Description
	st.reply = ""
	return nil
}

// synthesize calls the synthesizer, retrying transient failures per the retry policy.
func (o *Orchestrator) synthesize(ctx context.Context, st *run) (*synth.Synthesis, error) {
	req := synth.Request{
		Prompt:        st.req.Prompt,
		CanvasContext: st.req.CanvasContext,
		Feedback:      st.feedback,
		PriorItems:    st.prior,
		PriorImage:    st.req.PriorImage,
	}

	for retry := 0; ; retry++ {
		if err := o.breaker.AllowRequest(); err != nil {
			return nil, err
		}
		syn, err := o.synth.Synthesize(ctx, req)
		if err == nil || isMalformed(err) {
			// The provider answered.
			o.breaker.RecordSuccess()
			return syn, err
		}
		if !IsRetryableError(err) {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || toError(err).Code == schema.ErrCodeCancelled {
				o.breaker.Release()
			} else {
				// A deterministic rejection still proves the provider is reachable.
				o.breaker.RecordSuccess()
			}
			return nil, err
		}
		o.breaker.RecordFailure()
		if retry >= o.retry.MaxRetries {
			if o.retry.MaxRetries == 0 {
				return nil, err
			}
			return nil, schema.NewErrorf(schema.ErrCodeRetryExhausted,
				"synthesis failed after %d retries: %s", retry, toError(err).Message).
				WithCause(err).
				WithDetails(map[string]any{"retries": retry, "cause_code": toError(err).Code})
		}

		delay := ComputeBackoff(o.retry, retry)
		o.logger.WarnContext(ctx, "synthesis failed, retrying",
			"retry", retry+1, "max_retries", o.retry.MaxRetries, "delay", delay, "error", err)
		o.emit(ctx, st, schema.EventSynthesisRetrying, map[string]any{
			"retry": retry + 1,
			"error": err.Error(),
		})
		if werr := WaitForBackoff(ctx, delay); werr != nil {
			return nil, werr
		}
	}
}

func (o *Orchestrator) degrade(ctx context.Context, st *run, err error) {
	o.logger.WarnContext(ctx, "synthesis output unusable", "error", err)
	o.emit(ctx, st, schema.EventSynthesisFailed, errorPayload(toError(err)))

	st.items = nil
	st.diagramType = schema.DiagramFreeform
	st.description = ""
	st.reply = "I couldn't turn that request into shapes, so nothing was drawn. Try rephrasing it or naming the shapes you want."
	st.attempts++
}

func (o *Orchestrator) complete(ctx context.Context, st *run, out *render.Output) *schema.Result {
	res := &schema.Result{
		RunID:       st.id,
		Success:     true,
		Reply:       st.reply,
		Description: st.description,
		DiagramType: st.diagramType,
		Shapes:      out.Shapes,
		Bindings:    out.Bindings,
		Attempts:    st.attempts,
		Trace:       st.trace,
	}
	if st.validation != nil {
		res.Issues = st.validation.Issues
	}
	if res.Reply == "" {
		res.Reply = successReply(st)
	}

	counts := out.Counts()
	o.logger.InfoContext(ctx, "run completed",
		"diagram_type", st.diagramType,
		"shapes", len(out.Shapes),
		"bindings", len(out.Bindings),
		"shape_types", counts)
	o.emit(ctx, st, schema.EventRunCompleted, map[string]any{
		"shapes":      len(out.Shapes),
		"bindings":    len(out.Bindings),
		"shape_types": counts,
	})
	o.finishRun(ctx, st, schema.RunStatusCompleted, res)
	return res
}

func (o *Orchestrator) fail(ctx context.Context, st *run, err error) *schema.Result {
	se := toError(err)
	res := &schema.Result{
		RunID:       st.id,
		Success:     false,
		Error:       se,
		Reply:       "Sorry, the drawing could not be produced: " + se.Message,
		DiagramType: st.diagramType,
		Shapes:      []schema.RenderedShape{},
		Bindings:    []schema.Binding{},
		Attempts:    st.attempts,
		Trace:       st.trace,
	}

	o.logger.ErrorContext(ctx, "run failed", "code", se.Code, "error", se.Message)
	o.emit(ctx, st, schema.EventRunFailed, errorPayload(se))
	o.finishRun(ctx, st, schema.RunStatusFailed, res)
	return res
}

func successReply(st *run) string {
	reply := st.description
	if reply == "" {
		reply = "Here is your diagram."
	}
	if st.validation != nil && !st.validation.Valid {
		reply += fmt.Sprintf(" Some layout problems remain after %d attempts.", st.attempts)
	}
	return reply
}

// --- journal ---

func (o *Orchestrator) startRun(ctx context.Context, st *run) {
	if o.store != nil {
		err := o.store.CreateRun(ctx, &store.Run{
			ID:          st.id,
			Prompt:      st.req.Prompt,
			Status:      schema.RunStatusActive,
			MaxAttempts: o.max,
		})
		o.tolerate(ctx, err)
	}
	o.emit(ctx, st, schema.EventRunStarted, map[string]any{"max_attempts": o.max})
}

func (o *Orchestrator) finishRun(ctx context.Context, st *run, status schema.RunStatus, res *schema.Result) {
	if o.store == nil {
		return
	}
	now := time.Now().UTC()
	update := store.RunUpdate{
		Status:      &status,
		DiagramType: &st.diagramType,
		Attempts:    &st.attempts,
		CompletedAt: &now,
	}
	if res.Success {
		update.Result, _ = json.Marshal(res)
	} else {
		update.Error, _ = json.Marshal(res.Error)
	}
	o.tolerate(ctx, o.store.UpdateRun(ctx, st.id, update))
}

func (o *Orchestrator) emit(ctx context.Context, st *run, eventType string, payload map[string]any) {
	if o.journal == nil {
		return
	}
	event := &store.Event{
		RunID:   st.id,
		Type:    eventType,
		State:   logging.State(ctx),
		Attempt: st.attempts,
	}
	if payload != nil {
		event.Payload, _ = json.Marshal(payload)
	}
	o.tolerate(ctx, o.journal.AppendEvent(ctx, event))
}

// tolerate logs journal failures. The journal is diagnostic and never fails a run.
func (o *Orchestrator) tolerate(ctx context.Context, err error) {
	if err != nil {
		o.logger.WarnContext(ctx, "run journal write failed", "error", err)
	}
}

// --- errors ---

func isMalformed(err error) bool {
	var se *schema.Error
	return errors.As(err, &se) && se.Code == schema.ErrCodeMalformedOutput
}

func isStoreError(err error) bool {
	var se *schema.Error
	return errors.As(err, &se) && se.Code == schema.ErrCodeStore
}

// toError converts any error into the structured form carried by a Result.
func toError(err error) *schema.Error {
	var se *schema.Error
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, context.Canceled):
		return schema.NewError(schema.ErrCodeCancelled, "request was cancelled").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return schema.NewError(schema.ErrCodeSynthesisFailed, "request timed out").WithCause(err)
	default:
		return schema.NewError(schema.ErrCodeSynthesisFailed, err.Error()).WithCause(err)
	}
}

func errorPayload(se *schema.Error) map[string]any {
	p := map[string]any{"code": se.Code, "message": se.Message}
	if len(se.Details) > 0 {
		p["details"] = se.Details
	}
	return p
}
