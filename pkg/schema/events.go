package schema

// Event type constants for the run journal.
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"

	EventGenerateStarted = "generate_started"
	EventValidateStarted = "validate_started"
	EventRefineStarted   = "refine_started"
	EventRenderStarted   = "render_started"

	EventSynthesisFailed   = "synthesis_failed"
	EventSynthesisRetrying = "synthesis_retrying"
)

// RunState is a state of the generate -> validate -> refine -> render machine.
type RunState string

const (
	StateGenerate RunState = "generate"
	StateValidate RunState = "validate"
	StateRefine   RunState = "refine"
	StateRender   RunState = "render"
)

// RunStatus is the lifecycle status of a persisted run.
type RunStatus string

const (
	RunStatusActive    RunStatus = "active"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)
