package schema

// Request is a single drawing request entering the pipeline.
type Request struct {
	Prompt        string `json:"prompt"`
	CanvasContext string `json:"canvasContext,omitempty"`
	// PriorImage is an opaque preview of the current canvas, passed through to the synthesizer.
	PriorImage []byte `json:"-"`
}

// Result is the outcome of one orchestrated run. On failure Success is false and
// Error/Reply explain why; shapes are empty.
type Result struct {
	RunID       string            `json:"runId,omitempty"`
	Success     bool              `json:"success"`
	Error       *Error            `json:"error,omitempty"`
	Reply       string            `json:"reply"`
	Description string            `json:"description,omitempty"`
	DiagramType DiagramType       `json:"diagramType,omitempty"`
	Shapes      []RenderedShape   `json:"shapes"`
	Bindings    []Binding         `json:"bindings"`
	Issues      []ValidationIssue `json:"issues,omitempty"`
	Attempts    int               `json:"attempts"`
	Trace       []RunState        `json:"trace,omitempty"`
}
