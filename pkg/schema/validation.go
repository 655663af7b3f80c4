package schema

import "fmt"

// ValidationSeverity indicates whether an issue is an error or warning.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// IssueType classifies a geometry problem.
type IssueType string

const (
	IssueOverlap      IssueType = "overlap"
	IssueDisconnected IssueType = "disconnected"
	IssueOffCanvas    IssueType = "off-canvas"
	IssueSpacing      IssueType = "spacing"
	IssueAlignment    IssueType = "alignment"
)

// ValidationIssue is a single geometry problem. Indices point into the primitive
// list that was validated.
type ValidationIssue struct {
	Type     IssueType          `json:"type"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
	Indices  []int              `json:"indices,omitempty"`
	Details  map[string]any     `json:"details,omitempty"`
}

// ValidationResult aggregates the issues of one validation pass.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Issues      []ValidationIssue `json:"issues"`
	DiagramType DiagramType       `json:"diagramType"`
}

// NewValidationResult returns an empty, valid result for the given diagram type.
func NewValidationResult(dt DiagramType) *ValidationResult {
	return &ValidationResult{Valid: true, Issues: []ValidationIssue{}, DiagramType: dt}
}

// Add appends an issue and keeps Valid in sync: any error-severity issue invalidates.
func (r *ValidationResult) Add(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.Valid = false
	}
}

// AddError appends an error-severity issue.
func (r *ValidationResult) AddError(t IssueType, message string, indices ...int) {
	r.Add(ValidationIssue{Type: t, Message: message, Severity: SeverityError, Indices: indices})
}

// AddWarning appends a warning-severity issue.
func (r *ValidationResult) AddWarning(t IssueType, message string, indices ...int) {
	r.Add(ValidationIssue{Type: t, Message: message, Severity: SeverityWarning, Indices: indices})
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for _, issue := range other.Issues {
		r.Add(issue)
	}
}

// Errors returns the error-severity issues.
func (r *ValidationResult) Errors() []ValidationIssue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *ValidationResult) Warnings() []ValidationIssue {
	return r.filter(SeverityWarning)
}

func (r *ValidationResult) filter(sev ValidationSeverity) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// ToError converts the result to an Error if invalid, nil if valid.
func (r *ValidationResult) ToError() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}

	msg := errs[0].Message
	if len(errs) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(errs))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"error_count":   len(errs),
			"warning_count": len(r.Issues) - len(errs),
			"issues":        r.Issues,
		})
}
