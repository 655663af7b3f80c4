// Package feedback turns validation issues into correction instructions for
// the next synthesis attempt.
package feedback

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/rendis/drawsynth/internal/validation"
	"github.com/rendis/drawsynth/pkg/schema"
)

const header = "The previous attempt has these problems. Fix all of them:"

// instructions maps each issue type to its instruction template.
var instructions = map[schema.IssueType]string{
	schema.IssueOverlap: `Separate {{.Subject}}: leave at least {{num .Limits.MinSpacing}}px between their edges.`,

	schema.IssueOffCanvas: `Move {{.Subject}} inside the canvas: every shape must stay within ` +
		`x 0..{{num .Limits.CanvasWidth}} and y 0..{{num .Limits.CanvasHeight}}.`,

	schema.IssueDisconnected: `{{.Issue.Message}}. Move arrow endpoints to within ` +
		`{{num .Limits.ConnectionThreshold}}px of a shape edge, or connect shapes with fromLabel and toLabel.`,

	schema.IssueSpacing: `{{.Issue.Message}}. Use consistent gaps between shapes in the same row or column.`,

	schema.IssueAlignment: `{{.Issue.Message}}.`,
}

var templates = func() map[schema.IssueType]*template.Template {
	funcs := template.FuncMap{"num": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }}
	out := make(map[schema.IssueType]*template.Template, len(instructions))
	for t, text := range instructions {
		out[t] = template.Must(template.New(string(t)).Funcs(funcs).Parse(text))
	}
	return out
}()

// Limits are the numeric bounds quoted in instructions.
type Limits struct {
	MinSpacing          float64
	ConnectionThreshold float64
	CanvasWidth         float64
	CanvasHeight        float64
}

// Formatter renders issues as prompt text. It is stateless and safe for
// concurrent use.
type Formatter struct {
	limits Limits
}

// NewFormatter quotes the limits of the given validator configuration.
func NewFormatter(cfg validation.Config) *Formatter {
	return &Formatter{limits: Limits{
		MinSpacing:          cfg.MinSpacing,
		ConnectionThreshold: cfg.ConnectionThreshold,
		CanvasWidth:         cfg.CanvasWidth,
		CanvasHeight:        cfg.CanvasHeight,
	}}
}

type instructionData struct {
	Issue   schema.ValidationIssue
	Subject string
	Limits  Limits
}

// Format returns one instruction line per issue, errors first. An empty issue
// list yields "".
func (f *Formatter) Format(issues []schema.ValidationIssue) string {
	if len(issues) == 0 {
		return ""
	}

	ordered := make([]schema.ValidationIssue, len(issues))
	copy(ordered, issues)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Severity == schema.SeverityError && ordered[j].Severity != schema.SeverityError
	})

	var b strings.Builder
	b.WriteString(header)
	for _, issue := range ordered {
		b.WriteString("\n- ")
		b.WriteString(f.instruction(issue))
	}
	return b.String()
}

func (f *Formatter) instruction(issue schema.ValidationIssue) string {
	tmpl, ok := templates[issue.Type]
	if !ok {
		return issue.Message
	}
	var b strings.Builder
	data := instructionData{Issue: issue, Subject: subject(issue), Limits: f.limits}
	if err := tmpl.Execute(&b, data); err != nil {
		return issue.Message
	}
	return b.String()
}

// subject names the shapes an issue is about.
func subject(issue schema.ValidationIssue) string {
	if names, ok := issue.Details["shapes"].([]string); ok {
		return strings.Join(names, " and ")
	}
	if s, ok := issue.Details["shape"].(string); ok {
		return s
	}
	return "the shapes involved"
}

// Refinement builds the feedback block for the next attempt: the rejected
// primitive set followed by the instructions.
func (f *Formatter) Refinement(previous []schema.Primitive, issues []schema.ValidationIssue) (string, error) {
	text := f.Format(issues)
	if text == "" {
		return "", nil
	}
	data, err := json.MarshalIndent(schema.Primitives(previous), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal previous attempt: %w", err)
	}
	return "Previous attempt:\n```json\n" + string(data) + "\n```\n\n" + text, nil
}
