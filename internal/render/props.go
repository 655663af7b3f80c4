package render

import "strings"

// Canvas style defaults.
const (
	DefaultColor     = "black"
	DefaultDash      = "draw"
	DefaultFont      = "draw"
	DefaultSize      = "m"
	DefaultArrowhead = "arrow"
	NoArrowhead      = "none"

	// DefaultArrowLength is the drop of an arrow end whose target did not resolve.
	DefaultArrowLength = 100.0
)

var palette = map[string]bool{
	"black": true, "grey": true, "light-violet": true, "violet": true, "blue": true,
	"light-blue": true, "yellow": true, "orange": true, "green": true, "light-green": true,
	"light-red": true, "red": true, "white": true,
}

var colorAliases = map[string]string{
	"gray":   "grey",
	"purple": "violet",
	"pink":   "light-red",
	"cyan":   "light-blue",
	"lime":   "light-green",
}

// canvasColor maps a free-form color name onto the canvas palette.
func canvasColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if alias, ok := colorAliases[c]; ok {
		return alias
	}
	if palette[c] {
		return c
	}
	return DefaultColor
}

// strokeSize buckets a stroke width into the canvas size scale.
func strokeSize(w float64) string {
	switch {
	case w <= 0:
		return DefaultSize
	case w <= 1.5:
		return "s"
	case w <= 3:
		return "m"
	case w <= 5:
		return "l"
	default:
		return "xl"
	}
}

// fontSize buckets a font size into the canvas size scale.
func fontSize(px float64) string {
	switch {
	case px <= 0:
		return DefaultSize
	case px <= 16:
		return "s"
	case px <= 24:
		return "m"
	case px <= 32:
		return "l"
	default:
		return "xl"
	}
}

func fontFamily(f string) string {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "sans", "sans-serif", "arial", "helvetica":
		return "sans"
	case "serif", "times":
		return "serif"
	case "mono", "monospace", "courier":
		return "mono"
	default:
		return DefaultFont
	}
}

// richText wraps plain text in the canvas rich-text document: one paragraph
// per line, empty lines as empty paragraphs.
func richText(text string) map[string]any {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	paragraphs := make([]any, 0, len(lines))
	for _, line := range lines {
		p := map[string]any{"type": "paragraph"}
		if line != "" {
			p["content"] = []any{map[string]any{"type": "text", "text": line}}
		}
		paragraphs = append(paragraphs, p)
	}
	return map[string]any{"type": "doc", "content": paragraphs}
}

const indexDigits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// indexKey returns the i-th (0-based) fractional ordering key:
// a1 ... az, then b10 ... bzz, then c100 and so on.
func indexKey(i int) string {
	base := len(indexDigits)
	n := i + 1
	width, limit := 1, base
	for n >= limit {
		width++
		limit *= base
	}
	buf := make([]byte, width+1)
	buf[0] = byte('a' + width - 1)
	for pos := width; pos > 0; pos-- {
		buf[pos] = indexDigits[n%base]
		n /= base
	}
	return string(buf)
}
