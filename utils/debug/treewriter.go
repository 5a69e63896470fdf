// Package debug contains helpers producing human readable dumps for debug
// reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indentUnit = "  "

// TreeWriter accumulates indented lines. Copies share the same buffer.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	tw.w.WriteString(strings.Repeat(indentUnit, max(depth, 0)))
}

// Line writes formatted line at requested depth.
func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes "label: value" line, non-empty value is quoted so
// whitespace and control characters stay visible.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
