package css

import (
	"fmt"
	"io"
	"strings"
)

// Declaration is a single entry of a declaration list. Comments found between
// declarations are kept in place as entries with non-empty Comment.
type Declaration struct {
	Property string // Property name as written in source
	Value    string // Value text, whitespace runs collapsed, "!important" included
	Comment  string // Raw comment text (including /* */) for comment entries
}

// IsComment returns true if this entry is a comment rather than a declaration.
func (d Declaration) IsComment() bool {
	return d.Comment != ""
}

// Rule represents a style rule (selector list + declarations).
type Rule struct {
	Selectors    []string      // Selector strings in source order
	Declarations []Declaration // Declarations in source order
}

// GetDeclaration returns the last declaration for a property, if present.
func (r Rule) GetDeclaration(property string) (Declaration, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if d := r.Declarations[i]; !d.IsComment() && d.Property == property {
			return d, true
		}
	}
	return Declaration{}, false
}

// MediaBlock represents a @media block with its condition and nested items.
type MediaBlock struct {
	Query string
	Items []Item
}

// AtRule is any at-rule other than @media. It is kept for output only.
type AtRule struct {
	Name         string        // Name including '@', e.g. "@font-face"
	Prelude      string        // Everything between the name and the block or ';'
	Block        bool          // false for statements like @import
	Declarations []Declaration // Declarations inside the block
	Items        []Item        // Nested rules inside the block
	Raw          string        // Block content kept as tokens when it is neither rules nor declarations
}

// Item is a single entry of a stylesheet or of a block.
// Exactly one of Rule, Media, AtRule, or Comment is non-nil.
type Item struct {
	Rule    *Rule
	Media   *MediaBlock
	AtRule  *AtRule
	Comment *string
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items []Item // All top-level items in source order
}

// Rules returns all top-level style rules in source order.
func (s *Stylesheet) Rules() []*Rule {
	var rules []*Rule
	for _, item := range s.Items {
		if item.Rule != nil {
			rules = append(rules, item.Rule)
		}
	}
	return rules
}

// ParseError is returned when source text cannot be turned into a stylesheet.
type ParseError struct {
	Source  string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Source, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

const indentUnit = "  "

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Items are separated by a blank line, declarations keep their order.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writeItems(cw, s.Items, 0)
	if cw.err == nil && len(s.Items) > 0 {
		cw.print("\n")
	}
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// countingWriter remembers the first error, so writers below do not have to
// check after every fragment.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) print(parts ...string) {
	for _, p := range parts {
		if cw.err != nil {
			return
		}
		n, err := io.WriteString(cw.w, p)
		cw.n += int64(n)
		cw.err = err
	}
}

func writeItems(cw *countingWriter, items []Item, depth int) {
	for i, item := range items {
		if i > 0 {
			cw.print("\n\n")
		}
		switch {
		case item.Rule != nil:
			writeRule(cw, item.Rule, depth)
		case item.Media != nil:
			writeMediaBlock(cw, item.Media, depth)
		case item.AtRule != nil:
			writeAtRule(cw, item.AtRule, depth)
		case item.Comment != nil:
			cw.print(strings.Repeat(indentUnit, depth), *item.Comment)
		}
	}
}

func writeRule(cw *countingWriter, rule *Rule, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	cw.print(indent, strings.Join(rule.Selectors, ",\n"+indent), " {\n")
	writeDeclarations(cw, rule.Declarations, depth+1)
	cw.print(indent, "}")
}

func writeDeclarations(cw *countingWriter, decls []Declaration, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, d := range decls {
		if d.IsComment() {
			cw.print(indent, d.Comment, "\n")
			continue
		}
		cw.print(indent, d.Property, ": ", d.Value, ";\n")
	}
}

func writeMediaBlock(cw *countingWriter, mb *MediaBlock, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	cw.print(indent, "@media ", mb.Query, " {\n")
	writeItems(cw, mb.Items, depth+1)
	if len(mb.Items) > 0 {
		cw.print("\n")
	}
	cw.print(indent, "}")
}

func writeAtRule(cw *countingWriter, ar *AtRule, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	cw.print(indent, ar.Name)
	if ar.Prelude != "" {
		cw.print(" ", ar.Prelude)
	}
	if !ar.Block {
		cw.print(";")
		return
	}
	cw.print(" {\n")
	if ar.Raw != "" {
		cw.print(indent, indentUnit, ar.Raw, "\n")
	}
	writeDeclarations(cw, ar.Declarations, depth+1)
	if len(ar.Declarations) > 0 && len(ar.Items) > 0 {
		cw.print("\n")
	}
	writeItems(cw, ar.Items, depth+1)
	if len(ar.Items) > 0 {
		cw.print("\n")
	}
	cw.print(indent, "}")
}
