// Package fallback inserts px fallback declarations in front of declarations
// using rem units.
//
// Root font size is discovered while walking the stylesheet: html rules
// declaring font or font-size change the size used for every conversion that
// follows them in source order. There is no lookahead, a root size declared
// after a rule does not affect that rule.
package fallback

import (
	"go.uber.org/zap"

	"remfallback/css"
)

// Stats describes a single stylesheet processing run.
type Stats struct {
	RootSize    float64 // root size in effect at the end of the run
	Conversions int     // number of rem tokens converted
}

// Converter rewrites parsed stylesheets in place.
type Converter struct {
	log *zap.Logger
}

// NewConverter creates converter.
func NewConverter(log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{log: log.Named("fallback")}
}

// run holds mutable state of a single pass over a stylesheet.
type run struct {
	log         *zap.Logger
	rootSize    float64
	conversions int
}

// Process walks stylesheet top to bottom once, discovering root size and
// inserting fallbacks into style rules, including rules directly inside
// @media blocks. Other items are left untouched.
func (c *Converter) Process(sheet *css.Stylesheet) Stats {
	r := &run{log: c.log, rootSize: DefaultRootSize}
	if sheet != nil {
		r.walk(sheet.Items)
	}
	return Stats{RootSize: r.rootSize, Conversions: r.conversions}
}

func (r *run) walk(items []css.Item) {
	for _, item := range items {
		switch {
		case item.Rule != nil:
			r.visitRule(item.Rule)
		case item.Media != nil:
			for _, nested := range item.Media.Items {
				if nested.Rule != nil {
					r.visitRule(nested.Rule)
				}
			}
		}
	}
}

// visitRule scans for root size first, so an html rule using rem converts
// with the size it declares itself.
func (r *run) visitRule(rule *css.Rule) {
	r.scanRoot(rule)
	rule.Declarations = r.insertFallbacks(rule.Declarations)
}
