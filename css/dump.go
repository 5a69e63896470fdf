package css

import (
	"remfallback/utils/debug"
)

// Dump returns a readable tree of the stylesheet structure for debug report.
func (s *Stylesheet) Dump() string {
	if s == nil {
		return "<nil Stylesheet>"
	}
	tw := debug.NewTreeWriter()
	tw.Line(0, "Stylesheet: %d items", len(s.Items))
	dumpItems(tw, s.Items, 1)
	return tw.String()
}

func dumpItems(tw *debug.TreeWriter, items []Item, depth int) {
	for i, item := range items {
		switch {
		case item.Rule != nil:
			tw.Line(depth, "Rule[%d] selectors=%q", i, item.Rule.Selectors)
			dumpDeclarations(tw, item.Rule.Declarations, depth+1)
		case item.Media != nil:
			tw.Line(depth, "Media[%d] query=%q items=%d", i, item.Media.Query, len(item.Media.Items))
			dumpItems(tw, item.Media.Items, depth+1)
		case item.AtRule != nil:
			tw.Line(depth, "AtRule[%d] %s prelude=%q block=%t", i, item.AtRule.Name, item.AtRule.Prelude, item.AtRule.Block)
			if item.AtRule.Raw != "" {
				tw.TextBlock(depth+1, "Raw", item.AtRule.Raw)
			}
			dumpDeclarations(tw, item.AtRule.Declarations, depth+1)
			dumpItems(tw, item.AtRule.Items, depth+1)
		case item.Comment != nil:
			tw.TextBlock(depth, "Comment", *item.Comment)
		}
	}
}

func dumpDeclarations(tw *debug.TreeWriter, decls []Declaration, depth int) {
	for _, d := range decls {
		if d.IsComment() {
			tw.TextBlock(depth, "Comment", d.Comment)
			continue
		}
		tw.TextBlock(depth, d.Property, d.Value)
	}
}
