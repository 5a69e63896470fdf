package fallback

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"remfallback/css"
)

// html alone or as the last compound of a descendant selector
var rootSelector = regexp.MustCompile(`^html$|\w*\s+html$`)

// IsRootSelector reports whether selector addresses the document root
// element, e.g. "html" or ".no-js html".
func IsRootSelector(selector string) bool {
	return rootSelector.MatchString(selector)
}

// rootFontSize extracts size text from font or font-size declaration.
// For font shorthand only the form with line-height ("12px/1.5 serif") is
// recognized, the size is everything before the first '/'. Values are taken
// as is, "bold 12px" or "12px !important" resolve to NaN.
func rootFontSize(d css.Declaration) (string, bool) {
	switch strings.ToLower(d.Property) {
	case "font":
		before, _, found := strings.Cut(d.Value, "/")
		if !found {
			return "", false
		}
		return strings.TrimSpace(before), true
	case "font-size":
		return d.Value, d.Value != ""
	}
	return "", false
}

// scanRoot updates root size from html rules. Every matching declaration
// overwrites previous value, so the last one in the rule wins.
func (r *run) scanRoot(rule *css.Rule) {
	for _, sel := range rule.Selectors {
		if !IsRootSelector(sel) {
			continue
		}
		for _, d := range rule.Declarations {
			if d.IsComment() {
				continue
			}
			fragment, ok := rootFontSize(d)
			if !ok {
				continue
			}
			size, ok := ResolveLength(fragment, DefaultRootSize)
			if !ok {
				r.log.Debug("Ignoring root font size with unsupported unit",
					zap.String("selector", sel), zap.String("property", d.Property), zap.String("value", d.Value))
				continue
			}
			r.log.Debug("Root font size found",
				zap.String("selector", sel), zap.String("property", d.Property), zap.Float64("size", size))
			r.rootSize = size
		}
	}
}
