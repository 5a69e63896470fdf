package fallback

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"remfallback/css"
)

var remValue = regexp.MustCompile(`[0-9]+rem`)

// HasRem reports whether value text contains a number immediately followed by rem.
func HasRem(value string) bool {
	return remValue.MatchString(value)
}

// convertValue replaces every rem token of the value with its px equivalent.
// Tokens are rejoined with single spaces.
func (r *run) convertValue(value string) string {
	tokens := strings.Fields(value)
	for i, tok := range tokens {
		if HasRem(tok) {
			tokens[i] = r.convertToken(tok)
		}
	}
	return strings.Join(tokens, " ")
}

// convertToken converts a single rem token. Anything starting with the first
// '/' (line-height in font shorthand) is carried over as is, anything after
// "rem" is dropped.
func (r *run) convertToken(tok string) string {
	var rest string
	if i := strings.IndexByte(tok, '/'); i >= 0 {
		rest = tok[i:]
	}
	number, _, _ := strings.Cut(tok, "rem")
	r.conversions++
	return FormatPx(toNumber(number)*r.rootSize) + rest
}

// insertFallbacks returns declarations with a px fallback placed immediately
// before every declaration carrying rem values. Original declarations are
// kept intact and in order.
func (r *run) insertFallbacks(decls []css.Declaration) []css.Declaration {
	var out []css.Declaration
	for i, d := range decls {
		if d.IsComment() || !HasRem(d.Value) {
			if out != nil {
				out = append(out, d)
			}
			continue
		}
		if out == nil {
			out = make([]css.Declaration, 0, len(decls)+1)
			out = append(out, decls[:i]...)
		}
		fb := css.Declaration{Property: d.Property, Value: r.convertValue(d.Value)}
		r.log.Debug("Inserting fallback", zap.String("property", d.Property), zap.String("rem", d.Value), zap.String("px", fb.Value))
		out = append(out, fb, d)
	}
	if out == nil {
		return decls
	}
	return out
}
