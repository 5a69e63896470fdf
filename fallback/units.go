package fallback

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultRootSize is the size of 1rem when stylesheet does not say otherwise.
	DefaultRootSize = 16.0
	// PercentBase is what percentages resolve against, regardless of discovered root size.
	PercentBase = 16.0
)

var emUnit = regexp.MustCompile(`em|rem`)

// ResolveLength converts length with px, em, rem or % unit into a unitless
// pixel magnitude. em and rem are multiplied by root, percentages always use
// PercentBase. Any other unit yields false.
func ResolveLength(value string, root float64) (float64, bool) {
	switch {
	case strings.Contains(value, "px"):
		return toNumber(strings.Replace(value, "px", "", 1)), true
	case emUnit.MatchString(value):
		loc := emUnit.FindStringIndex(value)
		return toNumber(value[:loc[0]]+value[loc[1]:]) * root, true
	case strings.Contains(value, "%"):
		return toNumber(strings.Replace(value, "%", "", 1)) / 100 * PercentBase, true
	}
	return 0, false
}

// toNumber is lenient numeric coercion: surrounding whitespace is ignored,
// empty text is 0 and anything unparsable is NaN.
func toNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			// ParseFloat returns signed infinity or zero here
			return v
		}
		return math.NaN()
	}
	return v
}

// FormatPx rounds value to one decimal place (half away from zero) and
// renders it with "px" suffix.
func FormatPx(v float64) string {
	return formatNumber(math.Round(v*10)/10) + "px"
}

func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		// covers negative zero
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
