package css

import (
	"errors"
	"strings"
	"testing"
)

func TestStylesheet_String(t *testing.T) {
	comment := "/* generated */"
	sheet := &Stylesheet{Items: []Item{
		{Comment: &comment},
		{AtRule: &AtRule{Name: "@import", Prelude: `url("base.css")`}},
		{Rule: &Rule{
			Selectors: []string{"h1", ".title"},
			Declarations: []Declaration{
				{Property: "font", Value: "32px/1.5"},
				{Property: "font", Value: "2rem/1.5"},
			},
		}},
		{Media: &MediaBlock{Query: "print", Items: []Item{
			{Rule: &Rule{Selectors: []string{"p"}, Declarations: []Declaration{{Property: "margin", Value: "0"}}}},
			{Rule: &Rule{Selectors: []string{"a"}, Declarations: []Declaration{{Property: "color", Value: "black"}}}},
		}}},
		{AtRule: &AtRule{Name: "@font-face", Block: true, Declarations: []Declaration{
			{Property: "font-family", Value: `"Test"`},
		}}},
	}}

	want := `/* generated */

@import url("base.css");

h1,
.title {
  font: 32px/1.5;
  font: 2rem/1.5;
}

@media print {
  p {
    margin: 0;
  }

  a {
    color: black;
  }
}

@font-face {
  font-family: "Test";
}
`
	if got := sheet.String(); got != want {
		t.Errorf("String() mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestStylesheet_WriteToCountsBytes(t *testing.T) {
	sheet := &Stylesheet{Items: []Item{
		{Rule: &Rule{Selectors: []string{"p"}, Declarations: []Declaration{{Property: "color", Value: "red"}}}},
	}}

	var sb strings.Builder
	n, err := sheet.WriteTo(&sb)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if n != int64(sb.Len()) {
		t.Errorf("WriteTo() = %d, wrote %d bytes", n, sb.Len())
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestStylesheet_WriteToStopsOnError(t *testing.T) {
	sheet := &Stylesheet{Items: []Item{
		{Rule: &Rule{Selectors: []string{"p"}, Declarations: []Declaration{{Property: "color", Value: "red"}}}},
		{Rule: &Rule{Selectors: []string{"a"}, Declarations: []Declaration{{Property: "color", Value: "blue"}}}},
	}}

	if _, err := sheet.WriteTo(&failingWriter{after: 3}); err == nil {
		t.Error("expected write error to be reported")
	}
}

func TestDeclaration_IsComment(t *testing.T) {
	if (Declaration{Property: "color", Value: "red"}).IsComment() {
		t.Error("declaration reported as comment")
	}
	if !(Declaration{Comment: "/* x */"}).IsComment() {
		t.Error("comment not reported as comment")
	}
}

func TestSplitSelectors(t *testing.T) {
	got := splitSelectors([]string{"h1, h2", " a:not(.x, .y) ", "", "[data-a=\"1,2\"] p"})
	want := []string{"h1", "h2", "a:not(.x, .y)", "[data-a=\"1,2\"] p"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitSelectors() = %q, want %q", got, want)
	}
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Source: "a.css", Line: 3, Column: 7, Message: "missing '}'"}
	if got := err.Error(); got != "a.css:3:7: missing '}'" {
		t.Errorf("Error() = %q", got)
	}
	err.Source = ""
	if got := err.Error(); got != "3:7: missing '}'" {
		t.Errorf("Error() = %q", got)
	}
}

func TestStylesheet_Dump(t *testing.T) {
	sheet := &Stylesheet{Items: []Item{
		{Rule: &Rule{Selectors: []string{"p"}, Declarations: []Declaration{{Property: "margin", Value: "1rem"}}}},
	}}
	dump := sheet.Dump()
	for _, want := range []string{"Stylesheet: 1 items", `Rule[0] selectors=["p"]`, `margin: "1rem"`} {
		if !strings.Contains(dump, want) {
			t.Errorf("Dump() missing %q:\n%s", want, dump)
		}
	}
	var nilSheet *Stylesheet
	if nilSheet.Dump() != "<nil Stylesheet>" {
		t.Error("unexpected dump of nil stylesheet")
	}
}
