package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into an order preserving tree.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// parseState carries what is needed to report errors for a single Parse call.
type parseState struct {
	parser *css.Parser
	data   []byte
	source string
	// end of previous grammar, text after it is scanned for comments the
	// tokenizer skips inside blocks
	last int
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for logging and errors).
// Text with unterminated blocks is rejected with *ParseError.
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	ps := &parseState{data: data}
	if len(source) > 0 && source[0] != "" {
		ps.source = source[0]
		p.log.Debug("Parsing CSS", zap.String("source", ps.source), zap.Int("bytes", len(data)))
	}
	ps.parser = css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	b, err := p.parseBlock(ps, false)
	if err != nil {
		return nil, err
	}
	return &Stylesheet{Items: b.items}, nil
}

// next returns the next grammar unit along with comments preceding it.
// Comments are only reported inside blocks, on top level tokenizer returns
// them as CommentGrammar.
func (ps *parseState) next() (css.GrammarType, []byte, []string) {
	gt, _, data := ps.parser.Next()

	end := min(ps.parser.Offset(), len(ps.data))
	start := ps.last
	ps.last = end
	if start >= end {
		return gt, data, nil
	}

	var comments []string
	rest := ps.data[start:end]
	for {
		rest = bytes.TrimLeft(rest, " \t\r\n\f;")
		if !bytes.HasPrefix(rest, []byte("/*")) {
			return gt, data, comments
		}
		i := bytes.Index(rest[2:], []byte("*/"))
		if i < 0 {
			return gt, data, comments
		}
		comments = append(comments, string(rest[:i+4]))
		rest = rest[i+4:]
	}
}

// block is the content of a stylesheet or of an at-rule block.
type block struct {
	decls []Declaration
	items []Item
	raw   []string // tokens of at-rules the tokenizer does not understand
}

func (b *block) addComments(gt css.GrammarType, comments []string) {
	for _, c := range comments {
		switch {
		case gt == css.DeclarationGrammar || gt == css.CustomPropertyGrammar:
			b.decls = append(b.decls, Declaration{Comment: c})
		case gt == css.TokenGrammar:
			b.raw = append(b.raw, c)
		case gt == css.EndAtRuleGrammar && len(b.decls) > 0:
			b.decls = append(b.decls, Declaration{Comment: c})
		default:
			b.items = append(b.items, Item{Comment: &c})
		}
	}
}

// parseBlock consumes grammar units until the end of the current block (or
// end of input when nested is false). Declarations and raw tokens are only
// meaningful inside at-rule blocks, callers that do not expect them ignore
// the result.
func (p *Parser) parseBlock(ps *parseState, nested bool) (*block, error) {
	var (
		b         = &block{}
		selectors []string
	)

	for {
		gt, data, comments := ps.next()
		if nested {
			b.addComments(gt, comments)
		}

		switch gt {
		case css.ErrorGrammar:
			if err := ps.parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, ps.wrap(err)
			}
			if nested {
				return nil, ps.atEOF("missing '}'")
			}
			if len(selectors) > 0 {
				return nil, ps.atEOF("selector without declaration block")
			}
			return b, nil

		case css.EndAtRuleGrammar:
			if nested {
				// tokenizer closes open blocks at the end of input by itself
				if len(data) == 0 {
					return nil, ps.atEOF("missing '}'")
				}
				return b, nil
			}
			p.log.Debug("Ignoring unbalanced '}'")

		case css.CommentGrammar:
			// top level only, inside blocks comments come from next()
			comment := string(data)
			b.items = append(b.items, Item{Comment: &comment})

		case css.AtRuleGrammar:
			b.items = append(b.items, Item{AtRule: &AtRule{
				Name:    string(data),
				Prelude: tokensText(ps.parser.Values(), preludeSpacing),
			}})

		case css.BeginAtRuleGrammar:
			name, prelude := string(data), tokensText(ps.parser.Values(), preludeSpacing)
			inner, err := p.parseBlock(ps, true)
			if err != nil {
				return nil, err
			}
			if strings.EqualFold(name, "@media") {
				p.log.Debug("Parsed @media block", zap.String("query", prelude), zap.Int("items", len(inner.items)))
				b.items = append(b.items, Item{Media: &MediaBlock{Query: prelude, Items: inner.items}})
				continue
			}
			p.log.Debug("Keeping @-rule", zap.String("rule", name))
			b.items = append(b.items, Item{AtRule: &AtRule{
				Name:         name,
				Prelude:      prelude,
				Block:        true,
				Declarations: inner.decls,
				Items:        inner.items,
				Raw:          strings.Join(inner.raw, " "),
			}})

		case css.QualifiedRuleGrammar:
			// selector followed by a comma, the rest of the list is still to come
			selectors = append(selectors, selectorText(data, ps.parser.Values()))

		case css.BeginRulesetGrammar:
			selectors = append(selectors, selectorText(data, ps.parser.Values()))
			ruleDecls, err := p.parseDeclarations(ps)
			if err != nil {
				return nil, err
			}
			b.items = append(b.items, Item{Rule: &Rule{
				Selectors:    splitSelectors(selectors),
				Declarations: ruleDecls,
			}})
			selectors = nil

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if nested {
				b.decls = append(b.decls, Declaration{Property: string(data), Value: tokensText(ps.parser.Values(), valueSpacing)})
				continue
			}
			p.log.Debug("Ignoring declaration outside of a block", zap.String("property", string(data)))

		case css.TokenGrammar:
			if nested {
				b.raw = append(b.raw, string(data))
				continue
			}
			p.log.Debug("Ignoring stray token", zap.ByteString("data", data))

		default:
			p.log.Debug("Ignoring unexpected CSS grammar", zap.Stringer("grammar", gt), zap.ByteString("data", data))
		}
	}
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(ps *parseState) ([]Declaration, error) {
	decls := make([]Declaration, 0)

	for {
		gt, data, comments := ps.next()
		for _, c := range comments {
			decls = append(decls, Declaration{Comment: c})
		}

		switch gt {
		case css.ErrorGrammar:
			if err := ps.parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, ps.wrap(err)
			}
			return nil, ps.atEOF("missing '}'")

		case css.EndRulesetGrammar:
			// tokenizer closes open rulesets at the end of input by itself
			if len(data) == 0 {
				return nil, ps.atEOF("missing '}'")
			}
			return decls, nil

		case css.BeginRulesetGrammar:
			p.log.Warn("Dropping nested rule", zap.String("selector", selectorText(data, ps.parser.Values())))
			if _, err := p.parseDeclarations(ps); err != nil {
				return nil, err
			}

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			values := ps.parser.Values()
			if len(values) == 0 {
				p.log.Debug("Skipping empty declaration", zap.String("property", string(data)))
				continue
			}
			decls = append(decls, Declaration{Property: string(data), Value: tokensText(values, valueSpacing)})
		}
	}
}

// wrap converts tokenizer errors into ParseError keeping position if known.
func (ps *parseState) wrap(err error) error {
	var perr *parse.Error
	if errors.As(err, &perr) {
		return &ParseError{Source: ps.source, Line: perr.Line, Column: perr.Column, Message: perr.Message}
	}
	line, col := ps.endPosition()
	return &ParseError{Source: ps.source, Line: line, Column: col, Message: err.Error()}
}

// atEOF reports structural problem detected at the end of input.
func (ps *parseState) atEOF(format string, args ...any) error {
	line, col := ps.endPosition()
	return &ParseError{Source: ps.source, Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

func (ps *parseState) endPosition() (int, int) {
	line := bytes.Count(ps.data, []byte{'\n'}) + 1
	col := len(ps.data) - bytes.LastIndexByte(ps.data, '\n')
	return line, col
}

// spacing tells tokensText where to restore whitespace the tokenizer drops
// around ',' ':' and '!'.
type spacing int

const (
	selectorSpacing spacing = iota
	// space before '!' and after top level ','
	valueSpacing
	// space after ',' and after ':' inside parentheses
	preludeSpacing
)

// tokensText builds text from tokens collapsing whitespace.
func tokensText(tokens []css.Token, mode spacing) string {
	var sb strings.Builder
	pending, depth := false, 0
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			pending = sb.Len() > 0
			continue
		}
		if mode == valueSpacing && t.TokenType == css.DelimToken && bytes.Equal(t.Data, []byte{'!'}) {
			pending = sb.Len() > 0
		}
		if pending {
			sb.WriteByte(' ')
			pending = false
		}
		sb.Write(t.Data)

		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth = max(depth-1, 0)
		case css.CommaToken:
			pending = mode == preludeSpacing || mode == valueSpacing && depth == 0
		case css.ColonToken:
			pending = mode == preludeSpacing && depth > 0
		}
	}
	return sb.String()
}

// selectorText extracts a selector string from grammar data and tokens.
func selectorText(data []byte, values []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	sb.WriteString(tokensText(values, selectorSpacing))
	return strings.TrimSpace(sb.String())
}

// splitSelectors splits grouped selectors by top level commas.
// Commas inside parentheses or brackets (e.g. ":not(a, b)") do not split.
func splitSelectors(parts []string) []string {
	var selectors []string
	for _, part := range parts {
		depth, start := 0, 0
		for i, r := range part {
			switch r {
			case '(', '[':
				depth++
			case ')', ']':
				if depth > 0 {
					depth--
				}
			case ',':
				if depth == 0 {
					selectors = appendSelector(selectors, part[start:i])
					start = i + 1
				}
			}
		}
		selectors = appendSelector(selectors, part[start:])
	}
	return selectors
}

func appendSelector(selectors []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		selectors = append(selectors, s)
	}
	return selectors
}
