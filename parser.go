package jsonls

import (
	"sort"
	"strconv"
)

// ParseOptions configures the Parser.
type ParseOptions struct {
	// CollectComments opts into populating Document.Comments. Disabled by
	// default, mirroring the cache's own opt-in flags (AssertFormat,
	// PreserveExtra) rather than always paying the collection cost.
	CollectComments bool
}

// recoverySink names which token kinds stop error-recovery token-skipping.
type recoverySink int

const (
	sinkCloseBracketOrComma recoverySink = iota
	sinkCloseBraceOrComma
)

// Parser is a recursive-descent parser over Scanner tokens. Error recovery
// is the design centrepiece (spec.md §4.2): a syntactic error never aborts
// the parse, it emits a diagnostic and resynchronises at the nearest
// recovery sink.
type Parser struct {
	scanner  *Scanner
	opts     ParseOptions
	doc      *Document
	tok      Token
	reported map[int]bool // start offsets that already carry a diagnostic
}

// Parse parses src as JSON-with-comments and returns the resulting Document.
// Parse never fails; all problems are reported as syntax diagnostics.
func Parse(src []byte, opts ...ParseOptions) *Document {
	var o ParseOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	p := &Parser{
		scanner:  NewScanner(src),
		opts:     o,
		doc:      &Document{Source: src},
		reported: make(map[int]bool),
	}
	p.advance()
	root := p.parseValue()
	p.doc.Root = root

	if p.tok.Kind != TokenEOF {
		p.errorAt(p.tok.Offset, DiagValueExpected, "End of file expected.")
	}

	// Diagnostics are emitted in parse order (duplicate keys only once their
	// object closes); order them by start offset.
	sort.SliceStable(p.doc.Diagnostics, func(i, j int) bool {
		return p.doc.Diagnostics[i].Offset < p.doc.Diagnostics[j].Offset
	})
	p.doc.dedupeDiagnostics()
	return p.doc
}

// advance pulls the next semantically significant token, recording any
// trivia (comments) it skips over and surfacing scan errors as syntax
// diagnostics.
func (p *Parser) advance() {
	for {
		t := p.scanner.Scan()
		switch t.Kind {
		case TokenWhitespace, TokenLineBreak:
			continue
		case TokenLineComment, TokenBlockComment:
			if p.opts.CollectComments {
				p.doc.Comments = append(p.doc.Comments, CommentRange{
					Offset: t.Offset,
					Length: t.Length,
					Block:  t.Kind == TokenBlockComment,
				})
			}
			if t.Error == ScanErrorUnexpectedEndOfComment {
				p.errorAt(t.Offset, DiagUnexpectedEndOfComment, "Unexpected end of comment.")
			}
			continue
		default:
			p.reportScanError(t)
			p.tok = t
			return
		}
	}
}

func (p *Parser) reportScanError(t Token) {
	switch t.Error {
	case ScanErrorInvalidUnicode:
		p.errorAt(t.Offset, DiagInvalidUnicode, "Invalid unicode sequence in string.")
	case ScanErrorInvalidEscapeCharacter:
		p.errorAt(t.Offset, DiagInvalidEscapeCharacter, "Invalid escape character in string.")
	case ScanErrorUnexpectedEndOfNumber:
		p.errorAt(t.Offset, DiagUnexpectedEndOfNumber, "Unexpected end of number.")
	case ScanErrorUnexpectedEndOfString:
		p.errorAt(t.Offset, DiagUnexpectedEndOfString, "Unexpected end of string.")
	case ScanErrorInvalidCharacter:
		p.errorAt(t.Offset, DiagInvalidCharacter, "Invalid character in JSON.")
	}
}

// errorAt records a syntax diagnostic, enforcing the "at most one
// diagnostic per start offset" rule.
func (p *Parser) errorAt(offset int, code DiagnosticCode, message string) {
	p.errorAtSeverity(offset, code, message, SeverityError)
}

func (p *Parser) errorAtSeverity(offset int, code DiagnosticCode, message string, sev Severity) {
	if p.reported[offset] {
		return
	}
	p.reported[offset] = true
	p.doc.Diagnostics = append(p.doc.Diagnostics, Diagnostic{
		Offset: offset, Length: maxInt(p.tok.Length, 1), Severity: sev, Code: code, Message: message,
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// recover consumes tokens until a recovery sink or EOF is reached, so a
// single syntactic error does not cascade into dozens more.
func (p *Parser) recover(sink recoverySink) {
	for {
		switch p.tok.Kind {
		case TokenEOF, TokenComma:
			return
		case TokenCloseBracket:
			if sink == sinkCloseBracketOrComma {
				return
			}
		case TokenCloseBrace:
			if sink == sinkCloseBraceOrComma {
				return
			}
		}
		p.advance()
	}
}

// parseValue parses a single JSON value at the current token. It returns
// nil (with a ValueExpected diagnostic already emitted) if the current
// token cannot start a value.
func (p *Parser) parseValue() Node {
	switch p.tok.Kind {
	case TokenOpenBrace:
		return p.parseObject()
	case TokenOpenBracket:
		return p.parseArray()
	case TokenString:
		return p.parseString()
	case TokenNumber:
		return p.parseNumber()
	case TokenTrue:
		n := &BooleanNode{NodeBase: NodeBase{offset: p.tok.Offset, length: p.tok.Length}, Value: true}
		p.advance()
		return n
	case TokenFalse:
		n := &BooleanNode{NodeBase: NodeBase{offset: p.tok.Offset, length: p.tok.Length}, Value: false}
		p.advance()
		return n
	case TokenNull:
		n := &NullNode{NodeBase: NodeBase{offset: p.tok.Offset, length: p.tok.Length}}
		p.advance()
		return n
	default:
		p.errorAt(p.tok.Offset, DiagValueExpected, "Value expected.")
		return nil
	}
}

func (p *Parser) parseString() *StringNode {
	n := &StringNode{
		NodeBase: NodeBase{offset: p.tok.Offset, length: p.tok.Length},
		Value:    p.tok.Value,
	}
	p.advance()
	return n
}

func (p *Parser) parseNumber() *NumberNode {
	v, err := strconv.ParseFloat(p.tok.Value, 64)
	if err != nil {
		v = 0
	}
	n := &NumberNode{
		NodeBase:  NodeBase{offset: p.tok.Offset, length: p.tok.Length},
		Value:     v,
		IsInteger: !p.tok.ContainsFractionOrExponent,
	}
	p.advance()
	return n
}

func (p *Parser) parseArray() *ArrayNode {
	start := p.tok.Offset
	n := &ArrayNode{NodeBase: NodeBase{offset: start}}
	p.advance() // consume '['

	first := true
	for p.tok.Kind != TokenCloseBracket && p.tok.Kind != TokenEOF {
		if !first {
			if p.tok.Kind == TokenComma {
				commaOffset := p.tok.Offset
				p.advance()
				if p.tok.Kind == TokenCloseBracket {
					p.errorAtSeverity(commaOffset, DiagTrailingComma, "Trailing comma.", SeverityWarning)
					break
				}
			} else {
				p.errorAt(p.tok.Offset, DiagCommaExpected, "Comma expected.")
				p.recover(sinkCloseBracketOrComma)
				if p.tok.Kind == TokenComma {
					p.advance()
				}
			}
		}
		first = false

		item := p.parseValue()
		if item == nil {
			p.recover(sinkCloseBracketOrComma)
			if p.tok.Kind != TokenComma && p.tok.Kind != TokenCloseBracket {
				break
			}
			continue
		}
		setChildParent(n, item)
		n.Items = append(n.Items, item)
	}

	if p.tok.Kind == TokenCloseBracket {
		n.length = tokenEnd(p.tok) - start
		p.advance()
	} else {
		p.errorAt(p.tok.Offset, DiagCommaOrCloseBracketExpected, "Expected comma or closing bracket.")
		n.length = p.tok.Offset - start
	}
	return n
}

func tokenEnd(t Token) int { return t.Offset + t.Length }

func (p *Parser) parseObject() *ObjectNode {
	start := p.tok.Offset
	n := &ObjectNode{NodeBase: NodeBase{offset: start}}
	p.advance() // consume '{'

	seen := make(map[string][]int) // key -> key-node offsets, for duplicate detection

	first := true
	for p.tok.Kind != TokenCloseBrace && p.tok.Kind != TokenEOF {
		if !first {
			if p.tok.Kind == TokenComma {
				commaOffset := p.tok.Offset
				p.advance()
				if p.tok.Kind == TokenCloseBrace {
					p.errorAtSeverity(commaOffset, DiagTrailingComma, "Trailing comma.", SeverityWarning)
					break
				}
			} else {
				p.errorAt(p.tok.Offset, DiagCommaExpected, "Comma expected.")
				p.recover(sinkCloseBraceOrComma)
				if p.tok.Kind == TokenComma {
					p.advance()
				}
			}
		}
		first = false

		if p.tok.Kind != TokenString {
			if p.tok.Kind == TokenCloseBrace {
				break
			}
			p.errorAt(p.tok.Offset, DiagPropertyExpected, "Property expected.")
			p.recover(sinkCloseBraceOrComma)
			continue
		}

		prop := p.parseProperty()
		setChildParent(n, prop)
		n.Properties = append(n.Properties, prop)

		if prop.Key != nil {
			key := prop.Key.Value
			if key != "//" {
				seen[key] = append(seen[key], prop.Key.Offset())
			}
		}
	}

	if p.tok.Kind == TokenCloseBrace {
		n.length = tokenEnd(p.tok) - start
		p.advance()
	} else {
		p.errorAt(p.tok.Offset, DiagCommaOrCloseBraceExpected, "Expected comma or closing brace.")
		n.length = p.tok.Offset - start
	}

	p.reportDuplicateKeys(seen)
	return n
}

// reportDuplicateKeys emits one warning-severity diagnostic at each of the
// first two colliding positions for a key, per spec.md §4.2. "//" keys were
// never recorded and so never collide.
func (p *Parser) reportDuplicateKeys(seen map[string][]int) {
	for key, offsets := range seen {
		if len(offsets) < 2 {
			continue
		}
		limit := 2
		if len(offsets) < limit {
			limit = len(offsets)
		}
		for i := 0; i < limit; i++ {
			p.errorAtSeverity(offsets[i], DiagDuplicateKey, "Duplicate object key \""+key+"\".", SeverityWarning)
		}
	}
}

// parseProperty parses one `"key": value` pair, handling the missing-colon
// recovery rule from spec.md §4.2: if the token after the key is a string
// literal that starts on a later source line, the property is treated as
// valueless (only a ColonExpected diagnostic is emitted); otherwise parsing
// continues as if the colon were present.
func (p *Parser) parseProperty() *PropertyNode {
	key := p.parseString()
	n := &PropertyNode{NodeBase: NodeBase{offset: key.Offset()}, Key: key, ColonOffset: -1}
	setChildParent(n, key)

	if p.tok.Kind == TokenColon {
		n.ColonOffset = p.tok.Offset
		p.advance()
	} else {
		p.errorAt(p.tok.Offset, DiagColonExpected, "Colon expected.")
		if p.tok.Kind == TokenString && p.onLaterLine(key) {
			n.length = End(key) - n.offset
			return n
		}
	}

	if p.tok.Kind == TokenComma || p.tok.Kind == TokenCloseBrace || p.tok.Kind == TokenCloseBracket || p.tok.Kind == TokenEOF {
		n.length = End(key) - n.offset
		return n
	}

	value := p.parseValue()
	if value != nil {
		setChildParent(n, value)
		n.Value = value
		n.length = End(value) - n.offset
	} else {
		n.length = End(key) - n.offset
	}
	return n
}

// onLaterLine reports whether the scanner's current position is on a
// source line after the one the given node ends on.
func (p *Parser) onLaterLine(after Node) bool {
	endLine, _ := countLines(p.scanner.src, End(after))
	curLine, _ := countLines(p.scanner.src, p.tok.Offset)
	return curLine > endLine
}

func countLines(src []byte, upto int) (line int, char int) {
	if upto > len(src) {
		upto = len(src)
	}
	for i := 0; i < upto; i++ {
		if src[i] == '\n' {
			line++
			char = 0
		} else {
			char++
		}
	}
	return
}
