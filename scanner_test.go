package jsonls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(src string) []Token {
	s := NewScanner([]byte(src))
	var toks []Token
	for {
		t := s.Scan()
		toks = append(toks, t)
		if t.Kind == TokenEOF {
			break
		}
	}
	return toks
}

func TestScannerPunctuation(t *testing.T) {
	toks := scanAll(`{}[]:,`)
	require.Len(t, toks, 7)
	kinds := make([]TokenKind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{
		TokenOpenBrace, TokenCloseBrace, TokenOpenBracket, TokenCloseBracket,
		TokenColon, TokenComma, TokenEOF,
	}, kinds)
}

func TestScannerString(t *testing.T) {
	toks := scanAll(`"hello\nworld"`)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, TokenString, toks[0].Kind)
}

func TestScannerNumber(t *testing.T) {
	for _, src := range []string{"0", "-1", "1.5", "1e10", "-1.5e-10"} {
		toks := scanAll(src)
		require.GreaterOrEqual(t, len(toks), 1)
		assert.Equal(t, TokenNumber, toks[0].Kind, "source %q", src)
	}
}

func TestScannerLineComment(t *testing.T) {
	toks := scanAll("// a comment\n1")
	var sawComment, sawNumber bool
	for _, tok := range toks {
		switch tok.Kind {
		case TokenLineComment:
			sawComment = true
		case TokenNumber:
			sawNumber = true
		}
	}
	assert.True(t, sawComment)
	assert.True(t, sawNumber)
}

func TestScannerBlockComment(t *testing.T) {
	toks := scanAll("/* a\nmultiline\ncomment */true")
	var sawComment bool
	for _, tok := range toks {
		if tok.Kind == TokenBlockComment {
			sawComment = true
		}
	}
	assert.True(t, sawComment)
}

func TestScannerKeywords(t *testing.T) {
	toks := scanAll("true false null")
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, TokenTrue, toks[0].Kind)
	assert.Equal(t, TokenFalse, toks[1].Kind)
	assert.Equal(t, TokenNull, toks[2].Kind)
}

func TestScannerUnterminatedString(t *testing.T) {
	toks := scanAll(`"unterminated`)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, TokenString, toks[0].Kind)
}
