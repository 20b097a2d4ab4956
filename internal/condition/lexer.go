package condition

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord   tokenKind = iota // identifier, field path or keyword
	tokOp                      // ==, !=, >=, <=, >, <
	tokString                  // "…" or '…'
	tokNumber                  // 42 | -3.5
	tokBool                    // true | false
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		if err := l.next(); err != nil {
			return nil, err
		}
	}
	l.emit(tokEOF, "", l.pos)
	return l.tokens, nil
}

func (l *lexer) emit(kind tokenKind, val string, pos int) {
	l.tokens = append(l.tokens, token{kind: kind, val: val, pos: pos})
}

func (l *lexer) next() error {
	start := l.pos
	ch := l.src[l.pos]
	switch {
	case unicode.IsSpace(rune(ch)):
		l.pos++
	case ch == '(':
		l.emit(tokLParen, "(", start)
		l.pos++
	case ch == ')':
		l.emit(tokRParen, ")", start)
		l.pos++
	case ch == '=' || ch == '!' || ch == '<' || ch == '>':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
		}
		op := l.src[start:l.pos]
		if op == "=" || op == "!" {
			return fmt.Errorf("unknown operator %q at position %d", op, start)
		}
		l.emit(tokOp, op, start)
	case ch == '"' || ch == '\'':
		return l.quoted(ch)
	case isDigit(ch) || (ch == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		l.emit(tokNumber, l.src[start:l.pos], start)
	case unicode.IsLetter(rune(ch)) || ch == '_':
		for l.pos < len(l.src) && isWordChar(l.src[l.pos]) {
			l.pos++
		}
		word := l.src[start:l.pos]
		if lw := strings.ToLower(word); lw == "true" || lw == "false" {
			l.emit(tokBool, lw, start)
		} else {
			l.emit(tokWord, word, start)
		}
	default:
		return fmt.Errorf("unexpected character %q at position %d", ch, start)
	}
	return nil
}

func (l *lexer) quoted(quote byte) error {
	start := l.pos
	var b strings.Builder
	l.pos++
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.src):
			b.WriteByte(l.src[l.pos+1])
			l.pos += 2
		case ch == quote:
			l.pos++
			l.emit(tokString, b.String(), start)
			return nil
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
	return fmt.Errorf("unterminated string starting at position %d", start)
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isWordChar(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || isDigit(ch) || ch == '_' || ch == '.' || ch == '-'
}
