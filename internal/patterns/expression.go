package patterns

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrInvalidExpression = errors.New("invalid pattern expression")

const (
	FieldServiceName = "serviceName"
	FieldSpanName    = "spanName"
)

// Term is one field=value condition of a pattern expression.
type Term struct {
	Field string
	Value string
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuoted
	tokenEquals
)

type token struct {
	kind  tokenKind
	text  string
	quote rune
}

// ParseExpression parses a conjunction of field=value terms such as
// "serviceName"='cart' AND spanName=GetCart. Fields and values may be bare words or
// single or double quoted strings; AND is case insensitive.
func ParseExpression(expression string) ([]Term, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	var terms []Term
	for i := 0; i < len(tokens); {
		if len(terms) > 0 {
			if !isAnd(tokens[i]) {
				return nil, fmt.Errorf("%w: expected AND before %q", ErrInvalidExpression, tokens[i].text)
			}
			i++
		}
		if i+3 > len(tokens) {
			return nil, fmt.Errorf("%w: incomplete term in %q", ErrInvalidExpression, expression)
		}
		field, equals, value := tokens[i], tokens[i+1], tokens[i+2]
		if field.kind == tokenEquals || equals.kind != tokenEquals || value.kind == tokenEquals {
			return nil, fmt.Errorf("%w: expected field=value in %q", ErrInvalidExpression, expression)
		}
		if field.text == "" {
			return nil, fmt.Errorf("%w: empty field name in %q", ErrInvalidExpression, expression)
		}
		terms = append(terms, Term{Field: field.text, Value: value.text})
		i += 3
	}
	return terms, nil
}

func isAnd(t token) bool {
	return t.kind == tokenWord && strings.EqualFold(t.text, "AND")
}

func tokenize(expression string) ([]token, error) {
	var tokens []token
	runes := []rune(expression)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '=':
			tokens = append(tokens, token{kind: tokenEquals, text: "="})
			i++
		case r == '\'' || r == '"':
			end := i + 1
			var b strings.Builder
			for end < len(runes) && runes[end] != r {
				if runes[end] == '\\' && end+1 < len(runes) {
					end++
				}
				b.WriteRune(runes[end])
				end++
			}
			if end >= len(runes) {
				return nil, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidExpression, expression)
			}
			tokens = append(tokens, token{kind: tokenQuoted, text: b.String(), quote: r})
			i = end + 1
		default:
			end := i
			for end < len(runes) && !unicode.IsSpace(runes[end]) && runes[end] != '=' &&
				runes[end] != '\'' && runes[end] != '"' {
				end++
			}
			tokens = append(tokens, token{kind: tokenWord, text: string(runes[i:end])})
			i = end
		}
	}
	return tokens, nil
}
