package llm

import (
	"encoding/json"
	"strings"
)

// CompletePartialJSON turns a truncated JSON document into the largest valid value it
// prefixes. An unterminated string value is kept and closed, a dangling key, colon or
// comma is dropped, and open containers are closed. ok is false when no value can be
// recovered yet.
func CompletePartialJSON(src string) (string, bool) {
	var (
		closers   []byte // pending '}' or ']'
		keyNext   []bool // per container: the next string is an object key
		inString  bool
		isKey     bool
		escaped   bool
		safeLen   = -1
		safeStack []byte
	)

	mark := func(n int) {
		safeLen = n
		safeStack = append(safeStack[:0], closers...)
	}
	inObject := func() bool {
		return len(closers) > 0 && closers[len(closers)-1] == '}'
	}

	for i := 0; i < len(src); {
		c := src[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				if !isKey {
					mark(i + 1)
				}
			}
			i++
			continue
		}

		switch c {
		case '{', '[':
			closer := byte('}')
			if c == '[' {
				closer = ']'
			}
			closers = append(closers, closer)
			keyNext = append(keyNext, c == '{')
			mark(i + 1)
		case '}', ']':
			if len(closers) == 0 || closers[len(closers)-1] != c {
				return "", false
			}
			closers = closers[:len(closers)-1]
			keyNext = keyNext[:len(keyNext)-1]
			mark(i + 1)
		case '"':
			inString = true
			isKey = inObject() && keyNext[len(keyNext)-1]
		case ':':
			if inObject() {
				keyNext[len(keyNext)-1] = false
			}
		case ',':
			if inObject() {
				keyNext[len(keyNext)-1] = true
			}
		case ' ', '\t', '\n', '\r':
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(",}] \t\n\r", rune(src[j])) {
				j++
			}
			if json.Valid([]byte(src[i:j])) && (j < len(src) || endsLikeNumber(src[i:j]) || isLiteral(src[i:j])) {
				mark(j)
			}
			i = j
			continue
		}
		i++
	}

	var out string
	switch {
	case inString && !isKey:
		body := src
		if escaped {
			body = body[:len(body)-1]
		}
		out = trimPartialUnicodeEscape(body) + `"` + reverseClosers(closers)
	case safeLen >= 0:
		out = src[:safeLen] + reverseClosers(safeStack)
	default:
		return "", false
	}

	if !json.Valid([]byte(out)) {
		return "", false
	}
	return out, true
}

func reverseClosers(stack []byte) string {
	b := make([]byte, len(stack))
	for i := range stack {
		b[i] = stack[len(stack)-1-i]
	}
	return string(b)
}

func endsLikeNumber(tok string) bool {
	last := tok[len(tok)-1]
	return last >= '0' && last <= '9'
}

func isLiteral(tok string) bool {
	return tok == "true" || tok == "false" || tok == "null"
}

// trimPartialUnicodeEscape drops a trailing \uXXXX escape that has fewer than four digits.
func trimPartialUnicodeEscape(s string) string {
	idx := strings.LastIndex(s, `\u`)
	if idx < 0 || len(s)-idx >= 6 {
		return s
	}
	backslashes := 0
	for k := idx; k >= 0 && s[k] == '\\'; k-- {
		backslashes++
	}
	if backslashes%2 == 1 {
		return s[:idx]
	}
	return s
}
