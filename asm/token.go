package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tokenize splits a line into words. Words are separated by white space
// or commas. A ';' outside of quotes starts a comment. Quoted strings,
// character literals, [...] addresses and $(...) expressions are kept as
// single words.
func tokenize(line string) (words []string, err error) {
	var word strings.Builder
	depth := 0

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

scan:
	for n := 0; n < len(line); n++ {
		c := line[n]
		switch c {
		case '"', '\'':
			end := n + 1
			for ; end < len(line) && line[end] != c; end++ {
				if line[end] == '\\' {
					end++
				}
			}
			if end >= len(line) {
				err = ErrQuoteUnterminated
				return
			}
			word.WriteString(line[n : end+1])
			n = end
		case '[', '(':
			depth++
			word.WriteByte(c)
		case ']', ')':
			depth--
			if depth < 0 {
				err = ErrBracketUnbalanced
				return
			}
			word.WriteByte(c)
		case ';':
			break scan
		case ' ', '\t', '\r', ',':
			if depth > 0 {
				word.WriteByte(c)
				continue
			}
			flush()
		default:
			word.WriteByte(c)
		}
	}

	if depth != 0 {
		err = ErrBracketUnbalanced
		return
	}

	flush()
	return
}

var (
	reCharacter  = regexp.MustCompile(`'(\\[^']+|[^'\\])'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// isString returns true for a double quoted word.
func isString(word string) bool {
	return len(word) >= 2 && word[0] == '"'
}

// isNumber returns true if word looks like an integer literal.
func isNumber(word string) bool {
	word = strings.TrimLeft(word, "~+-")
	return len(word) > 0 && word[0] >= '0' && word[0] <= '9'
}

// isIdentifier returns true for a valid symbol name.
func isIdentifier(word string) bool {
	return reIdentifier.MatchString(word)
}

// expandCharacters replaces 'c' character literals by their decimal value.
func expandCharacters(word string) string {
	return reCharacter.ReplaceAllStringFunc(word, func(literal string) string {
		value, _, tail, err := strconv.UnquoteChar(literal[1:len(literal)-1], '\'')
		if err != nil || len(tail) != 0 {
			return literal
		}
		return fmt.Sprintf("%d", value)
	})
}

// parseInteger parses a signed or unsigned 32 bit literal, with an
// optional '~' bitwise inversion prefix.
func parseInteger(word string) (value int32, err error) {
	invert := false
	text := word
	if strings.HasPrefix(text, "~") {
		invert = true
		text = text[1:]
	}

	v64, err := strconv.ParseInt(text, 0, 64)
	if err != nil || v64 < -0x80000000 || v64 > 0xffffffff {
		err = ErrParseNumber(word)
		return
	}

	value = int32(uint32(v64))
	if invert {
		value = ^value
	}

	return
}

// mangle replaces '@' outside of quoted text with prefix.
func mangle(line string, prefix string) string {
	var text strings.Builder
	var quote rune
	escaped := false

	for _, c := range line {
		switch {
		case escaped:
			escaped = false
		case quote != 0 && c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '@':
			text.WriteString(prefix)
			continue
		}
		text.WriteRune(c)
	}

	return text.String()
}
