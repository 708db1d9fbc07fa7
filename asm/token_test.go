package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line     string
		expected []string
	}{
		{"", nil},
		{"   ; only a comment", nil},
		{"mov r0, 5 ; comment", []string{"mov", "r0", "5"}},
		{"add\tr0,r1,r2", []string{"add", "r0", "r1", "r2"}},
		{`print "a, b; c", r0`, []string{"print", `"a, b; c"`, "r0"}},
		{`print "esc\"aped"`, []string{"print", `"esc\"aped"`}},
		{"ld4 r0, [msg + 4]", []string{"ld4", "r0", "[msg + 4]"}},
		{"mov r1, $(A + (B * 2))", []string{"mov", "r1", "$(A + (B * 2))"}},
		{"mov r0, ' '", []string{"mov", "r0", "' '"}},
		{"loop: dec r1", []string{"loop:", "dec", "r1"}},
	}

	for _, entry := range table {
		words, err := tokenize(entry.line)
		assert.NoError(err, entry.line)
		assert.Equal(entry.expected, words, entry.line)
	}

	_, err := tokenize(`print "abc`)
	assert.ErrorIs(err, ErrQuoteUnterminated)

	_, err = tokenize("ld4 r0, [r1")
	assert.ErrorIs(err, ErrBracketUnbalanced)

	_, err = tokenize("mov r0, r1)")
	assert.ErrorIs(err, ErrBracketUnbalanced)
}

func TestExpandCharacters(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("65", expandCharacters("'A'"))
	assert.Equal("32", expandCharacters("' '"))
	assert.Equal("10", expandCharacters(`'\n'`))
	assert.Equal("0", expandCharacters(`'\x00'`))
	assert.Equal("[r0 + 48]", expandCharacters("[r0 + '0']"))
	assert.Equal("'ab'", expandCharacters("'ab'"))
}

func TestParseInteger(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		word     string
		expected int32
	}{
		{"0", 0},
		{"42", 42},
		{"-1", -1},
		{"0x10", 16},
		{"0b101", 5},
		{"0o17", 15},
		{"1_000", 1000},
		{"0xffffffff", -1},
		{"0x80000000", -0x80000000},
		{"-2147483648", -0x80000000},
		{"~0", -1},
		{"~0xff", -256},
	}

	for _, entry := range table {
		value, err := parseInteger(entry.word)
		assert.NoError(err, entry.word)
		assert.Equal(entry.expected, value, entry.word)
	}

	for _, word := range []string{"", "x", "0x", "4294967296", "-2147483649", "12abc"} {
		_, err := parseInteger(word)
		assert.Equal(ErrParseNumber(word), err, word)
	}
}

func TestMangle(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line     string
		expected string
	}{
		{"@loop: dec r0", "M_1_loop: dec r0"},
		{"jnz r0, @loop ; back to @loop", "jnz r0, M_1_loop ; back to M_1_loop"},
		{`print "me@host", r0`, `print "me@host", r0`},
		{`print "a\"@", @x`, `print "a\"@", M_1_x`},
		{"mov r0, '@'", "mov r0, '@'"},
	}

	for _, entry := range table {
		assert.Equal(entry.expected, mangle(entry.line, "M_1_"), entry.line)
	}
}
