package main

import (
	"errors"
	"strings"

	"github.com/ezrec/asmvm/translate"
)

var f = translate.From

var errDefineSyntax = errors.New(f("define must be NAME=VALUE"))

// defineFlag collects repeated -D NAME=VALUE options, in order.
type defineFlag [][2]string

func (df *defineFlag) String() string {
	var parts []string
	for _, item := range *df {
		parts = append(parts, item[0]+"="+item[1])
	}
	return strings.Join(parts, ",")
}

func (df *defineFlag) Set(value string) error {
	name, val, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	if !ok || len(name) == 0 {
		return errDefineSyntax
	}
	*df = append(*df, [2]string{name, strings.TrimSpace(val)})
	return nil
}
