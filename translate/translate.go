// Package translate formats user visible messages for the host locale.
package translate

import (
	"log"
	"os"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	var locales []string

	// ASMVM_LANG overrides the detected locale, mostly for tests.
	if lang := os.Getenv("ASMVM_LANG"); len(lang) != 0 {
		locales = []string{lang}
	} else {
		var err error
		locales, err = locale.GetLocales()
		if err != nil {
			log.Printf("asmvm: locale: %v", err)
		}
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Printer returns the message printer selected for the host locale.
func Printer() *message.Printer {
	return printer
}
