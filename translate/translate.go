// Package translate formats user visible messages for the local language.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:generate go tool gotext -srclang=en-US update -out=catalog.go -lang=en-US github.com/ezrec/regvm/cpu github.com/ezrec/regvm/emulator

var printer = newPrinter(userLocales())

// userLocales returns the preferred locales of the user, most preferred first.
func userLocales() (locales []string) {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("regvm: locale: %v", err)
	}
	return
}

// newPrinter returns a message printer for the best match of locales,
// falling back to en-US.
func newPrinter(locales []string) *message.Printer {
	if len(locales) == 0 {
		return message.NewPrinter(language.AmericanEnglish)
	}

	return message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
