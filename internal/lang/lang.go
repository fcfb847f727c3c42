// Package lang resolves the ISO 639-2 language codes stored on BD-ROM discs.
package lang

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var namer = display.English.Languages()

// CodeName returns the English name for a language code, or the code itself
// when it is unknown.
func CodeName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	base, err := language.ParseBase(strings.ToLower(code))
	if err != nil {
		return code
	}
	if name := namer.Name(base); name != "" {
		return name
	}
	return code
}

// ISO3 normalizes a two or three letter code to ISO 639-2. Invalid codes
// yield "".
func ISO3(code string) string {
	base, err := language.ParseBase(strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		return ""
	}
	return base.ISO3()
}
