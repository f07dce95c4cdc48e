// Package classifier decides which specialization should answer a message.
package classifier

import (
	"strings"
	"unicode"
)

// Category is the intent assigned to a message.
type Category string

const (
	Sales     Category = "ventas"
	FAQ       Category = "faq"
	ITSupport Category = "soporte_ti"
	Public    Category = "public"

	// Unrecognized marks classifier output outside the known set.
	Unrecognized Category = ""
)

// Categories lists every recognized category.
var Categories = []Category{Sales, FAQ, ITSupport, Public}

func (c Category) String() string {
	if c == Unrecognized {
		return "unrecognized"
	}
	return string(c)
}

var aliases = map[string]Category{
	"ventas":     Sales,
	"venta":      Sales,
	"faq":        FAQ,
	"soporte_ti": ITSupport,
	"soporte ti": ITSupport,
	"soporte-ti": ITSupport,
	"soporteti":  ITSupport,
	"public":     Public,
	"publico":    Public,
	"público":    Public,
}

// ParseCategory maps raw model output to a Category. Surrounding quotes,
// punctuation and case are ignored; ok is false for anything else.
func ParseCategory(raw string) (Category, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '_') || r == '`'
	})
	if strings.HasPrefix(s, "categoría:") || strings.HasPrefix(s, "categoria:") {
		s = strings.TrimSpace(s[strings.Index(s, ":")+1:])
		return ParseCategory(s)
	}
	if c, ok := aliases[s]; ok {
		return c, true
	}
	return Unrecognized, false
}
