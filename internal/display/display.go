// Package display formats values for screens, exports and printable views.
//
// Amounts and numbers follow French conventions (comma decimal separator,
// space-grouped thousands), as the back-office is used in French.
package display

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale is the language used for every formatted value.
var Locale = language.French

var (
	printer = message.NewPrinter(Locale)
	titler  = cases.Title(Locale)
	upper   = cases.Upper(Locale)
)

// Amount formats a monetary value with exactly two decimals ("1 234,50").
func Amount(v float64) string {
	return printer.Sprint(number.Decimal(v, number.Scale(2)))
}

// Number formats a quantity with at most two decimals ("12,5").
func Number(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Integer formats a whole number with grouped thousands.
func Integer(v int64) string {
	return printer.Sprint(number.Decimal(v))
}

// Percent formats a rate already expressed in percent ("4,75 %").
func Percent(v float64) string {
	return Number(v) + " %"
}

// Bool renders a flag the way list screens show it.
func Bool(v bool) string {
	if v {
		return "Oui"
	}
	return "Non"
}

// Upper upper-cases s using the display locale.
func Upper(s string) string {
	return upper.String(s)
}

// Title title-cases s using the display locale.
func Title(s string) string {
	return titler.String(s)
}

// Humanize turns a wire field name such as "dateEmbauche" into a label
// ("Date embauche"). Schemas usually carry explicit labels; this is the fallback.
func Humanize(field string) string {
	if field == "" {
		return ""
	}
	var words []string
	var current []rune
	for i, r := range field {
		if r == '_' || r == '-' {
			if len(current) > 0 {
				words = append(words, string(current))
				current = current[:0]
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 && len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
		current = append(current, unicode.ToLower(r))
	}
	if len(current) > 0 {
		words = append(words, string(current))
	}
	if len(words) == 0 {
		return ""
	}
	words[0] = titler.String(words[0])
	return strings.Join(words, " ")
}
