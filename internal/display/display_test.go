package display

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

// digits strips grouping separators, whose exact code point depends on CLDR data.
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ' ' || r == ' ' {
			return -1
		}
		return r
	}, s)
}

func TestAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0,00"},
		{1000, "1000,00"},
		{1234.5, "1234,50"},
		{-12.5, "-12,50"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, digits(Amount(tt.in)))
		})
	}
}

func TestAmount_GroupsThousands(t *testing.T) {
	got := Amount(1234567)
	assert.NotEqual(t, "1234567,00", got, "thousands should be grouped")
	assert.Equal(t, "1234567,00", digits(got))
}

func TestNumberAndInteger(t *testing.T) {
	assert.Equal(t, "12,5", digits(Number(12.5)))
	assert.Equal(t, "3", digits(Number(3)))
	assert.Equal(t, "25000", digits(Integer(25000)))
	assert.Equal(t, "4,75%", digits(Percent(4.75)))
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"nom":                "Nom",
		"dateEmbauche":       "Date embauche",
		"compteContrepartie": "Compte contrepartie",
		"user_creation":      "User creation",
	}
	for in, want := range tests {
		assert.Equal(t, want, Humanize(in), "Humanize(%q)", in)
	}
}

func TestBool(t *testing.T) {
	assert.Equal(t, "Oui", Bool(true))
	assert.Equal(t, "Non", Bool(false))
}
