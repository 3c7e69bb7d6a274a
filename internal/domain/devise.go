package domain

import (
	"strconv"
	"strings"
	"unicode"
)

// Devise is a currency with its exchange rate against the reference currency.
type Devise struct {
	ID         int64   `json:"id,omitempty"`
	Code       string  `json:"code"`
	Libelle    string  `json:"libelle"`
	Symbole    string  `json:"symbole"`
	TauxChange float64 `json:"tauxChange"`
	ParDefaut  bool    `json:"parDefaut"`
}

func (d Devise) Key() string {
	return strconv.FormatInt(d.ID, 10)
}

// Validate requires an ISO 4217 style code, a label and a positive rate.
func (d Devise) Validate(op string) *ValidationError {
	ve := &ValidationError{Op: op}
	if !isCurrencyCode(strings.TrimSpace(d.Code)) {
		ve.Add("code", "Le code devise doit comporter 3 lettres.")
	}
	if strings.TrimSpace(d.Libelle) == "" {
		ve.Add("libelle", "Le libellé de la devise est obligatoire.")
	}
	if d.TauxChange <= 0 {
		ve.Add("tauxChange", "Le taux de change doit être strictement positif.")
	}
	return ve
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
