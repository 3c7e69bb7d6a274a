package domain

import (
	"strconv"
	"strings"
)

// Tarif prices a weight bracket [Poids1, Poids2).
type Tarif struct {
	ID      int64   `json:"id,omitempty"`
	Libelle string  `json:"libelle"`
	Poids1  float64 `json:"poids1"`
	Poids2  float64 `json:"poids2"`
	Montant float64 `json:"montant"`
}

func (t Tarif) Key() string {
	return strconv.FormatInt(t.ID, 10)
}

// Validate requires an ordered weight bracket: Poids1 must be strictly below Poids2.
func (t Tarif) Validate(op string) *ValidationError {
	ve := &ValidationError{Op: op}
	if strings.TrimSpace(t.Libelle) == "" {
		ve.Add("libelle", "Le libellé du tarif est obligatoire.")
	}
	if t.Poids1 < 0 {
		ve.Add("poids1", "Le poids minimum ne peut pas être négatif.")
	}
	if t.Poids1 >= t.Poids2 {
		ve.Add("poids2", "Le poids maximum doit être supérieur au poids minimum.")
	}
	if t.Montant < 0 {
		ve.Add("montant", "Le montant ne peut pas être négatif.")
	}
	return ve
}
