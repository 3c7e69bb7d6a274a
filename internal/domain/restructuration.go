package domain

import (
	"strconv"
	"strings"
)

// Restructuration reschedules an outstanding loan.
type Restructuration struct {
	ID                  int64   `json:"id,omitempty"`
	NumeroPret          string  `json:"numeroPret"`
	DateRestructuration Date    `json:"dateRestructuration"`
	NouveauMontant      float64 `json:"nouveauMontant"`
	NouvelleDuree       int     `json:"nouvelleDuree"`
	Taux                float64 `json:"taux"`
	Motif               string  `json:"motif"`
	UserCreation        string  `json:"userCreation"`
}

func (r Restructuration) Key() string {
	return strconv.FormatInt(r.ID, 10)
}

func (r Restructuration) Validate(op string) *ValidationError {
	ve := &ValidationError{Op: op}
	if strings.TrimSpace(r.NumeroPret) == "" {
		ve.Add("numeroPret", "Le numéro de prêt est obligatoire.")
	}
	if r.DateRestructuration.IsZero() {
		ve.Add("dateRestructuration", "La date de restructuration est obligatoire.")
	}
	if r.NouveauMontant <= 0 {
		ve.Add("nouveauMontant", "Le nouveau montant doit être strictement positif.")
	}
	if r.NouvelleDuree <= 0 {
		ve.Add("nouvelleDuree", "La nouvelle durée doit être strictement positive.")
	}
	if r.Taux < 0 || r.Taux > 100 {
		ve.Add("taux", "Le taux doit être compris entre 0 et 100.")
	}
	return ve
}
