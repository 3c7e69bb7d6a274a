package domain

import (
	"strconv"
	"strings"
)

// Engin is a piece of equipment held in stock.
type Engin struct {
	ID           int64   `json:"id,omitempty"`
	Nom          string  `json:"nom"`
	Prix         float64 `json:"prix"`
	Description  string  `json:"description"`
	UserCreation string  `json:"userCreation"`
}

func (e Engin) Key() string {
	return strconv.FormatInt(e.ID, 10)
}

func (e Engin) Validate(op string) *ValidationError {
	ve := &ValidationError{Op: op}
	if strings.TrimSpace(e.Nom) == "" {
		ve.Add("nom", "Le nom de l'engin est obligatoire.")
	}
	if e.Prix < 0 {
		ve.Add("prix", "Le prix ne peut pas être négatif.")
	}
	return ve
}
