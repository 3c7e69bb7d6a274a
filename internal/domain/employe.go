package domain

import (
	"strconv"
	"strings"
)

// Employe is a payroll employee record.
type Employe struct {
	ID            int64   `json:"id,omitempty"`
	Matricule     string  `json:"matricule"`
	Nom           string  `json:"nom"`
	Prenom        string  `json:"prenom"`
	DateNaissance Date    `json:"dateNaissance"`
	DateEmbauche  Date    `json:"dateEmbauche"`
	Salaire       float64 `json:"salaire"`
	Actif         bool    `json:"actif"`
}

func (e Employe) Key() string {
	return strconv.FormatInt(e.ID, 10)
}

// FullName returns "NOM Prénom".
func (e Employe) FullName() string {
	return strings.TrimSpace(strings.ToUpper(e.Nom) + " " + e.Prenom)
}

func (e Employe) Validate(op string) *ValidationError {
	ve := &ValidationError{Op: op}
	if strings.TrimSpace(e.Matricule) == "" {
		ve.Add("matricule", "Le matricule est obligatoire.")
	}
	if strings.TrimSpace(e.Nom) == "" {
		ve.Add("nom", "Le nom de l'employé est obligatoire.")
	}
	if e.DateEmbauche.IsZero() {
		ve.Add("dateEmbauche", "La date d'embauche est obligatoire.")
	} else if e.DateEmbauche.Before(e.DateNaissance) {
		ve.Add("dateEmbauche", "La date d'embauche ne peut pas précéder la date de naissance.")
	}
	if e.Salaire < 0 {
		ve.Add("salaire", "Le salaire ne peut pas être négatif.")
	}
	return ve
}
