package domain

import "fmt"

// Exercice is an accounting period. The active one is chosen elsewhere and
// travels with the session.
type Exercice struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Libelle   string `json:"libelle"`
	DateDebut Date   `json:"dateDebut"`
	DateFin   Date   `json:"dateFin"`
	Cloture   bool   `json:"cloture"`
}

// Label returns a short human description of the period.
func (e Exercice) Label() string {
	if e.Libelle != "" {
		return e.Libelle
	}
	if !e.DateDebut.IsZero() && !e.DateFin.IsZero() {
		return fmt.Sprintf("%s – %s", e.DateDebut.Display(), e.DateFin.Display())
	}
	return e.Code
}

// Contains reports whether d falls within the period, bounds included.
func (e Exercice) Contains(d Date) bool {
	if d.IsZero() || e.DateDebut.IsZero() || e.DateFin.IsZero() {
		return false
	}
	return !d.Before(e.DateDebut) && !e.DateFin.Before(d)
}
