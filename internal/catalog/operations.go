package catalog

import (
	"github.com/DukeRupert/guichet/internal/display"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/screen"
	"github.com/DukeRupert/guichet/internal/session"
)

// Engins is the equipment stock screen.
func Engins() *screen.Schema[domain.Engin] {
	return &screen.Schema[domain.Engin]{
		Entity: "Engin",
		Plural: "Engins",
		Path:   "engins",
		Title:  "Engins",
		Fields: []screen.Field[domain.Engin]{
			screen.Text("nom", "Nom",
				func(e domain.Engin) string { return e.Nom },
				func(e *domain.Engin, v string) { e.Nom = v }).Require(),
			screen.Number("prix", "Prix",
				func(e domain.Engin) float64 { return e.Prix },
				func(e *domain.Engin, v float64) { e.Prix = v }),
			screen.Text("description", "Description",
				func(e domain.Engin) string { return e.Description },
				func(e *domain.Engin, v string) { e.Description = v }).Multiline(),
		},
		Columns: []screen.Column[domain.Engin]{
			screen.TextColumn("Nom", func(e domain.Engin) string { return e.Nom }),
			screen.AmountColumn("Prix", func(e domain.Engin) float64 { return e.Prix }),
			screen.TextColumn("Description", func(e domain.Engin) string { return e.Description }),
		},
		Key:      domain.Engin.Key,
		Validate: validator[domain.Engin](),
		Stamp: func(e *domain.Engin, sess session.Context) {
			stampUser(&e.UserCreation, sess)
		},
		AllowDelete: true,
		Reports:     []screen.Report{{Name: "inventaire", Label: "Inventaire"}},
	}
}

// Tarifs is the weight bracket pricing screen.
func Tarifs() *screen.Schema[domain.Tarif] {
	return &screen.Schema[domain.Tarif]{
		Entity: "Tarif",
		Plural: "Tarifs",
		Path:   "tarifs",
		Title:  "Tarifs",
		Fields: []screen.Field[domain.Tarif]{
			screen.Text("libelle", "Libellé",
				func(t domain.Tarif) string { return t.Libelle },
				func(t *domain.Tarif, v string) { t.Libelle = v }).Require(),
			screen.Number("poids1", "Poids minimum (kg)",
				func(t domain.Tarif) float64 { return t.Poids1 },
				func(t *domain.Tarif, v float64) { t.Poids1 = v }).Require(),
			screen.Number("poids2", "Poids maximum (kg)",
				func(t domain.Tarif) float64 { return t.Poids2 },
				func(t *domain.Tarif, v float64) { t.Poids2 = v }).Require(),
			screen.Number("montant", "Montant",
				func(t domain.Tarif) float64 { return t.Montant },
				func(t *domain.Tarif, v float64) { t.Montant = v }).Require(),
		},
		Columns: []screen.Column[domain.Tarif]{
			screen.TextColumn("Libellé", func(t domain.Tarif) string { return t.Libelle }),
			screen.NumberColumn("Poids min", func(t domain.Tarif) float64 { return t.Poids1 }),
			screen.NumberColumn("Poids max", func(t domain.Tarif) float64 { return t.Poids2 }),
			screen.AmountColumn("Montant", func(t domain.Tarif) float64 { return t.Montant }),
		},
		Key:         domain.Tarif.Key,
		Validate:    validator[domain.Tarif](),
		AllowDelete: true,
	}
}

// Employes is the payroll staff screen.
func Employes() *screen.Schema[domain.Employe] {
	return &screen.Schema[domain.Employe]{
		Entity: "Employe",
		Plural: "Employes",
		Path:   "employes",
		Title:  "Employés",
		Fields: []screen.Field[domain.Employe]{
			screen.Text("matricule", "Matricule",
				func(e domain.Employe) string { return e.Matricule },
				func(e *domain.Employe, v string) { e.Matricule = display.Upper(v) }).Require(),
			screen.Text("nom", "Nom",
				func(e domain.Employe) string { return e.Nom },
				func(e *domain.Employe, v string) { e.Nom = v }).Require(),
			screen.Text("prenom", "Prénom",
				func(e domain.Employe) string { return e.Prenom },
				func(e *domain.Employe, v string) { e.Prenom = v }),
			screen.Date("dateNaissance", "Date de naissance",
				func(e domain.Employe) domain.Date { return e.DateNaissance },
				func(e *domain.Employe, v domain.Date) { e.DateNaissance = v }),
			screen.Date("dateEmbauche", "Date d'embauche",
				func(e domain.Employe) domain.Date { return e.DateEmbauche },
				func(e *domain.Employe, v domain.Date) { e.DateEmbauche = v }).Require(),
			screen.Number("salaire", "Salaire de base",
				func(e domain.Employe) float64 { return e.Salaire },
				func(e *domain.Employe, v float64) { e.Salaire = v }),
			screen.Bool("actif", "Actif",
				func(e domain.Employe) bool { return e.Actif },
				func(e *domain.Employe, v bool) { e.Actif = v }),
		},
		Columns: []screen.Column[domain.Employe]{
			screen.TextColumn("Matricule", func(e domain.Employe) string { return e.Matricule }),
			screen.TextColumn("Nom", domain.Employe.FullName),
			screen.DateColumn("Embauche", func(e domain.Employe) domain.Date { return e.DateEmbauche }),
			screen.AmountColumn("Salaire", func(e domain.Employe) float64 { return e.Salaire }),
			screen.TextColumn("Actif", func(e domain.Employe) string { return display.Bool(e.Actif) }),
		},
		Key:      domain.Employe.Key,
		Validate: validator[domain.Employe](),
	}
}
