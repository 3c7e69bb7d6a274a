package catalog

import (
	"github.com/DukeRupert/guichet/internal/display"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/screen"
	"github.com/DukeRupert/guichet/internal/session"
)

// DevisesReference feeds currency selects.
var DevisesReference = screen.Reference{
	Tag:        "loadDevises",
	Path:       "devises",
	ValueField: "code",
	LabelField: "libelle",
}

// Banques is the bank screen.
func Banques() *screen.Schema[domain.Banque] {
	return &screen.Schema[domain.Banque]{
		Entity: "Banque",
		Plural: "Banques",
		Path:   "banques",
		Title:  "Banques",
		Fields: []screen.Field[domain.Banque]{
			screen.Text("code", "Code",
				func(b domain.Banque) string { return b.Code },
				func(b *domain.Banque, v string) { b.Code = display.Upper(v) }).Require(),
			screen.Text("nom", "Nom",
				func(b domain.Banque) string { return b.Nom },
				func(b *domain.Banque, v string) { b.Nom = v }).Require(),
			screen.Text("adresse", "Adresse",
				func(b domain.Banque) string { return b.Adresse },
				func(b *domain.Banque, v string) { b.Adresse = v }).Multiline(),
			screen.Text("telephone", "Téléphone",
				func(b domain.Banque) string { return b.Telephone },
				func(b *domain.Banque, v string) { b.Telephone = v }),
			screen.Text("swift", "Code SWIFT",
				func(b domain.Banque) string { return b.Swift },
				func(b *domain.Banque, v string) { b.Swift = display.Upper(v) }),
			screen.Select("deviseCode", "Devise", nil, DevisesReference.Tag,
				func(b domain.Banque) string { return b.DeviseCode },
				func(b *domain.Banque, v string) { b.DeviseCode = v }),
		},
		Columns: []screen.Column[domain.Banque]{
			screen.TextColumn("Code", func(b domain.Banque) string { return b.Code }),
			screen.TextColumn("Nom", func(b domain.Banque) string { return b.Nom }),
			screen.TextColumn("Téléphone", func(b domain.Banque) string { return b.Telephone }),
			screen.TextColumn("SWIFT", func(b domain.Banque) string { return b.Swift }),
			screen.TextColumn("Devise", func(b domain.Banque) string { return b.DeviseCode }),
		},
		Key:      domain.Banque.Key,
		Validate: validator[domain.Banque](),
		Stamp: func(b *domain.Banque, sess session.Context) {
			stampUser(&b.UserCreation, sess)
		},
		References: []screen.Reference{DevisesReference},
	}
}

// Devises is the currency screen.
func Devises() *screen.Schema[domain.Devise] {
	return &screen.Schema[domain.Devise]{
		Entity: "Devise",
		Plural: "Devises",
		Path:   "devises",
		Title:  "Devises",
		Fields: []screen.Field[domain.Devise]{
			screen.Text("code", "Code ISO",
				func(d domain.Devise) string { return d.Code },
				func(d *domain.Devise, v string) { d.Code = display.Upper(v) }).Require(),
			screen.Text("libelle", "Libellé",
				func(d domain.Devise) string { return d.Libelle },
				func(d *domain.Devise, v string) { d.Libelle = v }).Require(),
			screen.Text("symbole", "Symbole",
				func(d domain.Devise) string { return d.Symbole },
				func(d *domain.Devise, v string) { d.Symbole = v }),
			screen.Number("tauxChange", "Taux de change",
				func(d domain.Devise) float64 { return d.TauxChange },
				func(d *domain.Devise, v float64) { d.TauxChange = v }).Require(),
			screen.Bool("parDefaut", "Devise par défaut",
				func(d domain.Devise) bool { return d.ParDefaut },
				func(d *domain.Devise, v bool) { d.ParDefaut = v }),
		},
		Columns: []screen.Column[domain.Devise]{
			screen.TextColumn("Code", func(d domain.Devise) string { return d.Code }),
			screen.TextColumn("Libellé", func(d domain.Devise) string { return d.Libelle }),
			screen.TextColumn("Symbole", func(d domain.Devise) string { return d.Symbole }),
			screen.NumberColumn("Taux", func(d domain.Devise) float64 { return d.TauxChange }),
			screen.TextColumn("Par défaut", func(d domain.Devise) string { return display.Bool(d.ParDefaut) }),
		},
		Key:      domain.Devise.Key,
		Validate: validator[domain.Devise](),
	}
}

// Journals is the accounting journal screen. New journals belong to the
// session's current exercice.
func Journals() *screen.Schema[domain.Journal] {
	types := make([]screen.Option, 0, len(domain.JournalTypes))
	for _, t := range domain.JournalTypes {
		types = append(types, screen.Option{Value: string(t), Label: display.Title(string(t))})
	}

	return &screen.Schema[domain.Journal]{
		Entity: "Journal",
		Plural: "Journals",
		Path:   "journals",
		Title:  "Journaux",
		Fields: []screen.Field[domain.Journal]{
			screen.Text("code", "Code",
				func(j domain.Journal) string { return j.Code },
				func(j *domain.Journal, v string) { j.Code = display.Upper(v) }).Require(),
			screen.Text("libelle", "Libellé",
				func(j domain.Journal) string { return j.Libelle },
				func(j *domain.Journal, v string) { j.Libelle = v }).Require(),
			screen.Select("type", "Type", types, "",
				func(j domain.Journal) string { return string(j.Type) },
				func(j *domain.Journal, v string) { j.Type = domain.JournalType(v) }).Require(),
			screen.Text("compteContrepartie", "Compte de contrepartie",
				func(j domain.Journal) string { return j.CompteContrepartie },
				func(j *domain.Journal, v string) { j.CompteContrepartie = v }),
		},
		Columns: []screen.Column[domain.Journal]{
			screen.TextColumn("Code", func(j domain.Journal) string { return j.Code }),
			screen.TextColumn("Libellé", func(j domain.Journal) string { return j.Libelle }),
			screen.TextColumn("Type", func(j domain.Journal) string { return string(j.Type) }),
			screen.TextColumn("Contrepartie", func(j domain.Journal) string { return j.CompteContrepartie }),
		},
		Key:      domain.Journal.Key,
		Validate: validator[domain.Journal](),
		Stamp: func(j *domain.Journal, sess session.Context) {
			stampUser(&j.UserCreation, sess)
			if j.ExerciceID == 0 {
				j.ExerciceID = sess.ExerciceID()
			}
		},
	}
}

// Restructurations is the loan rescheduling screen.
func Restructurations() *screen.Schema[domain.Restructuration] {
	return &screen.Schema[domain.Restructuration]{
		Entity: "Restructuration",
		Plural: "Restructurations",
		Path:   "restructurations",
		Title:  "Restructurations de prêts",
		Fields: []screen.Field[domain.Restructuration]{
			screen.Text("numeroPret", "N° de prêt",
				func(r domain.Restructuration) string { return r.NumeroPret },
				func(r *domain.Restructuration, v string) { r.NumeroPret = v }).Require(),
			screen.Date("dateRestructuration", "Date de restructuration",
				func(r domain.Restructuration) domain.Date { return r.DateRestructuration },
				func(r *domain.Restructuration, v domain.Date) { r.DateRestructuration = v }).Require(),
			screen.Number("nouveauMontant", "Nouveau montant",
				func(r domain.Restructuration) float64 { return r.NouveauMontant },
				func(r *domain.Restructuration, v float64) { r.NouveauMontant = v }).Require(),
			screen.Integer("nouvelleDuree", "Nouvelle durée (mois)",
				func(r domain.Restructuration) int { return r.NouvelleDuree },
				func(r *domain.Restructuration, v int) { r.NouvelleDuree = v }).Require(),
			screen.Number("taux", "Taux (%)",
				func(r domain.Restructuration) float64 { return r.Taux },
				func(r *domain.Restructuration, v float64) { r.Taux = v }),
			screen.Text("motif", "Motif",
				func(r domain.Restructuration) string { return r.Motif },
				func(r *domain.Restructuration, v string) { r.Motif = v }).Multiline(),
		},
		Columns: []screen.Column[domain.Restructuration]{
			screen.TextColumn("N° prêt", func(r domain.Restructuration) string { return r.NumeroPret }),
			screen.DateColumn("Date", func(r domain.Restructuration) domain.Date { return r.DateRestructuration }),
			screen.AmountColumn("Montant", func(r domain.Restructuration) float64 { return r.NouveauMontant }),
			screen.Column[domain.Restructuration]{Header: "Durée", Numeric: true, Value: func(r domain.Restructuration) string {
				return display.Integer(int64(r.NouvelleDuree))
			}},
			screen.Column[domain.Restructuration]{Header: "Taux", Numeric: true, Value: func(r domain.Restructuration) string {
				return display.Percent(r.Taux)
			}},
		},
		Key:      domain.Restructuration.Key,
		Validate: validator[domain.Restructuration](),
		Stamp: func(r *domain.Restructuration, sess session.Context) {
			stampUser(&r.UserCreation, sess)
		},
		Reports: []screen.Report{{Name: "echeancier", Label: "Échéancier"}},
	}
}
