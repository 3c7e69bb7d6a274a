package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTarif_Validate(t *testing.T) {
	tests := []struct {
		name      string
		tarif     Tarif
		wantField string
	}{
		{
			name:  "ordered bracket",
			tarif: Tarif{Libelle: "Colis", Poids1: 10, Poids2: 50, Montant: 1500},
		},
		{
			name:      "reversed bracket",
			tarif:     Tarif{Libelle: "Colis", Poids1: 50, Poids2: 10},
			wantField: "poids2",
		},
		{
			name:      "empty bracket",
			tarif:     Tarif{Libelle: "Colis", Poids1: 10, Poids2: 10},
			wantField: "poids2",
		},
		{
			name:      "missing label reported first",
			tarif:     Tarif{Poids1: 50, Poids2: 10},
			wantField: "libelle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ve := tt.tarif.Validate("createTarif")
			if tt.wantField == "" {
				assert.True(t, ve.Empty())
				assert.NoError(t, ve.Err())
				return
			}
			assert.Equal(t, tt.wantField, ve.FirstField())
			assert.Equal(t, EINVALID, ErrorCode(ve.Err()))
			assert.Equal(t, "createTarif", ErrorOp(ve.Err()))
		})
	}
}

func TestEntityValidation_RequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		ve        *ValidationError
		wantField string
	}{
		{name: "banque without code", ve: Banque{Nom: "BNP"}.Validate("op"), wantField: "code"},
		{name: "banque bad swift", ve: Banque{Code: "B1", Nom: "BNP", Swift: "ABC"}.Validate("op"), wantField: "swift"},
		{name: "banque ok", ve: Banque{Code: "B1", Nom: "BNP", Swift: "BNPAFRPP"}.Validate("op")},
		{name: "devise lowercase letters accepted", ve: Devise{Code: "eur", Libelle: "Euro", TauxChange: 1}.Validate("op")},
		{name: "devise bad code", ve: Devise{Code: "E1R", Libelle: "Euro", TauxChange: 1}.Validate("op"), wantField: "code"},
		{name: "devise zero rate", ve: Devise{Code: "EUR", Libelle: "Euro"}.Validate("op"), wantField: "tauxChange"},
		{name: "journal unknown type", ve: Journal{Code: "AC", Libelle: "Achats", Type: "X"}.Validate("op"), wantField: "type"},
		{name: "journal ok", ve: Journal{Code: "AC", Libelle: "Achats", Type: JournalAchat}.Validate("op")},
		{name: "engin blank name", ve: Engin{Nom: "  ", Prix: 10}.Validate("op"), wantField: "nom"},
		{name: "engin negative price", ve: Engin{Nom: "Grue", Prix: -1}.Validate("op"), wantField: "prix"},
		{
			name: "employe hired before birth",
			ve: Employe{
				Matricule:     "E01",
				Nom:           "Diallo",
				DateNaissance: NewDate(1990, time.May, 1),
				DateEmbauche:  NewDate(1980, time.May, 1),
			}.Validate("op"),
			wantField: "dateEmbauche",
		},
		{name: "employe missing hire date", ve: Employe{Matricule: "E01", Nom: "Diallo"}.Validate("op"), wantField: "dateEmbauche"},
		{
			name:      "restructuration rate out of range",
			ve:        Restructuration{NumeroPret: "P1", DateRestructuration: NewDate(2024, 1, 1), NouveauMontant: 10, NouvelleDuree: 12, Taux: 120}.Validate("op"),
			wantField: "taux",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantField == "" {
				assert.True(t, tt.ve.Empty(), "unexpected errors: %v", tt.ve.Fields)
				return
			}
			assert.Equal(t, tt.wantField, tt.ve.FirstField())
			assert.NotEmpty(t, tt.ve.Message())
		})
	}
}

func TestValidationError_KeepsFirstMessagePerField(t *testing.T) {
	ve := NewValidationError("op", "nom", "first")
	ve.Add("nom", "second")
	ve.Add("code", "other")

	assert.Equal(t, "nom", ve.FirstField())
	assert.Equal(t, "first", ve.Message())
	assert.Len(t, ve.Fields, 2)
}
