package domain

import (
	"strconv"
	"strings"
)

// JournalType classifies an accounting journal.
type JournalType string

const (
	JournalAchat  JournalType = "ACHAT"
	JournalVente  JournalType = "VENTE"
	JournalBanque JournalType = "BANQUE"
	JournalCaisse JournalType = "CAISSE"
	JournalOD     JournalType = "OD"
)

// JournalTypes lists the accepted journal types in display order.
var JournalTypes = []JournalType{JournalAchat, JournalVente, JournalBanque, JournalCaisse, JournalOD}

// IsValid returns true if the type is a recognized value.
func (t JournalType) IsValid() bool {
	for _, known := range JournalTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Journal is an accounting journal attached to an accounting period.
type Journal struct {
	ID                 int64       `json:"id,omitempty"`
	Code               string      `json:"code"`
	Libelle            string      `json:"libelle"`
	Type               JournalType `json:"type"`
	CompteContrepartie string      `json:"compteContrepartie"`
	ExerciceID         int64       `json:"exerciceId"`
	UserCreation       string      `json:"userCreation"`
}

func (j Journal) Key() string {
	return strconv.FormatInt(j.ID, 10)
}

func (j Journal) Validate(op string) *ValidationError {
	ve := &ValidationError{Op: op}
	if strings.TrimSpace(j.Code) == "" {
		ve.Add("code", "Le code du journal est obligatoire.")
	}
	if strings.TrimSpace(j.Libelle) == "" {
		ve.Add("libelle", "Le libellé du journal est obligatoire.")
	}
	if !j.Type.IsValid() {
		ve.Add("type", "Le type de journal est invalide.")
	}
	return ve
}
