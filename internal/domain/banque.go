// Package domain contains core business types and interfaces.
//
// This file defines the Banque (bank) record managed by the banks screen.
package domain

import (
	"strconv"
	"strings"
)

// Banque is a bank the company holds accounts with.
type Banque struct {
	ID           int64  `json:"id,omitempty"`
	Code         string `json:"code"`
	Nom          string `json:"nom"`
	Adresse      string `json:"adresse"`
	Telephone    string `json:"telephone"`
	Swift        string `json:"swift"`
	DeviseCode   string `json:"deviseCode"`
	UserCreation string `json:"userCreation"`
}

// Key returns the backend identifier as used in update/delete paths.
func (b Banque) Key() string {
	return strconv.FormatInt(b.ID, 10)
}

// Validate checks the fields a bank cannot be saved without.
func (b Banque) Validate(op string) *ValidationError {
	ve := &ValidationError{Op: op}
	if strings.TrimSpace(b.Code) == "" {
		ve.Add("code", "Le code de la banque est obligatoire.")
	}
	if strings.TrimSpace(b.Nom) == "" {
		ve.Add("nom", "Le nom de la banque est obligatoire.")
	}
	if swift := strings.TrimSpace(b.Swift); swift != "" && len(swift) != 8 && len(swift) != 11 {
		ve.Add("swift", "Le code SWIFT doit comporter 8 ou 11 caractères.")
	}
	return ve
}
