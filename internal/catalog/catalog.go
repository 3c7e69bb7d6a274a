// Package catalog declares the screen schema of every entity served by the
// back-office. Adding an entity means adding one schema here and one route
// registration in the server.
package catalog

import (
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/session"
)

// Entry is a navigation entry for one entity screen.
type Entry struct {
	Path  string
	Title string
}

// Entries lists the entity screens in navigation order.
func Entries() []Entry {
	return []Entry{
		{Path: Banques().Path, Title: Banques().Title},
		{Path: Devises().Path, Title: Devises().Title},
		{Path: Journals().Path, Title: Journals().Title},
		{Path: Engins().Path, Title: Engins().Title},
		{Path: Tarifs().Path, Title: Tarifs().Title},
		{Path: Employes().Path, Title: Employes().Title},
		{Path: Restructurations().Path, Title: Restructurations().Title},
	}
}

// stampUser records who created the record when it is not set yet.
func stampUser(field *string, sess session.Context) {
	if *field == "" {
		*field = sess.User
	}
}

func validator[T interface {
	Validate(op string) *domain.ValidationError
}]() func(op string, record T) *domain.ValidationError {
	return func(op string, record T) *domain.ValidationError {
		return record.Validate(op)
	}
}
