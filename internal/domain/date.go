package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date layouts used on the wire and on screen.
const (
	ISODateLayout     = "2006-01-02"
	DisplayDateLayout = "02/01/2006"
)

// Date is a calendar date without time of day.
//
// The zero Date is "no date": it marshals to JSON null and displays as "".
// Non-zero dates travel as ISO (YYYY-MM-DD) and display as dd/mm/yyyy.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ISO returns the wire representation, or "" for the zero Date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(ISODateLayout)
}

// Display returns the dd/mm/yyyy representation, or "" for the zero Date.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DisplayDateLayout)
}

// Before reports whether d is strictly before other. Zero dates never compare.
func (d Date) Before(other Date) bool {
	if d.IsZero() || other.IsZero() {
		return false
	}
	return d.Time.Before(other.Time)
}

// Equal reports whether both dates denote the same day (or are both zero).
func (d Date) Equal(other Date) bool {
	if d.IsZero() || other.IsZero() {
		return d.IsZero() == other.IsZero()
	}
	return d.ISO() == other.ISO()
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.ISO())
}

// UnmarshalJSON accepts null, "", an ISO date or an RFC 3339 timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: expected string, got %s", data)
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseISODate parses YYYY-MM-DD or an RFC 3339 timestamp. Blank input yields the zero Date.
func ParseISODate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(ISODateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	// Backends often send local timestamps without zone.
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("date: cannot parse %q", s)
}

// ParseDisplayDate parses dd/mm/yyyy. ISO input is accepted too, since HTML
// date inputs post YYYY-MM-DD. Blank input yields the zero Date.
func ParseDisplayDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DisplayDateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if d, err := ParseISODate(s); err == nil {
		return d, nil
	}
	return Date{}, fmt.Errorf("date: %q is not a dd/mm/yyyy date", s)
}

// DisplayToISO converts dd/mm/yyyy to YYYY-MM-DD.
func DisplayToISO(s string) (string, error) {
	d, err := ParseDisplayDate(s)
	if err != nil {
		return "", err
	}
	return d.ISO(), nil
}

// ISOToDisplay converts YYYY-MM-DD (or RFC 3339) to dd/mm/yyyy.
func ISOToDisplay(s string) (string, error) {
	d, err := ParseISODate(s)
	if err != nil {
		return "", err
	}
	return d.Display(), nil
}
