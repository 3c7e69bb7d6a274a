package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "null", input: `null`, want: Date{}},
		{name: "empty string", input: `""`, want: Date{}},
		{name: "iso date", input: `"2024-03-15"`, want: NewDate(2024, time.March, 15)},
		{name: "rfc3339 timestamp", input: `"2024-03-15T10:20:30Z"`, want: NewDate(2024, time.March, 15)},
		{name: "local timestamp", input: `"2024-03-15T10:20:30"`, want: NewDate(2024, time.March, 15)},
		{name: "display format is not wire format", input: `"15/03/2024"`, wantErr: true},
		{name: "number", input: `20240315`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Date
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want.ISO(), got.ISO())
		})
	}
}

func TestDate_MarshalJSON(t *testing.T) {
	payload := struct {
		Empty Date `json:"empty"`
		Set   Date `json:"set"`
	}{Set: NewDate(2023, time.December, 1)}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"empty":null,"set":"2023-12-01"}`, string(data))
}

func TestDateConversions(t *testing.T) {
	iso, err := DisplayToISO("05/07/2022")
	require.NoError(t, err)
	assert.Equal(t, "2022-07-05", iso)

	display, err := ISOToDisplay("2022-07-05")
	require.NoError(t, err)
	assert.Equal(t, "05/07/2022", display)

	// HTML date inputs post ISO; both forms are accepted on input.
	d, err := ParseDisplayDate("2022-07-05")
	require.NoError(t, err)
	assert.Equal(t, "05/07/2022", d.Display())

	blank, err := ParseDisplayDate("  ")
	require.NoError(t, err)
	assert.True(t, blank.IsZero())
	assert.Equal(t, "", blank.Display())

	_, err = ParseDisplayDate("31/02/2022")
	assert.Error(t, err)
}

func TestExercice_Contains(t *testing.T) {
	ex := Exercice{
		DateDebut: NewDate(2024, time.January, 1),
		DateFin:   NewDate(2024, time.December, 31),
	}

	assert.True(t, ex.Contains(NewDate(2024, time.January, 1)))
	assert.True(t, ex.Contains(NewDate(2024, time.June, 30)))
	assert.True(t, ex.Contains(NewDate(2024, time.December, 31)))
	assert.False(t, ex.Contains(NewDate(2025, time.January, 1)))
	assert.False(t, ex.Contains(Date{}))
	assert.Equal(t, "01/01/2024 – 31/12/2024", ex.Label())
}
