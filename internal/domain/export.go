// Package domain contains core business types and interfaces.
//
// This file defines export formats for screen result sets.
package domain

// ExportFormat represents the output format of an export.
type ExportFormat string

const (
	// ExportFormatCSV generates a semicolon-delimited, BOM-prefixed CSV file.
	ExportFormatCSV ExportFormat = "csv"

	// ExportFormatPDF generates a PDF table.
	ExportFormatPDF ExportFormat = "pdf"

	// ExportFormatHTML generates a printable HTML page.
	ExportFormatHTML ExportFormat = "html"
)

// String returns the string representation of the format.
func (f ExportFormat) String() string {
	return string(f)
}

// IsValid returns true if the format is a recognized value.
func (f ExportFormat) IsValid() bool {
	switch f {
	case ExportFormatCSV, ExportFormatPDF, ExportFormatHTML:
		return true
	}
	return false
}

// ContentType returns the MIME content type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv; charset=utf-8"
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// FileExtension returns the file extension for the format.
func (f ExportFormat) FileExtension() string {
	return string(f)
}
