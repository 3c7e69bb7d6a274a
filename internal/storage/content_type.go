package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Types of the files guichet stores. mime.TypeByExtension depends on the
// host's mime tables, so the common ones are fixed here.
var knownTypes = map[string]string{
	".csv":  "text/csv; charset=utf-8",
	".pdf":  "application/pdf",
	".html": "text/html; charset=utf-8",
	".json": "application/json",
}

// DetectContentType determines the MIME type of a file.
//
// Detection priority:
// 1. providedType, when non-empty
// 2. the key's extension
// 3. sniffing the first 512 bytes of data, when given
// 4. "application/octet-stream"
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

func baseType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(t))
}

// IsPDF returns true if the content type is a PDF document.
func IsPDF(contentType string) bool {
	return baseType(contentType) == "application/pdf"
}

// IsExport returns true for the formats an export can produce.
func IsExport(contentType string) bool {
	switch baseType(contentType) {
	case "text/csv", "application/pdf", "text/html":
		return true
	}
	return false
}

// contentDisposition builds an attachment header for a download name.
func contentDisposition(filename string) string {
	if filename == "" {
		return ""
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
