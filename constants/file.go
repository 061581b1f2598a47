package constants

import (
	"mime"
	"strings"
)

// DocumentFormat is the canonical input format of a source document.
type DocumentFormat string

const (
	PDF     DocumentFormat = "PDF"
	XLSX    DocumentFormat = "XLSX"
	CSV     DocumentFormat = "CSV"
	DOCX    DocumentFormat = "DOCX"
	ODT     DocumentFormat = "ODT"
	RTF     DocumentFormat = "RTF"
	TXT     DocumentFormat = "TXT"
	UNKNOWN DocumentFormat = "UNKNOWN"
)

// AllowedExtensions holds the default allowed file extensions for document import.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xlsx": {},
	"xlsm": {},
	"csv":  {},
	"docx": {},
	"odt":  {},
	"rtf":  {},
	"txt":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat maps a file extension (with or without dot) to a DocumentFormat.
func MapExtToFormat(ext string) DocumentFormat {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "xlsx", "xlsm":
		return XLSX
	case "csv":
		return CSV
	case "docx":
		return DOCX
	case "odt":
		return ODT
	case "rtf":
		return RTF
	case "txt":
		return TXT
	default:
		return UNKNOWN
	}
}

// MapMIMEToFormat maps a declared MIME type to a DocumentFormat.
func MapMIMEToFormat(mimeType string) DocumentFormat {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return UNKNOWN
	}
	switch mt {
	case "application/pdf":
		return PDF
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel.sheet.macroenabled.12":
		return XLSX
	case "text/csv":
		return CSV
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return DOCX
	case "application/vnd.oasis.opendocument.text":
		return ODT
	case "application/rtf", "text/rtf":
		return RTF
	case "text/plain":
		return TXT
	default:
		return UNKNOWN
	}
}

// MIMEForFormat returns the MIME type sent to model providers for inline documents.
func MIMEForFormat(f DocumentFormat) string {
	switch f {
	case PDF:
		return "application/pdf"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case CSV:
		return "text/csv"
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ODT:
		return "application/vnd.oasis.opendocument.text"
	case RTF:
		return "application/rtf"
	case TXT:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// HasLayout reports whether the format yields positioned tokens.
func (f DocumentFormat) HasLayout() bool {
	return f == PDF || f == XLSX || f == CSV
}
