package domain

import (
	"mime"
	"path/filepath"
	"strings"
)

const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeGIF  = "image/gif"
	MimeWEBP = "image/webp"
)

var extensionTypes = map[string]string{
	".pdf":  MimePDF,
	".png":  MimePNG,
	".jpg":  MimeJPEG,
	".jpeg": MimeJPEG,
	".gif":  MimeGIF,
	".webp": MimeWEBP,
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// RawFile is a file as handed to ingestion, before any validation.
type RawFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// MimeTypeByExtension maps a file name to a media type, or "" when unknown.
func MimeTypeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}

	return ""
}

// NormalizeMimeType strips parameters and lowercases a declared content type.
func NormalizeMimeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}

	return mt
}

func IsSupportedMimeType(mt string) bool {
	return mt == MimePDF || strings.HasPrefix(mt, "image/")
}
