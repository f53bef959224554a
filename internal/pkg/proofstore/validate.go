package proofstore

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxProofSize bounds uploaded proof files.
const MaxProofSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("only JPG, PNG, WEBP, GIF, HEIC and PDF proofs are supported")
	ErrEmptyFile       = errors.New("proof file is empty")
	ErrTooLarge        = errors.New("proof file is too large")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
	".pdf":  true,
}

var allowedMime = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"application/pdf": ".pdf",
}

// Validate checks the filename extension and the sniffed content of head
// and returns the detected MIME type. SVG and HTML are always refused.
func Validate(filename string, head []byte) (string, error) {
	if len(head) == 0 {
		return "", ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}

	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := allowedMime[m.String()]; ok {
			return m.String(), nil
		}
	}
	return "", ErrUnsupportedType
}

// Extension returns the canonical file extension for an accepted MIME type.
func Extension(contentType string) string {
	if ext, ok := allowedMime[contentType]; ok {
		return ext
	}
	return ".bin"
}
