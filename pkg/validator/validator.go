// Package validator checks candidate source documents before they enter the workflow.
//
// The check is deliberately shallow: only the trailing extension token and the
// declared size are inspected. File content is never sniffed.
package validator

import (
	"path/filepath"
	"strings"

	"github.com/aretw0/tracescribe/pkg/domain"
)

// MaxFileSize is the largest accepted document, inclusive.
const MaxFileSize int64 = 10 * 1024 * 1024

const (
	ReasonExtension = "Please upload a .docx, .pdf, or .txt file"
	ReasonTooLarge  = "File too large. Maximum size is 10 MB."
)

var acceptedExtensions = []string{"docx", "pdf", "txt"}

// AcceptedExtensions returns the allow-list with leading dots, for display.
func AcceptedExtensions() []string {
	out := make([]string, len(acceptedExtensions))
	for i, ext := range acceptedExtensions {
		out[i] = "." + ext
	}
	return out
}

// Validate accepts f or returns a *domain.RejectionError.
// Rules apply in order and the first failure wins:
//  1. the text after the last "." must be docx, pdf or txt, ignoring case
//  2. the size must not exceed MaxFileSize
func Validate(f domain.FileRef) error {
	if !hasAcceptedExtension(f.Name) {
		return &domain.RejectionError{File: f.Name, Reason: ReasonExtension}
	}
	if f.Size > MaxFileSize {
		return &domain.RejectionError{File: f.Name, Reason: ReasonTooLarge}
	}
	return nil
}

func hasAcceptedExtension(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	ext := strings.ToLower(name[i+1:])
	for _, allowed := range acceptedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Stat builds a FileRef for a local path and validates it.
// The returned FileRef is usable even when validation fails, so callers can show it.
func Stat(path string) (domain.FileRef, error) {
	f, err := domain.LocalFile(filepath.Clean(path))
	if err != nil {
		return domain.FileRef{}, err
	}
	return f, Validate(f)
}
