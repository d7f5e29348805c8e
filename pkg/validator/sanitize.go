package validator

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNameLength bounds file names received from remote callers.
const maxNameLength = 255

// SanitizeName cleans a client-supplied file name before it is logged or echoed back.
// Directory components are dropped, invalid UTF-8 is replaced and control characters
// are stripped. The extension is preserved so validation still sees it.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}

	if !utf8.ValidString(name) {
		name = strings.ToValidUTF8(name, "\uFFFD")
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		cut := maxNameLength - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return strings.TrimSpace(name)
}
