package validator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		file       domain.FileRef
		wantReason string
	}{
		{"txt", domain.FileRef{Name: "notes.txt", Size: 2048}, ""},
		{"pdf", domain.FileRef{Name: "scan.pdf", Size: 1}, ""},
		{"uppercase docx", domain.FileRef{Name: "REPORT.DOCX", Size: 100}, ""},
		{"multiple dots", domain.FileRef{Name: "v1.2.final.docx", Size: 100}, ""},
		{"empty file", domain.FileRef{Name: "empty.txt", Size: 0}, ""},
		{"exactly max", domain.FileRef{Name: "big.pdf", Size: MaxFileSize}, ""},
		{"one byte over", domain.FileRef{Name: "big.pdf", Size: MaxFileSize + 1}, ReasonTooLarge},
		{"eleven MB pdf", domain.FileRef{Name: "huge.pdf", Size: 11 * 1024 * 1024}, ReasonTooLarge},
		{"wrong extension", domain.FileRef{Name: "sheet.xlsx", Size: 10}, ReasonExtension},
		{"no extension", domain.FileRef{Name: "README", Size: 10}, ReasonExtension},
		{"trailing dot", domain.FileRef{Name: "notes.", Size: 10}, ReasonExtension},
		{"extension in middle", domain.FileRef{Name: "notes.txt.exe", Size: 10}, ReasonExtension},
		{"extension wins over size", domain.FileRef{Name: "movie.mp4", Size: MaxFileSize * 3}, ReasonExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			var rej *domain.RejectionError
			require.True(t, errors.As(err, &rej), "expected RejectionError, got %v", err)
			assert.Equal(t, tt.wantReason, rej.Reason)
			assert.Equal(t, tt.file.Name, rej.File)
		})
	}
}

func TestAcceptedExtensions(t *testing.T) {
	assert.Equal(t, []string{".docx", ".pdf", ".txt"}, AcceptedExtensions())
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Input.TXT")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	f, err := Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "Input.TXT", f.Name)
	assert.Equal(t, int64(5), f.Size)

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()

	bad := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0644))
	f, err = Stat(bad)
	assert.Equal(t, "image.png", f.Name)
	var rej *domain.RejectionError
	assert.ErrorAs(t, err, &rej)

	_, err = Stat(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
	assert.False(t, errors.As(err, &rej))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "report.docx", SanitizeName("../../etc/report.docx"))
	assert.Equal(t, "report.docx", SanitizeName(`C:\Users\me\report.docx`))
	assert.Equal(t, "evil.txt", SanitizeName("ev\x1b\x00il.txt"))
	assert.Equal(t, "", SanitizeName("/"))

	long := strings.Repeat("a", 400) + ".pdf"
	got := SanitizeName(long)
	assert.LessOrEqual(t, len(got), maxNameLength)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}
