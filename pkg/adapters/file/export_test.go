package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_CreatesDirectory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "out.docx")
	require.NoError(t, WriteFile(dest, []byte("data")))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestDestination(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join("docs", "report.pdf")

	assert.Equal(t, filepath.Join("docs", "sop_formatted.docx"), Destination("", source, "sop_formatted.docx"))
	assert.Equal(t, filepath.Join(dir, "sop_formatted.docx"), Destination(dir, source, "sop_formatted.docx"))
	assert.Equal(t, "custom.docx", Destination("custom.docx", source, "sop_formatted.docx"))
}
