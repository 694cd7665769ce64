package sheet

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZipFixture(t *testing.T, path string, parts ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, part := range parts {
		pw, err := w.Create(part)
		require.NoError(t, err)
		_, err = pw.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()

	t.Run("should detect an xlsx container", func(t *testing.T) {
		path := filepath.Join(dir, "a.xlsx")
		writeZipFixture(t, path, "xl/workbook.xml")

		assert.Equal(t, FormatXLSX, Detect(path))
	})

	t.Run("should detect an xlsb container regardless of extension", func(t *testing.T) {
		path := filepath.Join(dir, "b.xlsx")
		writeZipFixture(t, path, "xl/workbook.bin")

		assert.Equal(t, FormatXLSB, Detect(path))
	})

	t.Run("should detect a legacy xls container by its magic", func(t *testing.T) {
		path := filepath.Join(dir, "c.xlsx")
		header := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 512)...)
		require.NoError(t, os.WriteFile(path, header, 0o644))

		assert.Equal(t, FormatXLS, Detect(path))
	})

	t.Run("should fall back to the extension for unreadable files", func(t *testing.T) {
		assert.Equal(t, FormatXLS, Detect(filepath.Join(dir, "missing.xls")))
		assert.Equal(t, FormatXLSB, Detect(filepath.Join(dir, "missing.xlsb")))
		assert.Equal(t, FormatUnknown, Detect(filepath.Join(dir, "missing.txt")))
	})

	t.Run("should report unknown for plain text", func(t *testing.T) {
		path := filepath.Join(dir, "d.csv")
		require.NoError(t, os.WriteFile(path, []byte("a;b;c\n1;2;3\n"), 0o644))

		assert.Equal(t, FormatUnknown, Detect(path))
	})
}
