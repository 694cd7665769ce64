package sheet

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Format is the real workbook container of a file, which may disagree with
// its extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatXLSB
	FormatXLS
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLSB:
		return "xlsb"
	case FormatXLS:
		return "xls"
	default:
		return "unknown"
	}
}

var (
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Detect sniffs the container magic bytes; extensions are only a fallback
// because annexes regularly arrive with the wrong one.
func Detect(path string) Format {
	f, err := os.Open(path)
	if err != nil {
		return detectByExtension(path)
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := f.Read(header)
	if err != nil || n < 4 {
		return detectByExtension(path)
	}

	if bytes.Equal(header[:4], zipMagic) {
		if zipContains(path, "xl/workbook.bin") {
			return FormatXLSB
		}
		return FormatXLSX
	}
	if n >= 8 && bytes.Equal(header[:8], oleMagic) {
		return FormatXLS
	}
	return detectByExtension(path)
}

func zipContains(path, name string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer r.Close()
	for _, file := range r.File {
		if file.Name == name {
			return true
		}
	}
	return false
}

func detectByExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xlsb":
		return FormatXLSB
	case ".xls":
		return FormatXLS
	default:
		return FormatUnknown
	}
}
