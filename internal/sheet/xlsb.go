package sheet

import (
	"archive/zip"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Minimal reader for the binary workbook container (.xlsb). Only what the
// annex scan needs is parsed: the sheet catalog, the shared string table
// and the row/cell records of one sheet. Records are length-prefixed, so
// everything unknown is skipped wholesale.

const (
	recRowHdr     = 0
	recCellBlank  = 1
	recCellRk     = 2
	recCellError  = 3
	recCellBool   = 4
	recCellReal   = 5
	recCellSt     = 6
	recCellIsst   = 7
	recFmlaString = 8
	recFmlaNum    = 9
	recFmlaBool   = 10
	recSSTItem    = 19
	recBundleSh   = 156
)

type xlsbReader struct {
	z      *zip.ReadCloser
	sheets []xlsbSheet
	shared []string
}

type xlsbSheet struct {
	name string
	part string
}

func openXLSB(path string) (*xlsbReader, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	r := &xlsbReader{z: z}
	if err := r.loadCatalog(); err != nil {
		z.Close()
		return nil, fmt.Errorf("failed to read workbook catalog in %s: %w", path, err)
	}
	if err := r.loadSharedStrings(); err != nil {
		z.Close()
		return nil, fmt.Errorf("failed to read shared strings in %s: %w", path, err)
	}
	return r, nil
}

func (r *xlsbReader) SheetNames() []string {
	names := make([]string, len(r.sheets))
	for i, s := range r.sheets {
		names[i] = s.name
	}
	return names
}

func (r *xlsbReader) Rows(sheet string, maxRows int) ([][]string, error) {
	var part string
	for _, s := range r.sheets {
		if s.name == sheet {
			part = s.part
			break
		}
	}
	if part == "" {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	data, err := r.readPart(part)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	current := -1

	err = walkRecords(data, func(id int, payload []byte) bool {
		switch id {
		case recRowHdr:
			if len(payload) < 4 {
				return true
			}
			current = int(binary.LittleEndian.Uint32(payload))
			if maxRows > 0 && current >= maxRows {
				return false
			}
			for len(rows) <= current {
				rows = append(rows, nil)
			}
		case recCellBlank, recCellRk, recCellError, recCellBool, recCellReal,
			recCellSt, recCellIsst, recFmlaString, recFmlaNum, recFmlaBool:
			if current < 0 || len(payload) < 8 {
				return true
			}
			col := int(binary.LittleEndian.Uint32(payload))
			value := r.cellValue(id, payload[8:])
			for len(rows[current]) <= col {
				rows[current] = append(rows[current], "")
			}
			rows[current][col] = value
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func (r *xlsbReader) Close() error {
	return r.z.Close()
}

func (r *xlsbReader) cellValue(id int, v []byte) string {
	switch id {
	case recCellRk:
		if len(v) < 4 {
			return ""
		}
		return formatFloat(decodeRk(binary.LittleEndian.Uint32(v)))
	case recCellReal, recFmlaNum:
		if len(v) < 8 {
			return ""
		}
		return formatFloat(math.Float64frombits(binary.LittleEndian.Uint64(v)))
	case recCellBool, recFmlaBool:
		if len(v) >= 1 && v[0] != 0 {
			return "TRUE"
		}
		return "FALSE"
	case recCellSt, recFmlaString:
		s, _ := readWideString(v)
		return s
	case recCellIsst:
		if len(v) < 4 {
			return ""
		}
		idx := int(binary.LittleEndian.Uint32(v))
		if idx >= 0 && idx < len(r.shared) {
			return r.shared[idx]
		}
	}
	return ""
}

func (r *xlsbReader) loadCatalog() error {
	rels, err := r.loadRelationships()
	if err != nil {
		return err
	}

	data, err := r.readPart("xl/workbook.bin")
	if err != nil {
		return err
	}

	return walkRecords(data, func(id int, payload []byte) bool {
		if id != recBundleSh {
			return true
		}
		// hsState + iTabID, then relationship id and sheet name.
		if len(payload) < 8 {
			return true
		}
		rest := payload[8:]
		relID, n := readNullableWideString(rest)
		if n < 0 {
			return true
		}
		name, _ := readWideString(rest[n:])
		if name == "" {
			return true
		}
		part, ok := rels[relID]
		if !ok {
			return true
		}
		if !strings.HasPrefix(part, "xl/") {
			part = "xl/" + strings.TrimPrefix(part, "/")
		}
		r.sheets = append(r.sheets, xlsbSheet{name: name, part: part})
		return true
	})
}

func (r *xlsbReader) loadSharedStrings() error {
	data, err := r.readPart("xl/sharedStrings.bin")
	if err != nil {
		// Workbooks without inline strings have no shared table.
		return nil
	}
	return walkRecords(data, func(id int, payload []byte) bool {
		if id != recSSTItem || len(payload) < 1 {
			return true
		}
		s, _ := readWideString(payload[1:])
		r.shared = append(r.shared, s)
		return true
	})
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func (r *xlsbReader) loadRelationships() (map[string]string, error) {
	data, err := r.readPart("xl/_rels/workbook.bin.rels")
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		out[rel.ID] = rel.Target
	}
	return out, nil
}

func (r *xlsbReader) readPart(name string) ([]byte, error) {
	for _, f := range r.z.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("part %s not found", name)
}

// walkRecords iterates the record stream; the callback returns false to
// stop early.
func walkRecords(data []byte, fn func(id int, payload []byte) bool) error {
	pos := 0
	for pos < len(data) {
		id, n := readRecordID(data[pos:])
		if n == 0 {
			return fmt.Errorf("truncated record id at offset %d", pos)
		}
		pos += n

		length, n := readRecordLen(data[pos:])
		if n == 0 {
			return fmt.Errorf("truncated record length at offset %d", pos)
		}
		pos += n

		if pos+length > len(data) {
			return fmt.Errorf("record %d overruns stream at offset %d", id, pos)
		}
		if !fn(id, data[pos:pos+length]) {
			return nil
		}
		pos += length
	}
	return nil
}

// readRecordID decodes the one or two byte record type.
func readRecordID(data []byte) (int, int) {
	if len(data) == 0 {
		return 0, 0
	}
	b0 := data[0]
	if b0&0x80 == 0 {
		return int(b0), 1
	}
	if len(data) < 2 {
		return 0, 0
	}
	return int(b0&0x7F) | int(data[1]&0x7F)<<7, 2
}

// readRecordLen decodes the one to four byte payload length, seven bits
// per byte with a continuation flag.
func readRecordLen(data []byte) (int, int) {
	length := 0
	for i := 0; i < 4 && i < len(data); i++ {
		b := data[i]
		length |= int(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return length, i + 1
		}
	}
	return 0, 0
}

// decodeRk expands the packed 30-bit RK number.
func decodeRk(raw uint32) float64 {
	div100 := raw&0x1 != 0
	isInt := raw&0x2 != 0

	var value float64
	if isInt {
		value = float64(int32(raw) >> 2)
	} else {
		value = math.Float64frombits(uint64(raw&0xFFFFFFFC) << 32)
	}
	if div100 {
		value /= 100
	}
	return value
}

// readWideString decodes a length-prefixed UTF-16LE string and returns the
// byte count consumed.
func readWideString(data []byte) (string, int) {
	if len(data) < 4 {
		return "", -1
	}
	count := int(binary.LittleEndian.Uint32(data))
	if count < 0 || len(data) < 4+count*2 {
		return "", -1
	}
	units := make([]uint16, count)
	for i := 0; i < count; i++ {
		units[i] = binary.LittleEndian.Uint16(data[4+i*2:])
	}
	return string(utf16.Decode(units)), 4 + count*2
}

// readNullableWideString handles the 0xFFFFFFFF missing-string marker.
func readNullableWideString(data []byte) (string, int) {
	if len(data) < 4 {
		return "", -1
	}
	if binary.LittleEndian.Uint32(data) == 0xFFFFFFFF {
		return "", 4
	}
	return readWideString(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
