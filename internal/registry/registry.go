// Package registry loads the provider master workbook: the list of
// contracts to consolidate, their category and the agreement dates of
// their annexes.
package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/sheet"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/validate"
)

// Providers outside this class never carry service annexes.
const healthProviderClass = "PRESTADOR DE SERVICIOS DE SALUD"

var ambulanceHintWords = []string{
	"AMBULANCIA", "TAM", "TAB", "TRASLADO ASISTENCIAL",
	"TRANSPORTE ASISTENCIAL", "SERVICIO AMBULANCIA",
}

var ambulanceHintColumns = []string{
	"CATEGORIA CUENTAS MEDICAS", "OBJETO", "DESCRIPCION",
	"TIPO", "TIPO_SERVICIO", "SERVICIO",
}

var ctoRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d{4})$`)

// Registry is the parsed master workbook.
type Registry struct {
	logger *zap.Logger

	header []string
	rows   [][]string

	colCTO      int
	colNumber   int
	colYear     int
	colProvider int
	colClass    int
	colCategory int
}

// Load reads the master workbook and maps its columns.
func Load(path string, logger *zap.Logger) (*Registry, error) {
	r, err := sheet.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", path, err)
	}
	defer r.Close()

	names := r.SheetNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("registry %s has no sheets", path)
	}
	rows, err := r.Rows(names[0], 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("registry %s is empty", path)
	}

	reg := &Registry{
		logger: logger,
		header: rows[0],
		rows:   rows[1:],
	}
	reg.mapColumns()
	if reg.colCTO < 0 && (reg.colNumber < 0 || reg.colYear < 0) {
		return nil, fmt.Errorf("registry %s has no contract identifier columns", path)
	}
	logger.Info("registry loaded",
		zap.String("path", path),
		zap.Int("rows", len(reg.rows)))
	return reg, nil
}

func (r *Registry) mapColumns() {
	r.colCTO, r.colNumber, r.colYear = -1, -1, -1
	r.colProvider, r.colClass, r.colCategory = -1, -1, -1

	for i, cell := range r.header {
		norm := validate.Normalize(cell)
		switch {
		case r.colCTO < 0 && norm == "CTO":
			r.colCTO = i
		case r.colNumber < 0 && strings.Contains(norm, "NUMERO") && strings.Contains(norm, "CONTRATO"):
			r.colNumber = i
		case r.colYear < 0 && (strings.Contains(norm, "ANO") || strings.Contains(norm, "VIGENCIA")):
			r.colYear = i
		case r.colProvider < 0 && (strings.Contains(norm, "PRESTADOR") || strings.Contains(norm, "RAZON SOCIAL") || strings.Contains(norm, "NOMBRE")):
			r.colProvider = i
		case r.colClass < 0 && strings.Contains(norm, "CLASE"):
			r.colClass = i
		case r.colCategory < 0 && strings.Contains(norm, "CATEGOR") && strings.Contains(norm, "CUENTA"):
			r.colCategory = i
		}
	}
}

// Contracts returns the health-provider contracts, optionally filtered by
// year, number or both.
func (r *Registry) Contracts(year, number string) []models.Contract {
	var out []models.Contract
	for _, row := range r.rows {
		c, ok := r.contractFromRow(row)
		if !ok {
			continue
		}
		if year != "" && c.Year != year {
			continue
		}
		if number != "" && strings.TrimLeft(c.Number, "0") != strings.TrimLeft(number, "0") {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Registry) contractFromRow(row []string) (models.Contract, bool) {
	var c models.Contract

	if r.colClass >= 0 {
		class := validate.Normalize(cellAt(row, r.colClass))
		if class != "" && class != healthProviderClass {
			return c, false
		}
	}

	if r.colCTO >= 0 {
		cto := strings.TrimSpace(cellAt(row, r.colCTO))
		if m := ctoRe.FindStringSubmatch(cto); m != nil {
			c.CTO = cto
			c.Number = strings.TrimLeft(m[1], "0")
			if c.Number == "" {
				c.Number = "0"
			}
			c.Year = m[2]
		}
	}
	if c.Number == "" && r.colNumber >= 0 {
		c.Number = validate.TrimCell(cellAt(row, r.colNumber))
	}
	if c.Year == "" && r.colYear >= 0 {
		c.Year = validate.TrimCell(cellAt(row, r.colYear))
	}
	if c.Number == "" || c.Year == "" {
		return c, false
	}

	c.DisplayName = strings.TrimSpace(cellAt(row, r.colProvider))
	c.Category = strings.TrimSpace(cellAt(row, r.colCategory))
	return c, true
}

// Category returns the medical-accounts category of a contract.
func (r *Registry) Category(contract models.Contract) string {
	row, ok := r.findRow(contract)
	if !ok || r.colCategory < 0 {
		return ""
	}
	return strings.TrimSpace(cellAt(row, r.colCategory))
}

// AmbulanceHint reports whether the registry row marks the contract as an
// ambulance contract, and which column said so.
func (r *Registry) AmbulanceHint(contract models.Contract) (column, value string, ok bool) {
	row, found := r.findRow(contract)
	if !found {
		return "", "", false
	}
	for i, headerCell := range r.header {
		norm := validate.Normalize(headerCell)
		if !headerMatchesAny(norm, ambulanceHintColumns) {
			continue
		}
		cell := validate.Normalize(cellAt(row, i))
		for _, w := range ambulanceHintWords {
			if strings.Contains(cell, w) {
				raw := strings.TrimSpace(cellAt(row, i))
				if len(raw) > 30 {
					raw = raw[:30]
				}
				return strings.TrimSpace(headerCell), raw, true
			}
		}
	}
	return "", "", false
}

// AgreementDate returns the agreement date of one annex origin, formatted
// DD/MM/YYYY. When the registry has no date the file's own modification
// time is the fallback.
func (r *Registry) AgreementDate(contract models.Contract, origin models.Origin, number int, fileModTime time.Time) (string, bool) {
	row, found := r.findRow(contract)
	if found {
		if date := r.dateFromRow(row, origin, number); date != "" {
			return date, true
		}
	}
	if !fileModTime.IsZero() {
		return fileModTime.Format("02/01/2006"), false
	}
	return "", false
}

func (r *Registry) dateFromRow(row []string, origin models.Origin, number int) string {
	switch origin {
	case models.OriginInitial:
		for i, cell := range r.header {
			norm := validate.Normalize(cell)
			if strings.Contains(norm, "FECHA") && strings.Contains(norm, "INICIAL") &&
				!strings.Contains(norm, "OTROSI") {
				return formatDateCell(cellAt(row, i))
			}
		}
	case models.OriginAmendment:
		re := regexp.MustCompile(fmt.Sprintf(`FECHA.*OTROSI.*\b%d\b`, number))
		for i, cell := range r.header {
			if re.MatchString(validate.Normalize(cell)) {
				return formatDateCell(cellAt(row, i))
			}
		}
	case models.OriginMinutes:
		// Minutes dates sit in the column right after the matching
		// "No. Acta" column.
		for i, cell := range r.header {
			norm := validate.Normalize(cell)
			if !strings.Contains(norm, "NO ACTA") && !strings.Contains(norm, "N ACTA") {
				continue
			}
			value := validate.TrimCell(cellAt(row, i))
			if value == "" {
				continue
			}
			if n, err := parseInt(value); err == nil && n == number {
				return formatDateCell(cellAt(row, i+1))
			}
		}
	}
	return ""
}

func (r *Registry) findRow(contract models.Contract) ([]string, bool) {
	wantCTO := fmt.Sprintf("%s-%s", zfill(contract.Number, 4), contract.Year)

	if r.colCTO >= 0 {
		for _, row := range r.rows {
			cto := strings.ReplaceAll(strings.TrimSpace(cellAt(row, r.colCTO)), " ", "")
			if cto == wantCTO {
				return row, true
			}
		}
	}
	if r.colNumber >= 0 && r.colYear >= 0 {
		for _, row := range r.rows {
			num := strings.TrimLeft(validate.TrimCell(cellAt(row, r.colNumber)), "0")
			year := validate.TrimCell(cellAt(row, r.colYear))
			if num == strings.TrimLeft(contract.Number, "0") && year == contract.Year {
				return row, true
			}
		}
	}
	return nil, false
}

// formatDateCell renders a registry date cell as DD/MM/YYYY, handling
// both textual dates and serial day numbers.
func formatDateCell(value string) string {
	v := validate.TrimCell(value)
	if v == "" {
		return ""
	}

	if n, err := parseInt(v); err == nil && n > 30000 && n < 60000 {
		// Serial day count with the 1900 leap-year quirk baked in.
		epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
		return epoch.AddDate(0, 0, n).Format("02/01/2006")
	}

	for _, layout := range []string{"02/01/2006", "2006-01-02", "2006-01-02 15:04:05", "02-01-2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return v
}

func headerMatchesAny(norm string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

func parseInt(v string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(v, ".0")))
}

func zfill(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
