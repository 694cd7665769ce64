package recognizer

import (
	"strings"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/validate"
)

// Columns holds the zero-based index of each recognized service column;
// -1 means the sheet does not carry it.
type Columns struct {
	Code         int
	Homolog      int
	Description  int
	Tariff       int
	ManualRef    int
	Percent      int
	Observations int
}

func emptyColumns() Columns {
	return Columns{Code: -1, Homolog: -1, Description: -1, Tariff: -1, ManualRef: -1, Percent: -1, Observations: -1}
}

// HasMinimum reports whether the sheet carries enough columns to extract
// services at all.
func (c Columns) HasMinimum() bool {
	return c.Code >= 0
}

type columnPattern struct {
	target   string
	patterns []string
}

// Recognition order matters: the homolog column must claim its header
// before the plain code patterns see it, and the percent column before the
// plain tariff ones.
var columnPatterns = []columnPattern{
	{"code", []string{
		"CODIGO CUPS", "COD CUPS", "COD. CUPS", "CODIGO CUP", "COD CUP", "COD. CUP",
	}},
	{"homolog", []string{
		"CODIGO HOMOLOGO", "COD HOMOLOGO", "HOMOLOGO MANUAL",
		"CODIGO HOMOLOGO MANUAL",
	}},
	{"description", []string{
		"DESCRIPCION DEL CUPS", "DESCRIPCION CUPS", "DESCRIPCION DEL CUP",
		"DESCRIPCION CUP", "DESCRIPCION",
	}},
	{"tariff", []string{
		"TARIFA UNITARIA EN PESOS", "TARIFA UNITARIA PESOS", "TARIFA EN PESOS",
		"TARIFA UNITARIA", "VALOR UNITARIO", "PRECIO UNITARIO",
	}},
	{"manualref", []string{
		"MANUAL TARIFARIO", "TARIFARIO", "MANUAL TAR", "TIPO TARIFARIO",
		"TIPO DE TARIFARIO",
	}},
	{"percent", []string{
		"TARIFA SEGUN TARIFARIO", "PORCENTAJE TARIFARIO", "PORCENTAJE",
		"% TARIFARIO", "% DEL TARIFARIO",
	}},
	{"observations", []string{
		"OBSERVACIONES", "OBSERVACION", "OBS", "NOTAS",
	}},
}

// DetectColumns maps a service header row to column indexes. Each column
// family claims at most one cell and a cell is claimed at most once.
func DetectColumns(header []string) Columns {
	cols := emptyColumns()
	used := make(map[int]struct{}, len(header))

	for _, cp := range columnPatterns {
		for idx, cell := range header {
			if _, taken := used[idx]; taken {
				continue
			}
			norm := validate.Normalize(cell)
			if norm == "" {
				continue
			}
			if !matchesAny(norm, cp.patterns) {
				continue
			}
			if skipColumn(cp.target, norm) {
				continue
			}
			cols.set(cp.target, idx)
			used[idx] = struct{}{}
			break
		}
	}
	return cols
}

// skipColumn guards against headers that contain a pattern of one family
// but belong to another, e.g. "CODIGO HOMOLOGO CUPS" must not become the
// code column.
func skipColumn(target, norm string) bool {
	switch target {
	case "code":
		return strings.Contains(norm, "HOMOLOGO")
	case "tariff":
		if strings.Contains(norm, "TARIFARIO") || strings.Contains(norm, "SEGUN") {
			return true
		}
		return strings.Contains(norm, "MANUAL") && !strings.Contains(norm, "UNITARIA")
	case "manualref":
		return strings.Contains(norm, "UNITARIA") ||
			strings.Contains(norm, "EN PESOS") ||
			strings.Contains(norm, "PESOS") ||
			strings.Contains(norm, "SEGUN") ||
			strings.Contains(norm, "PORCENTAJE")
	case "percent":
		return strings.Contains(norm, "UNITARIA")
	}
	return false
}

func matchesAny(norm string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(norm, validate.Normalize(p)) {
			return true
		}
	}
	return false
}

func (c *Columns) set(target string, idx int) {
	switch target {
	case "code":
		c.Code = idx
	case "homolog":
		c.Homolog = idx
	case "description":
		c.Description = idx
	case "tariff":
		c.Tariff = idx
	case "manualref":
		c.ManualRef = idx
	case "percent":
		c.Percent = idx
	case "observations":
		c.Observations = idx
	}
}
