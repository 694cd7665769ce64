// Package recognizer finds the services sheet inside an annex workbook,
// maps its header to columns and walks the interleaved site/service blocks
// into flat records.
package recognizer

import (
	"fmt"
	"strings"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/validate"
)

// Sheets excluded without diagnostics: boilerplate every annex template
// carries.
var silentlyExcluded = map[string]struct{}{
	"INSTRUCCIONES": {}, "INSTRUCTIVO": {}, "INFO": {}, "INFORMACION": {},
	"DATOS": {}, "CONTENIDO": {}, "INDICE": {}, "HOJA1": {}, "SHEET1": {},
	"RESUMEN": {}, "PORTADA": {}, "MENU": {}, "GLOSARIO": {}, "AYUDA": {},
	"NOTAS": {}, "LISTAS": {}, "PARAMETROS": {},
}

var packageSheetNames = map[string]struct{}{
	"PAQUETES": {}, "TARIFAS PAQUETES": {}, "PAQUETE": {},
	"COSTO VIAJE": {}, "COSTO DE VIAJE": {}, "COSTOS VIAJE": {},
}

var packageSubstrings = []string{"PAQUETE", "COSTO VIAJE", "COSTO DE VIAJE"}

var serviceSheetPrefixes = []string{
	"TARIFAS DE SERVICIOS", "TARIFA DE SERVICIOS", "TARIFAS DE SERV",
	"TARIFA DE SERV", "TARIFAS DE SERVICIO", "TARIFA DE SERVICIO",
}

var ambulanceWords = []string{
	"AMBULANCIA", "TAM", "TAB", "TRASLADO ASISTENCIAL",
	"TRANSPORTE ASISTENCIAL", "SERVICIO AMBULANCIA",
}

// SheetKind classifies a sheet by name for the transfer-only diagnosis.
type SheetKind int

const (
	SheetOther SheetKind = iota
	SheetServices
	SheetMedicines
	SheetTransfers
	SheetAmbulances
	SheetPackages
)

// Selection is the result of the services sheet search.
type Selection struct {
	Sheet string
	Found bool
	// Diagnosis is one of the transfer-only verdicts when no services
	// sheet exists, empty otherwise.
	Diagnosis SheetDiagnosis
	Excluded  []string
	Available []string
}

// SheetDiagnosis explains why a workbook has no services sheet.
type SheetDiagnosis string

const (
	DiagnosisNone           SheetDiagnosis = ""
	DiagnosisAmbulancesOnly SheetDiagnosis = "ARCHIVO_SOLO_AMBULANCIAS"
	DiagnosisTransfersOnly  SheetDiagnosis = "ARCHIVO_SOLO_TRASLADOS"
	DiagnosisMixedTransfers SheetDiagnosis = "SOLO_TRASLADOS"
)

// SelectServicesSheet walks the sheet catalog through the recognition
// steps, from exact names down to looser and looser matches.
func SelectServicesSheet(names []string) Selection {
	sel := Selection{Available: names}

	var candidates []string
	for _, name := range names {
		norm := validate.Normalize(name)
		if _, silent := silentlyExcluded[collapse(norm)]; silent {
			sel.Excluded = append(sel.Excluded, name)
			continue
		}
		if isPackageSheet(norm) {
			sel.Excluded = append(sel.Excluded, name)
			continue
		}
		candidates = append(candidates, name)
	}

	// Exact name.
	for _, name := range candidates {
		if validate.Normalize(name) == "SERVICIOS" {
			return found(sel, name)
		}
	}

	// Known tariff sheet prefixes, whitespace differences ignored.
	for _, name := range candidates {
		norm := validate.Normalize(name)
		collapsed := collapse(norm)
		if strings.Contains(norm, "COSTO") || strings.Contains(norm, "VIAJE") ||
			strings.Contains(norm, "PAQUETE") {
			continue
		}
		for _, prefix := range serviceSheetPrefixes {
			if strings.HasPrefix(collapsed, collapse(prefix)) {
				return found(sel, name)
			}
		}
	}

	// Anything pairing TARIFA with SERV that is not a transfer sheet.
	for _, name := range candidates {
		norm := validate.Normalize(name)
		if strings.Contains(norm, "TARIFA") && strings.Contains(norm, "SERV") &&
			!strings.Contains(norm, "TRASLADO") && !strings.Contains(norm, "PAQUETE") &&
			!strings.Contains(norm, "AMBULANCIA") {
			return found(sel, name)
		}
	}

	// Any services sheet that is not a transfer sheet.
	for _, name := range candidates {
		norm := validate.Normalize(name)
		if strings.Contains(norm, "SERVICIO") && !strings.Contains(norm, "TRASLADO") {
			return found(sel, name)
		}
	}

	// Sheets named after the code system.
	for _, name := range candidates {
		if strings.Contains(validate.Normalize(name), "CUPS") {
			return found(sel, name)
		}
	}

	// Annex templates that never renamed the sheet.
	for _, name := range candidates {
		collapsed := collapse(validate.Normalize(name))
		if collapsed == "ANEXO1" || collapsed == "ANEXO01" {
			return found(sel, name)
		}
	}

	sel.Diagnosis = diagnose(names)
	return sel
}

func found(sel Selection, name string) Selection {
	sel.Sheet = name
	sel.Found = true
	return sel
}

// ClassifySheet buckets a sheet name for the no-services diagnosis.
func ClassifySheet(name string) SheetKind {
	norm := validate.Normalize(name)
	switch {
	case isPackageSheet(norm):
		return SheetPackages
	case containsAny(norm, ambulanceWords):
		return SheetAmbulances
	case strings.Contains(norm, "TRASLADO"):
		return SheetTransfers
	case strings.Contains(norm, "MEDICAMENTO") || strings.Contains(norm, "FARMACO"):
		return SheetMedicines
	case strings.Contains(norm, "SERVICIO") || strings.Contains(norm, "CUPS"),
		strings.Contains(norm, "TARIFA") && strings.Contains(norm, "SERV"):
		return SheetServices
	default:
		return SheetOther
	}
}

// diagnose decides whether a workbook without a services sheet is a
// transfers or ambulances only annex.
func diagnose(names []string) SheetDiagnosis {
	var transfers, ambulances, services, other int
	for _, name := range names {
		norm := validate.Normalize(name)
		if _, silent := silentlyExcluded[collapse(norm)]; silent {
			continue
		}
		switch ClassifySheet(name) {
		case SheetTransfers:
			transfers++
		case SheetAmbulances:
			ambulances++
		case SheetServices:
			services++
		case SheetMedicines, SheetPackages:
		default:
			other++
		}
	}

	if services > 0 {
		return DiagnosisNone
	}
	switch {
	case ambulances > 0 && transfers == 0 && other == 0:
		return DiagnosisAmbulancesOnly
	case transfers > 0 && ambulances == 0 && other == 0:
		return DiagnosisTransfersOnly
	case transfers+ambulances > 0 && other == 0:
		return DiagnosisMixedTransfers
	default:
		return DiagnosisNone
	}
}

// NotFoundMessage composes the operator-facing explanation for a workbook
// where every recognition step failed.
func NotFoundMessage(sel Selection, category string) string {
	msg := fmt.Sprintf("No se encontró hoja de servicios válida. Hojas disponibles: %s",
		quoteList(sel.Available))
	if len(sel.Excluded) > 0 {
		msg += fmt.Sprintf(". Hojas excluidas (no aplican para T25): %s", quoteList(sel.Excluded))
	}
	if category != "" {
		msg += fmt.Sprintf(". Categoría cuentas médicas: '%s'", category)
	}
	return msg
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func isPackageSheet(norm string) bool {
	if _, ok := packageSheetNames[norm]; ok {
		return true
	}
	for _, sub := range packageSubstrings {
		if strings.Contains(norm, sub) {
			return true
		}
	}
	return false
}

func containsAny(norm string, words []string) bool {
	for _, w := range words {
		if strings.Contains(norm, w) {
			return true
		}
	}
	return false
}

// collapse removes every space so naming variants like "TARIFAS DE SERV"
// and "TARIFASDESERV" compare equal.
func collapse(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
