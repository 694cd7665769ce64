// Package classifier decides whether a remote spreadsheet name is a
// processable tariff annex and which kind it is.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind is the annex category a file name resolves to.
type Kind string

const (
	KindInvalid   Kind = "INVALIDO"
	KindInitial   Kind = "ANEXO_1"
	KindRates     Kind = "TARIFAS"
	KindAmendment Kind = "OTROSI"
)

// Classification is the full verdict for one file name.
type Classification struct {
	Eligible        bool
	Kind            Kind
	AmendmentNumber int
	IsAmendment     bool
	ExcludeReason   string
}

var exclusionWords = []string{
	"MEDICAMENT", "MEDICAMENTO", "MEDICAMENTOS",
	"FARMACO", "FÁRMACO", "FARMACOS", "FÁRMACOS",
	"INSUMO", "INSUMOS",
}

var (
	ratesAnalysisRe = regexp.MustCompile(`AN[AÁ]LISIS\s*(DE\s*)?(TARIFAS?|TARIFA)`)

	// Trailing ([^0-9]|$) stands in for a negative digit lookahead.
	annex1Res = []*regexp.Regexp{
		regexp.MustCompile(`ANEXO\s*[_\-\s]*0?1([^0-9]|$)`),
		regexp.MustCompile(`ANEX[O0]\s*[_\-\s]*1([^0-9]|$)`),
		regexp.MustCompile(`ANEXO\s*N[OÚº°]?\.?\s*0?1([^0-9]|$)`),
		regexp.MustCompile(`A1[_\-\s]`),
		regexp.MustCompile(`[_\-]ANEXO[_\-]?1`),
		regexp.MustCompile(`ANEXO[_\-]1[_\-]`),
	}

	otherAnnexRe = regexp.MustCompile(`ANEXO\s*[_\-\s]*([2-9]|[1-9]\d)([^0-9]|$)`)

	collapsedAnnex1Re = regexp.MustCompile(`ANEXO0?1([^0-9]|$)`)

	unnumberedAmendmentRe = regexp.MustCompile(`OTRO\s*S[IÍ]([^0-9]|$)|OTROS[IÍ]([^0-9]|$)`)

	ratesRes = []*regexp.Regexp{
		regexp.MustCompile(`\d+[\-_]TARIFAS[\-_]`),
		regexp.MustCompile(`^TARIFAS[\-_]`),
		regexp.MustCompile(`[\-_]TARIFAS[\-_]`),
		regexp.MustCompile(`[\-_]TARIFAS\.`),
	}

	amendmentNumberRes = []*regexp.Regexp{
		regexp.MustCompile(`OTRO\s*S[IÍ]\s*[_#\-\s]*N?[OÚº°]?\.?\s*(\d+)`),
		regexp.MustCompile(`OTROS[IÍ]\s*[_#\-\s]*(\d+)`),
		regexp.MustCompile(`OTRO[\s_\-]?SI[\s_\-#]*(\d+)`),
		regexp.MustCompile(`OT\s*[_\-\s]?\s*(\d+)`),
		regexp.MustCompile(`ADICI[OÓ]N\s*[_#\-\s]*N?[OÚº°]?\.?\s*(\d+)`),
		regexp.MustCompile(`MODIFICA(CI[OÓ]N)?\s*[_#\-\s]*(\d+)`),
	}

	minutesNumberRes = []*regexp.Regexp{
		regexp.MustCompile(`ACTA\s*(?:DE\s*)?(?:NEGOCIACI[OÓ]N\s*)?(?:N[OÚº°]?\.?\s*)?#?\s*(\d+)`),
		regexp.MustCompile(`ACT[_\-\s]?(\d+)`),
		regexp.MustCompile(`\bAN\s*[_\-]?\s*(\d+)`),
		regexp.MustCompile(`ACTA\s*#?\s*(\d+)`),
		regexp.MustCompile(`ACTA\s*N[OÚº°]?\s*(\d+)`),
	}
)

// IsSpreadsheet reports whether a file name carries a workbook extension.
func IsSpreadsheet(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".xlsx", ".xls", ".xlsm", ".xlsb"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToUpper(name), "\t", ""))
}

// Classify decides whether a file name is a processable tariff annex.
func Classify(name string) Classification {
	result := Classification{Kind: KindInvalid}

	if name == "" {
		result.ExcludeReason = "Nombre vacío"
		return result
	}

	upper := normalizeName(name)

	for _, word := range exclusionWords {
		if strings.Contains(upper, word) {
			if strings.Contains(upper, "SERVICIO") || strings.Contains(upper, "SERV") {
				continue
			}
			result.ExcludeReason = "Archivo de " + strings.ToLower(word)
			return result
		}
	}

	if ratesAnalysisRe.MatchString(upper) {
		result.ExcludeReason = "Análisis de tarifas"
		return result
	}

	if n, ok := AmendmentNumber(name); ok {
		result.AmendmentNumber = n
		result.IsAmendment = true
		result.Eligible = true
		result.Kind = KindAmendment
		return result
	}

	for _, re := range annex1Res {
		if re.MatchString(upper) {
			result.Eligible = true
			result.Kind = KindInitial
			return result
		}
	}

	collapsed := strings.NewReplacer(" ", "", "_", "", "-", "", "(", "", ")", "").Replace(upper)
	if collapsedAnnex1Re.MatchString(collapsed) {
		result.Eligible = true
		result.Kind = KindInitial
		return result
	}

	if otherAnnexRe.MatchString(upper) {
		result.ExcludeReason = "Anexo distinto de 1"
		return result
	}

	for _, re := range ratesRes {
		if re.MatchString(upper) {
			result.Eligible = true
			result.Kind = KindRates
			return result
		}
	}

	if strings.Contains(upper, "ANEXO") &&
		(strings.Contains(upper, "TARIFA") || strings.Contains(upper, "SERV")) {
		result.Eligible = true
		result.Kind = KindInitial
		return result
	}

	result.ExcludeReason = "No coincide con patrones de tarifas"
	return result
}

// IsEligible is the boolean shortcut over Classify.
func IsEligible(name string) bool {
	return Classify(name).Eligible
}

// AmendmentNumber extracts the amendment sequence number from a file name.
func AmendmentNumber(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	upper := strings.ToUpper(name)
	for _, re := range amendmentNumberRes {
		m := re.FindStringSubmatch(upper)
		if m == nil {
			continue
		}
		digits := m[len(m)-1]
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		return n, true
	}
	// An amendment without a number is the first one.
	if unnumberedAmendmentRe.MatchString(upper) {
		return 1, true
	}
	return 0, false
}

// MinutesNumber extracts the minutes sequence number from a file name,
// falling back to the containing folder name.
func MinutesNumber(fileName, folderName string) (int, bool) {
	for _, candidate := range []string{fileName, folderName} {
		if candidate == "" {
			continue
		}
		upper := strings.ToUpper(candidate)
		for _, re := range minutesNumberRes {
			m := re.FindStringSubmatch(upper)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return n, true
		}
	}
	return 0, false
}
