package anomaly

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

// Years and decree numbers that show up inside tariff text but are never
// percentages.
var ignoredNumbers = map[int]struct{}{
	1996: {}, 2001: {}, 2016: {}, 2022: {}, 2023: {}, 2024: {}, 2025: {},
	2644: {}, 2423: {}, 780: {},
}

var (
	trailingSignedRe = regexp.MustCompile(`[+-]\s*(\d+(?:[,\.]\d+)?)\s*$`)
	minusNumberRe    = regexp.MustCompile(`MENOS\s*(\d+(?:[,\.]\d+)?)`)
	plusNumberRe     = regexp.MustCompile(`(?:MAS|\+)\s*(\d+(?:[,\.]\d+)?)`)
	bareFractionRe   = regexp.MustCompile(`^(-?0\.\d+)$`)
	anyNumberRe      = regexp.MustCompile(`-?\d+(?:[,\.]\d+)?`)

	ownManualRe     = regexp.MustCompile(`\bPROPIA?S?\b|INSTITUCIONAL|TARIA\s*PROPIA`)
	issManualRe     = regexp.MustCompile(`\bISS\b`)
	soatWordRe      = regexp.MustCompile(`\bSOAT\b`)
	soatManualRe    = regexp.MustCompile(`\bSOAT\b|\bUVT\b|\bUVB\b|DECRETO\s*2423|DECRETO\s*2644`)
	numericManualRe = regexp.MustCompile(`^[\d,\.\s]+$`)
)

// Stats counts the repairs a corrector pass performed.
type Stats struct {
	Processed        int
	SwappedColumns   int
	NormalizedManual int
	ExtractedPercent int
	RepairedTariffs  int
	ZeroedPercents   int
}

// Corrector repairs records whose tariff columns were filled in shifted or
// swapped order, then normalizes the manual reference and percent fields.
type Corrector struct {
	classifier *TextClassifier
	logger     *zap.Logger
	stats      Stats
}

func NewCorrector(logger *zap.Logger) *Corrector {
	return &Corrector{
		classifier: NewTextClassifier(),
		logger:     logger,
	}
}

// Stats returns the running counters since construction.
func (c *Corrector) Stats() Stats {
	return c.stats
}

// CorrectBatch repairs a batch in place and returns it.
func (c *Corrector) CorrectBatch(records []models.OutputRecord) []models.OutputRecord {
	for i := range records {
		c.correct(&records[i])
	}
	if c.stats.SwappedColumns > 0 {
		c.logger.Info("corrected swapped tariff columns",
			zap.Int("batch_size", len(records)),
			zap.Int("total_swapped", c.stats.SwappedColumns))
	}
	return records
}

func (c *Corrector) correct(rec *models.OutputRecord) {
	c.stats.Processed++

	c.repairColumns(rec)

	rec.Percent = c.extractPercent(rec.Percent, rec.TariffAmount)
	rec.ManualRef = c.normalizeManual(rec.ManualRef)
	rec.TariffAmount = c.repairTariff(rec.TariffAmount)
}

// repairColumns applies the three misfiled-column signatures: a medical
// text in the manual cell next to a manual reference in the percent cell,
// a manual cell that duplicates the description, and a manual cell holding
// a peso amount.
func (c *Corrector) repairColumns(rec *models.OutputRecord) {
	manual := strings.TrimSpace(rec.ManualRef)
	percent := strings.TrimSpace(rec.Percent)
	if manual == "" || percent == "" {
		return
	}

	manualClass, manualConf := c.classifier.Classify(manual)
	percentClass, percentConf := c.classifier.Classify(percent)

	if manualClass == ClassMedical && manualConf > 0.6 &&
		percentClass == ClassManual && percentConf > 0.5 {
		// The percent cell carries the real reference and the numeric
		// percent is lost.
		rec.ManualRef = percent
		rec.Percent = "0"
		c.stats.SwappedColumns++
		return
	}

	swap := false
	if len(manual) > 20 && percentClass == ClassManual &&
		wordOverlap(manual, rec.Description) > 0.5 {
		swap = true
	}
	if v, err := parseNumber(manual); err == nil && v > 1000 && percentClass == ClassManual {
		swap = true
	}
	if swap {
		rec.ManualRef, rec.Percent = percent, manual
		c.stats.SwappedColumns++
	}
}

// extractPercent reduces a free-text percent cell to a plain number string.
func (c *Corrector) extractPercent(raw string, tariff string) string {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "" {
		return "0"
	}

	value, ok := c.percentValue(text)
	if !ok {
		return "0"
	}

	// A reference that only names the institution's own tariff carries no
	// percentage at all.
	for _, w := range []string{"PROPIO", "PROPIA", "INSTITUCIONAL", "PLENA", "PLENO"} {
		if strings.Contains(text, w) && !trailingSignedRe.MatchString(text) &&
			!minusNumberRe.MatchString(text) && !plusNumberRe.MatchString(text) {
			c.stats.ZeroedPercents++
			return "0"
		}
	}

	if t, err := parseNumber(tariff); err == nil && t > 0 && math.Abs(value-t) < 1 {
		c.stats.ZeroedPercents++
		return "0"
	}
	if value > 1000 {
		c.stats.ZeroedPercents++
		return "0"
	}

	c.stats.ExtractedPercent++
	return formatPercent(value)
}

func (c *Corrector) percentValue(text string) (float64, bool) {
	clean := strings.ReplaceAll(text, "%", "")
	clean = strings.TrimSpace(clean)

	if m := trailingSignedRe.FindStringSubmatch(clean); m != nil {
		v, err := parseNumber(m[1])
		if err == nil {
			if strings.HasPrefix(strings.TrimSpace(m[0]), "-") {
				v = -v
			}
			if v >= -100 && v <= 200 {
				return v, true
			}
		}
	}

	if m := minusNumberRe.FindStringSubmatch(clean); m != nil {
		if v, err := parseNumber(m[1]); err == nil && v >= 0 && v <= 100 {
			return -v, true
		}
	}
	if m := plusNumberRe.FindStringSubmatch(clean); m != nil {
		if v, err := parseNumber(m[1]); err == nil && v >= 0 && v <= 200 {
			return v, true
		}
	}

	if m := bareFractionRe.FindStringSubmatch(clean); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return math.Round(v*100*100) / 100, true
		}
	}

	// Fallback: scan numbers right to left, skipping years, decree numbers
	// and anything too large to be a percentage.
	matches := anyNumberRe.FindAllString(clean, -1)
	negative := strings.Contains(clean, "MENOS")
	for i := len(matches) - 1; i >= 0; i-- {
		v, err := parseNumber(matches[i])
		if err != nil {
			continue
		}
		if _, ignored := ignoredNumbers[int(math.Abs(v))]; ignored {
			continue
		}
		if math.Abs(v) > 1000 {
			continue
		}
		if negative && v > 0 {
			v = -v
		}
		if v >= -100 && v <= 200 {
			return v, true
		}
	}
	return 0, false
}

// normalizeManual collapses the manual reference to one of the canonical
// tariff schedules.
func (c *Corrector) normalizeManual(raw string) string {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "" {
		c.stats.NormalizedManual++
		return "PROPIO"
	}
	switch {
	case ownManualRe.MatchString(text):
		c.stats.NormalizedManual++
		return "PROPIO"
	case issManualRe.MatchString(text) && !soatWordRe.MatchString(text):
		c.stats.NormalizedManual++
		return "ISS"
	case soatManualRe.MatchString(text):
		c.stats.NormalizedManual++
		return "SOAT"
	case numericManualRe.MatchString(text):
		c.stats.NormalizedManual++
		return "PROPIO"
	default:
		return strings.TrimSpace(raw)
	}
}

// repairTariff multiplies truncated thousands back up: real tariffs are
// never between 0 and 100 pesos.
func (c *Corrector) repairTariff(raw string) string {
	v, err := parseNumber(raw)
	if err != nil || v <= 0 || v >= 100 {
		return raw
	}
	c.stats.RepairedTariffs++
	return formatPercent(v * 1000)
}

func wordOverlap(a, b string) float64 {
	wa := strings.Fields(strings.ToUpper(a))
	wb := strings.Fields(strings.ToUpper(b))
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(wb))
	for _, w := range wb {
		set[w] = struct{}{}
	}
	common := 0
	for _, w := range wa {
		if _, ok := set[w]; ok {
			common++
		}
	}
	return float64(common) / float64(min(len(wa), len(wb)))
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	// Keep only the last dot as decimal separator when thousands dots are
	// present, e.g. "1.234.5" -> "1234.5".
	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}
	return strconv.ParseFloat(s, 64)
}

func formatPercent(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
