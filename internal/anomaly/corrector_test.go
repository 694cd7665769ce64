package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

func newTestCorrector() *Corrector {
	return NewCorrector(zap.NewNop())
}

func TestTextClassifier(t *testing.T) {
	c := NewTextClassifier()

	t.Run("should classify empty cells", func(t *testing.T) {
		class, conf := c.Classify("   ")

		assert.Equal(t, ClassEmpty, class)
		assert.Equal(t, 1.0, conf)
	})

	t.Run("should classify numeric cells as percents", func(t *testing.T) {
		class, _ := c.Classify("15%")

		assert.Equal(t, ClassPercent, class)
	})

	t.Run("should short circuit on manual keywords", func(t *testing.T) {
		for _, text := range []string{"ISS 2001", "SOAT VIGENTE", "TARIFA PROPIA"} {
			class, conf := c.Classify(text)

			assert.Equal(t, ClassManual, class, text)
			assert.GreaterOrEqual(t, conf, 0.9)
		}
	})

	t.Run("should short circuit on medical keywords", func(t *testing.T) {
		class, _ := c.Classify("CONSULTA MEDICINA GENERAL")

		assert.Equal(t, ClassMedical, class)
	})
}

func TestCorrectBatch(t *testing.T) {
	t.Run("should swap a peso amount out of the manual column", func(t *testing.T) {
		c := newTestCorrector()
		recs := []models.OutputRecord{{
			Description:  "CONSULTA MEDICINA GENERAL",
			TariffAmount: "0",
			ManualRef:    "45000",
			Percent:      "ISS 2001",
		}}

		out := c.CorrectBatch(recs)

		assert.Equal(t, "ISS", out[0].ManualRef)
		assert.Equal(t, "0", out[0].Percent)
		assert.Equal(t, 1, c.Stats().SwappedColumns)
	})

	t.Run("should move the reference out of the percent column when the manual holds medical text", func(t *testing.T) {
		c := newTestCorrector()
		recs := []models.OutputRecord{{
			Description: "TERAPIA FISICA INTEGRAL",
			ManualRef:   "CONSULTA ESPECIALIZADA",
			Percent:     "ISS 2001",
		}}

		out := c.CorrectBatch(recs)

		assert.Equal(t, "ISS", out[0].ManualRef)
		assert.Equal(t, "0", out[0].Percent)
	})

	t.Run("should leave well formed records alone", func(t *testing.T) {
		c := newTestCorrector()
		recs := []models.OutputRecord{{
			Description:  "CONSULTA MEDICINA GENERAL",
			TariffAmount: "45000",
			ManualRef:    "ISS 2001",
			Percent:      "30",
		}}

		out := c.CorrectBatch(recs)

		assert.Equal(t, "ISS", out[0].ManualRef)
		assert.Equal(t, "30", out[0].Percent)
		assert.Equal(t, "45000", out[0].TariffAmount)
		assert.Equal(t, 0, c.Stats().SwappedColumns)
	})
}

func TestExtractPercent(t *testing.T) {
	c := newTestCorrector()

	t.Run("should read trailing signed percentages", func(t *testing.T) {
		assert.Equal(t, "30", c.extractPercent("ISS 2001 + 30%", ""))
		assert.Equal(t, "-15", c.extractPercent("SOAT - 15", ""))
	})

	t.Run("should read the MENOS spelling as negative", func(t *testing.T) {
		assert.Equal(t, "-10", c.extractPercent("SOAT 2023 MENOS 10", ""))
	})

	t.Run("should scale bare fractions", func(t *testing.T) {
		assert.Equal(t, "35", c.extractPercent("0.35", ""))
	})

	t.Run("should keep signed fractions unscaled", func(t *testing.T) {
		assert.Equal(t, "-0.15", c.extractPercent("-0.15", ""))
	})

	t.Run("should skip years and decree numbers", func(t *testing.T) {
		assert.Equal(t, "0", c.extractPercent("ISS 2001", ""))
		assert.Equal(t, "0", c.extractPercent("DECRETO 2423", ""))
	})

	t.Run("should zero references to the own tariff", func(t *testing.T) {
		assert.Equal(t, "0", c.extractPercent("TARIFA PLENA", ""))
		assert.Equal(t, "0", c.extractPercent("PROPIA", ""))
	})

	t.Run("should zero a percent that duplicates the tariff", func(t *testing.T) {
		assert.Equal(t, "0", c.extractPercent("45000", "45000"))
	})
}

func TestNormalizeManual(t *testing.T) {
	c := newTestCorrector()

	cases := map[string]string{
		"":                 "PROPIO",
		"TARIFA PROPIA":    "PROPIO",
		"INSTITUCIONAL":    "PROPIO",
		"ISS 2001":         "ISS",
		"SOAT VIGENTE":     "SOAT",
		"UVT":              "SOAT",
		"DECRETO 2423":     "SOAT",
		"45.000":           "PROPIO",
		"MANUAL ESPECIAL X": "MANUAL ESPECIAL X",
	}
	for input, want := range cases {
		assert.Equal(t, want, c.normalizeManual(input), input)
	}
}

func TestRepairTariff(t *testing.T) {
	c := newTestCorrector()

	t.Run("should scale truncated thousands", func(t *testing.T) {
		assert.Equal(t, "45000", c.repairTariff("45"))
	})

	t.Run("should leave real amounts alone", func(t *testing.T) {
		assert.Equal(t, "152300", c.repairTariff("152300"))
		assert.Equal(t, "", c.repairTariff(""))
		assert.Equal(t, "0", c.repairTariff("0"))
	})
}
