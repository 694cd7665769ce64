package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

func writeRegistryFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"CTO", "PRESTADOR", "CLASE DE PROVEEDOR", "CATEGORIA CUENTAS MEDICAS", "OBJETO",
			"FECHA FIRMA INICIAL", "FECHA OTROSI 1", "FECHA OTROSI 2", "NO. ACTA", "FECHA"},
		{"0045-2024", "HOSPITAL SAN RAFAEL", "PRESTADOR DE SERVICIOS DE SALUD", "IPS",
			"SERVICIOS DE SALUD", "15/01/2024", "20/03/2024", "", "2", "10/05/2024"},
		{"0046-2024", "TRANSPORTES VIDA", "PRESTADOR DE SERVICIOS DE SALUD", "AMBULANCIAS",
			"SERVICIO AMBULANCIA TAB", "", "", "", "", ""},
		{"0047-2024", "PAPELERIA CENTRAL", "PROVEEDOR ADMINISTRATIVO", "", "PAPELERIA",
			"", "", "", "", ""},
		{"0102-2023", "CLINICA DEL SUR", "PRESTADOR DE SERVICIOS DE SALUD", "IPS",
			"SERVICIOS DE SALUD", "01/02/2023", "", "", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "maestra.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func loadFixture(t *testing.T) *Registry {
	t.Helper()
	reg, err := Load(writeRegistryFixture(t), zap.NewNop())
	require.NoError(t, err)
	return reg
}

func TestContracts(t *testing.T) {
	reg := loadFixture(t)

	t.Run("should keep only health providers", func(t *testing.T) {
		contracts := reg.Contracts("", "")

		assert.Len(t, contracts, 3)
		for _, c := range contracts {
			assert.NotEqual(t, "47", c.Number)
		}
	})

	t.Run("should filter by year", func(t *testing.T) {
		contracts := reg.Contracts("2023", "")

		require.Len(t, contracts, 1)
		assert.Equal(t, "102-2023", contracts[0].ID())
		assert.Equal(t, "CLINICA DEL SUR", contracts[0].DisplayName)
	})

	t.Run("should filter by number ignoring padding", func(t *testing.T) {
		contracts := reg.Contracts("2024", "0045")

		require.Len(t, contracts, 1)
		assert.Equal(t, "45-2024", contracts[0].ID())
	})
}

func TestAmbulanceHint(t *testing.T) {
	reg := loadFixture(t)

	t.Run("should flag ambulance contracts naming the column", func(t *testing.T) {
		column, value, ok := reg.AmbulanceHint(models.Contract{Number: "46", Year: "2024"})

		assert.True(t, ok)
		assert.Equal(t, "CATEGORIA CUENTAS MEDICAS", column)
		assert.Contains(t, value, "AMBULANCIA")
	})

	t.Run("should not flag regular contracts", func(t *testing.T) {
		_, _, ok := reg.AmbulanceHint(models.Contract{Number: "45", Year: "2024"})

		assert.False(t, ok)
	})
}

func TestAgreementDate(t *testing.T) {
	reg := loadFixture(t)
	c45 := models.Contract{Number: "45", Year: "2024"}

	t.Run("should read the initial date from the registry", func(t *testing.T) {
		date, fromRegistry := reg.AgreementDate(c45, models.OriginInitial, 0, time.Time{})

		assert.True(t, fromRegistry)
		assert.Equal(t, "15/01/2024", date)
	})

	t.Run("should read the amendment date by number", func(t *testing.T) {
		date, fromRegistry := reg.AgreementDate(c45, models.OriginAmendment, 1, time.Time{})

		assert.True(t, fromRegistry)
		assert.Equal(t, "20/03/2024", date)
	})

	t.Run("should read the minutes date next to the matching number", func(t *testing.T) {
		date, fromRegistry := reg.AgreementDate(c45, models.OriginMinutes, 2, time.Time{})

		assert.True(t, fromRegistry)
		assert.Equal(t, "10/05/2024", date)
	})

	t.Run("should fall back to the file time when the registry is silent", func(t *testing.T) {
		mtime := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)

		date, fromRegistry := reg.AgreementDate(c45, models.OriginAmendment, 2, mtime)

		assert.False(t, fromRegistry)
		assert.Equal(t, "02/06/2024", date)
	})

	t.Run("should report nothing without registry data or file time", func(t *testing.T) {
		date, fromRegistry := reg.AgreementDate(c45, models.OriginAmendment, 5, time.Time{})

		assert.False(t, fromRegistry)
		assert.Empty(t, date)
	})
}

func TestCategory(t *testing.T) {
	reg := loadFixture(t)

	assert.Equal(t, "IPS", reg.Category(models.Contract{Number: "45", Year: "2024"}))
	assert.Empty(t, reg.Category(models.Contract{Number: "999", Year: "2024"}))
}
