package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSelectServicesSheet(t *testing.T) {
	t.Run("should pick the exact SERVICIOS sheet", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"INSTRUCCIONES", "SERVICIOS", "PAQUETES"})

		assert.True(t, sel.Found)
		assert.Equal(t, "SERVICIOS", sel.Sheet)
		assert.Len(t, sel.Excluded, 2)
	})

	t.Run("should pick known tariff sheet prefixes ignoring spacing", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"TARIFAS  DE  SERVICIOS 2024"})

		assert.True(t, sel.Found)
	})

	t.Run("should skip package sheets even with a tariff prefix", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"TARIFAS PAQUETES", "TARIFA DE SERVICIOS"})

		assert.True(t, sel.Found)
		assert.Equal(t, "TARIFA DE SERVICIOS", sel.Sheet)
	})

	t.Run("should accept CUPS named sheets", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"LISTADO CUPS"})

		assert.True(t, sel.Found)
	})

	t.Run("should accept legacy annex sheet names", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"ANEXO 1"})

		assert.True(t, sel.Found)
	})

	t.Run("should diagnose ambulance only workbooks", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"TARIFAS AMBULANCIA", "TAB URBANO"})

		assert.False(t, sel.Found)
		assert.Equal(t, DiagnosisAmbulancesOnly, sel.Diagnosis)
	})

	t.Run("should diagnose transfer only workbooks", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"TRASLADOS 2024"})

		assert.False(t, sel.Found)
		assert.Equal(t, DiagnosisTransfersOnly, sel.Diagnosis)
	})

	t.Run("should compose the operator message on a miss", func(t *testing.T) {
		sel := SelectServicesSheet([]string{"HOJA1", "RESUMEN", "OTRA COSA"})

		assert.False(t, sel.Found)
		msg := NotFoundMessage(sel, "IPS")
		assert.Contains(t, msg, "No se encontró hoja de servicios válida")
		assert.Contains(t, msg, "'OTRA COSA'")
		assert.Contains(t, msg, "Hojas excluidas")
		assert.Contains(t, msg, "Categoría cuentas médicas: 'IPS'")
	})
}

func TestDetectColumns(t *testing.T) {
	t.Run("should map the standard header", func(t *testing.T) {
		header := []string{
			"CODIGO CUPS", "CODIGO HOMOLOGO", "DESCRIPCION DEL CUPS",
			"TARIFA UNITARIA EN PESOS", "MANUAL TARIFARIO",
			"TARIFA SEGUN TARIFARIO", "OBSERVACIONES",
		}

		cols := DetectColumns(header)

		assert.Equal(t, 0, cols.Code)
		assert.Equal(t, 1, cols.Homolog)
		assert.Equal(t, 2, cols.Description)
		assert.Equal(t, 3, cols.Tariff)
		assert.Equal(t, 4, cols.ManualRef)
		assert.Equal(t, 5, cols.Percent)
		assert.Equal(t, 6, cols.Observations)
	})

	t.Run("should not map the homolog header as the code column", func(t *testing.T) {
		header := []string{"CODIGO HOMOLOGO CUPS", "CODIGO CUPS"}

		cols := DetectColumns(header)

		assert.Equal(t, 1, cols.Code)
		assert.Equal(t, 0, cols.Homolog)
	})

	t.Run("should not map the percent header as the tariff column", func(t *testing.T) {
		header := []string{"CODIGO CUPS", "TARIFA SEGUN TARIFARIO"}

		cols := DetectColumns(header)

		assert.Equal(t, -1, cols.Tariff)
		assert.Equal(t, 1, cols.Percent)
	})

	t.Run("should report a sheet without a code column", func(t *testing.T) {
		cols := DetectColumns([]string{"DESCRIPCION", "VALOR"})

		assert.False(t, cols.HasMinimum())
	})

	t.Run("should map accented headers", func(t *testing.T) {
		cols := DetectColumns([]string{"CÓDIGO CUPS", "DESCRIPCIÓN DEL CUPS"})

		assert.Equal(t, 0, cols.Code)
		assert.Equal(t, 1, cols.Description)
	})
}

func serviceSheet() [][]string {
	return [][]string{
		{"ANEXO 1 TARIFAS"},
		{"DEPARTAMENTO", "MUNICIPIO", "DIRECCION", "CODIGO DE HABILITACION", "NUMERO DE SEDE"},
		{"VALLE DEL CAUCA", "CALI", "CRA 15 # 93-60", "7601234567", "1"},
		{"VALLE DEL CAUCA", "PALMIRA", "CALLE 30 # 20-15", "7601234567", "2"},
		{"ANTIOQUIA", "MEDELLIN", "AV 80 # 45-12", "0501234567", "3"},
		{"CODIGO CUPS", "CODIGO HOMOLOGO", "DESCRIPCION DEL CUPS", "TARIFA UNITARIA EN PESOS", "MANUAL TARIFARIO", "TARIFA SEGUN TARIFARIO"},
		{"890201", "", "CONSULTA MEDICINA GENERAL", "45000", "ISS 2001", "30"},
		{"890301", "", "CONSULTA ESPECIALIZADA", "65000", "PROPIO", ""},
		{"NOTA 1", "", "VER ANEXO", "", "", ""},
	}
}

func TestExtractRows(t *testing.T) {
	e := NewExtractor(50, 20000, zap.NewNop())

	t.Run("should fan each service out to every active site", func(t *testing.T) {
		res, err := e.extractRows(serviceSheet())

		assert.NoError(t, err)
		assert.Len(t, res.Records, 6)
		assert.False(t, res.LowConfidence)
	})

	t.Run("should format the habilitation key per site", func(t *testing.T) {
		res, err := e.extractRows(serviceSheet())

		assert.NoError(t, err)
		assert.Equal(t, "7601234567-01", res.Records[0].Habilitation)
		assert.Equal(t, "7601234567-02", res.Records[1].Habilitation)
		assert.Equal(t, "0501234567-03", res.Records[2].Habilitation)
	})

	t.Run("should carry every tariff field", func(t *testing.T) {
		res, err := e.extractRows(serviceSheet())

		assert.NoError(t, err)
		first := res.Records[0]
		assert.Equal(t, "890201", first.ServiceCode)
		assert.Equal(t, "CONSULTA MEDICINA GENERAL", first.Description)
		assert.Equal(t, "45000", first.TariffAmount)
		assert.Equal(t, "ISS 2001", first.TariffManualRef)
		assert.Equal(t, "30", first.TariffPercent)
	})

	t.Run("should reject note rows", func(t *testing.T) {
		res, err := e.extractRows(serviceSheet())

		assert.NoError(t, err)
		assert.Equal(t, 1, res.RowsRejected)
	})

	t.Run("should fail a sheet without a service header", func(t *testing.T) {
		rows := [][]string{
			{"DEPARTAMENTO", "MUNICIPIO", "DIRECCION", "CODIGO DE HABILITACION", "NUMERO DE SEDE"},
			{"VALLE DEL CAUCA", "CALI", "CRA 1 # 2-3", "7601234567", "1"},
		}

		_, err := e.extractRows(rows)

		assert.ErrorContains(t, err, "Sin encabezado de servicios")
	})

	t.Run("should fail a sheet without sites", func(t *testing.T) {
		rows := [][]string{
			{"CODIGO CUPS", "DESCRIPCION DEL CUPS", "TARIFA UNITARIA EN PESOS"},
			{"890201", "CONSULTA", "45000"},
		}

		_, err := e.extractRows(rows)

		assert.ErrorContains(t, err, "Sin sección de sedes")
	})

	t.Run("should flag a trailing site block that never activates", func(t *testing.T) {
		rows := append(serviceSheet(),
			[]string{"DEPARTAMENTO", "MUNICIPIO", "DIRECCION", "CODIGO DE HABILITACION", "NUMERO DE SEDE"},
			[]string{"CAUCA", "POPAYAN", "CALLE 5 # 4-68", "1901234567", "1"},
		)

		res, err := e.extractRows(rows)

		assert.NoError(t, err)
		assert.True(t, res.LowConfidence)
	})

	t.Run("should start a new site list on a second block", func(t *testing.T) {
		rows := append(serviceSheet(),
			[]string{"DEPARTAMENTO", "MUNICIPIO", "DIRECCION", "CODIGO DE HABILITACION", "NUMERO DE SEDE"},
			[]string{"CAUCA", "POPAYAN", "CALLE 5 # 4-68", "1901234567", "1"},
			[]string{"CODIGO CUPS", "CODIGO HOMOLOGO", "DESCRIPCION DEL CUPS", "TARIFA UNITARIA EN PESOS", "MANUAL TARIFARIO", "TARIFA SEGUN TARIFARIO"},
			[]string{"890401", "", "TERAPIA FISICA", "30000", "SOAT", ""},
		)

		res, err := e.extractRows(rows)

		assert.NoError(t, err)
		assert.Len(t, res.Records, 7)
		last := res.Records[len(res.Records)-1]
		assert.Equal(t, "1901234567-01", last.Habilitation)
		assert.Equal(t, "890401", last.ServiceCode)
	})
}
