package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/anomaly"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

func newTestConsolidator(t *testing.T, batchSize, alertBatchSize int) (*Consolidator, *Store) {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sink := NewConsolidator(store, anomaly.NewCorrector(zap.NewNop()), batchSize, alertBatchSize, zap.NewNop())
	return sink, store
}

func record(contractID, code string) models.OutputRecord {
	return models.OutputRecord{
		ContractID:   contractID,
		Habilitation: "7601234567-01",
		ServiceCode:  code,
		Description:  "CONSULTA MEDICINA GENERAL",
		TariffAmount: "45000",
		ManualRef:    "ISS",
		Percent:      "30",
		Origin:       "INICIAL",
	}
}

func TestConsolidator(t *testing.T) {
	t.Run("should hold records below the batch size in memory", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 10, 10)

		require.NoError(t, sink.Add(record("45-2024", "890201")))

		n, err := store.CountRecords()
		assert.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("should flush a full batch to the store", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 3, 10)

		require.NoError(t, sink.Add(
			record("45-2024", "890201"),
			record("45-2024", "890301"),
			record("45-2024", "890401"),
		))

		n, err := store.CountRecords()
		assert.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("should flush once per threshold crossing on a large add", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 3, 10)

		batch := make([]models.OutputRecord, 7)
		for i := range batch {
			batch[i] = record("45-2024", "890201")
		}
		require.NoError(t, sink.Add(batch...))

		n, err := store.CountRecords()
		assert.NoError(t, err)
		assert.Equal(t, 6, n)

		records, _ := sink.Totals()
		assert.Equal(t, 7, records)

		require.NoError(t, sink.Flush())
		n, err = store.CountRecords()
		assert.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("should flush the remainder on demand", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 10, 10)

		require.NoError(t, sink.Add(record("45-2024", "890201")))
		require.NoError(t, sink.Flush())

		n, err := store.CountRecords()
		assert.NoError(t, err)
		assert.Equal(t, 1, n)

		records, alerts := sink.Totals()
		assert.Equal(t, 1, records)
		assert.Equal(t, 0, alerts)
	})

	t.Run("should run the corrector before landing records", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 1, 10)

		rec := record("45-2024", "890201")
		rec.ManualRef = "TARIFA PROPIA"
		rec.Percent = "ISS 2001 + 30%"
		require.NoError(t, sink.Add(rec))

		var landed []models.OutputRecord
		require.NoError(t, store.WalkRecords(func(r models.OutputRecord) error {
			landed = append(landed, r)
			return nil
		}))
		require.Len(t, landed, 1)
		assert.Equal(t, "PROPIO", landed[0].ManualRef)
		assert.Equal(t, "30", landed[0].Percent)
	})

	t.Run("should drop duplicate alerts", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 10, 10)

		sink.Alert(models.AlertNoAnnex1, "No hay anexo 1", "45-2024", "")
		sink.Alert(models.AlertNoAnnex1, "No hay anexo 1", "45-2024", "")
		sink.Alert(models.AlertNoAnnex1, "No hay anexo 1", "46-2024", "")
		require.NoError(t, sink.Flush())

		alerts, err := store.Alerts()
		assert.NoError(t, err)
		assert.Len(t, alerts, 2)
	})

	t.Run("should resolve priority and suggestion on stored alerts", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 10, 10)

		sink.Alert(models.AlertContractNotFound, "CONTRATO NO SE ENCUENTRA", "99-2024", "")
		require.NoError(t, sink.Flush())

		alerts, err := store.Alerts()
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, models.PriorityCritical, alerts[0].Priority)
		assert.NotEmpty(t, alerts[0].Suggestion)
	})

	t.Run("should order alerts by priority", func(t *testing.T) {
		sink, store := newTestConsolidator(t, 10, 10)

		sink.Alert(models.AlertPackageFile, "Archivo de paquetes", "45-2024", "p.xlsx")
		sink.Alert(models.AlertNoRatesFolder, "No existe carpeta TARIFAS", "45-2024", "")
		require.NoError(t, sink.Flush())

		alerts, err := store.Alerts()
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.Equal(t, models.AlertNoRatesFolder, alerts[0].Kind)
	})
}

func TestStoreOutcomes(t *testing.T) {
	_, store := newTestConsolidator(t, 10, 10)

	require.NoError(t, store.InsertOutcome(models.ContractOutcome{
		ContractID: "45-2024",
		Provider:   "HOSPITAL SAN RAFAEL",
		Success:    true,
		Records:    6,
		Files:      2,
	}))

	outcomes, err := store.Outcomes()
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, 6, outcomes[0].Records)
}
