package pipeline

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/anomaly"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
	"github.com/Daniromero1410/Consolidador-Positiva/pkg/checksum"
)

// Consolidator is the bounded buffer between extraction and the store.
// Records and alerts accumulate up to their batch size and flush to
// SQLite, so memory stays flat no matter how many contracts a run covers.
type Consolidator struct {
	store     *Store
	corrector *anomaly.Corrector
	logger    *zap.Logger

	batchSize      int
	alertBatchSize int

	mu         sync.Mutex
	records    []models.OutputRecord
	alerts     []models.Alert
	seenAlerts map[uint64]struct{}

	totalRecords int
	totalAlerts  int
	flushErr     error
}

func NewConsolidator(store *Store, corrector *anomaly.Corrector, batchSize, alertBatchSize int, logger *zap.Logger) *Consolidator {
	return &Consolidator{
		store:          store,
		corrector:      corrector,
		logger:         logger,
		batchSize:      batchSize,
		alertBatchSize: alertBatchSize,
		records:        make([]models.OutputRecord, 0, batchSize),
		alerts:         make([]models.Alert, 0, alertBatchSize),
		seenAlerts:     make(map[uint64]struct{}),
	}
}

// Add buffers records and flushes when the batch is full. Large inputs are
// chunked so every flush lands exactly one batch and the buffer never grows
// past the batch size. A flush failure is sticky: the run must stop rather
// than silently drop tariff rows.
func (c *Consolidator) Add(records ...models.OutputRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flushErr != nil {
		return c.flushErr
	}

	for len(records) > 0 {
		n := c.batchSize - len(c.records)
		if n > len(records) {
			n = len(records)
		}
		c.records = append(c.records, records[:n]...)
		c.totalRecords += n
		records = records[n:]

		if len(c.records) >= c.batchSize {
			if err := c.flushRecordsLocked(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Alert implements models.AlertSink. Duplicate alerts, keyed on kind,
// message, contract and file, are dropped.
func (c *Consolidator) Alert(kind models.AlertKind, message, contractID, fileName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := checksum.CalculateKey(string(kind), message, contractID, fileName)
	if _, dup := c.seenAlerts[key]; dup {
		return
	}
	c.seenAlerts[key] = struct{}{}

	c.alerts = append(c.alerts, models.NewAlert(kind, message, contractID, fileName))
	c.totalAlerts++
	if len(c.alerts) >= c.alertBatchSize {
		if err := c.flushAlertsLocked(); err != nil && c.flushErr == nil {
			c.flushErr = err
		}
	}
}

// Flush forces both buffers to the store.
func (c *Consolidator) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flushErr != nil {
		return c.flushErr
	}
	if err := c.flushRecordsLocked(); err != nil {
		return err
	}
	return c.flushAlertsLocked()
}

// Totals returns the records and alerts counted so far.
func (c *Consolidator) Totals() (records, alerts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalRecords, c.totalAlerts
}

// CorrectionStats exposes the corrector counters for the final summary.
func (c *Consolidator) CorrectionStats() anomaly.Stats {
	return c.corrector.Stats()
}

func (c *Consolidator) flushRecordsLocked() error {
	if len(c.records) == 0 {
		return nil
	}
	batch := c.corrector.CorrectBatch(c.records)
	if err := c.store.InsertRecords(batch); err != nil {
		c.flushErr = err
		return err
	}
	c.logger.Debug("flushed records", zap.Int("count", len(batch)))
	c.records = c.records[:0]
	return nil
}

func (c *Consolidator) flushAlertsLocked() error {
	if len(c.alerts) == 0 {
		return nil
	}
	if err := c.store.InsertAlerts(c.alerts); err != nil {
		c.flushErr = err
		return err
	}
	c.logger.Debug("flushed alerts", zap.Int("count", len(c.alerts)))
	c.alerts = c.alerts[:0]
	return nil
}
