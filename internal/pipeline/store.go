// Package pipeline buffers extracted records in bounded batches, repairs
// them, lands them in durable storage and renders the final workbooks.
package pipeline

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

// Store lands batches in a SQLite database so a run never holds more than
// one batch of records in memory.
type Store struct {
	db    *sql.DB
	runID string
}

// OpenStore opens or creates the database and stamps this run.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	s := &Store{db: db, runID: uuid.NewString()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			contract_id TEXT NOT NULL,
			habilitation TEXT,
			service_code TEXT,
			homolog_code TEXT,
			description TEXT,
			tariff_amount TEXT,
			manual_ref TEXT,
			percent TEXT,
			observations TEXT,
			origin TEXT,
			agreement_on TEXT,
			source_file TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id, contract_id)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			priority INTEGER NOT NULL,
			message TEXT,
			contract_id TEXT,
			file_name TEXT,
			suggestion TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS unclassified_files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			contract_id TEXT,
			file_name TEXT,
			reason TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			contract_id TEXT NOT NULL,
			provider TEXT,
			success INTEGER NOT NULL,
			records INTEGER NOT NULL,
			files INTEGER NOT NULL,
			message TEXT,
			category TEXT,
			low_confidence INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
	}
	return nil
}

// RunID identifies this run's rows in the store.
func (s *Store) RunID() string {
	return s.runID
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRecords lands one batch in a single transaction.
func (s *Store) InsertRecords(records []models.OutputRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin record flush: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO records
		(run_id, contract_id, habilitation, service_code, homolog_code,
		 description, tariff_amount, manual_ref, percent, observations,
		 origin, agreement_on, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(s.runID, r.ContractID, r.Habilitation, r.ServiceCode,
			r.HomologCode, r.Description, r.TariffAmount, r.ManualRef, r.Percent,
			r.Observations, r.Origin, r.AgreementOn, r.SourceFile); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record flush: %w", err)
	}
	return nil
}

// InsertAlerts lands one alert batch.
func (s *Store) InsertAlerts(alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin alert flush: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO alerts
		(run_id, kind, priority, message, contract_id, file_name, suggestion)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare alert insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		if _, err := stmt.Exec(s.runID, string(a.Kind), int(a.Priority), a.Message,
			a.ContractID, a.FileName, a.Suggestion); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert flush: %w", err)
	}
	return nil
}

// InsertUnclassified records spreadsheets that matched no annex rule.
func (s *Store) InsertUnclassified(files []models.UnclassifiedFile) error {
	for _, f := range files {
		if _, err := s.db.Exec(`INSERT INTO unclassified_files
			(run_id, contract_id, file_name, reason) VALUES (?, ?, ?, ?)`,
			s.runID, f.ContractID, f.FileName, f.Reason); err != nil {
			return fmt.Errorf("failed to insert unclassified file: %w", err)
		}
	}
	return nil
}

// InsertOutcome records the summary row of one contract.
func (s *Store) InsertOutcome(o models.ContractOutcome) error {
	_, err := s.db.Exec(`INSERT INTO outcomes
		(run_id, contract_id, provider, success, records, files, message,
		 category, low_confidence, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, o.ContractID, o.Provider, boolToInt(o.Success), o.Records,
		o.Files, o.Message, o.Category, boolToInt(o.LowConfidence),
		o.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// CountRecords returns how many records this run landed.
func (s *Store) CountRecords() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE run_id = ?`, s.runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// WalkRecords streams this run's records in insertion order.
func (s *Store) WalkRecords(fn func(models.OutputRecord) error) error {
	rows, err := s.db.Query(`SELECT contract_id, habilitation, service_code,
		homolog_code, description, tariff_amount, manual_ref, percent,
		observations, origin, agreement_on, source_file
		FROM records WHERE run_id = ? ORDER BY id`, s.runID)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.OutputRecord
		if err := rows.Scan(&r.ContractID, &r.Habilitation, &r.ServiceCode,
			&r.HomologCode, &r.Description, &r.TariffAmount, &r.ManualRef,
			&r.Percent, &r.Observations, &r.Origin, &r.AgreementOn,
			&r.SourceFile); err != nil {
			return fmt.Errorf("failed to scan record: %w", err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Alerts returns this run's alerts ordered by priority, kind and contract.
func (s *Store) Alerts() ([]models.Alert, error) {
	rows, err := s.db.Query(`SELECT kind, priority, message, contract_id,
		file_name, suggestion FROM alerts WHERE run_id = ?
		ORDER BY priority, kind, contract_id`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		var kind string
		var priority int
		if err := rows.Scan(&kind, &priority, &a.Message, &a.ContractID,
			&a.FileName, &a.Suggestion); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Kind = models.AlertKind(kind)
		a.Priority = models.Priority(priority)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Unclassified returns this run's unclassified files.
func (s *Store) Unclassified() ([]models.UnclassifiedFile, error) {
	rows, err := s.db.Query(`SELECT contract_id, file_name, reason
		FROM unclassified_files WHERE run_id = ? ORDER BY id`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassified files: %w", err)
	}
	defer rows.Close()

	var out []models.UnclassifiedFile
	for rows.Next() {
		var f models.UnclassifiedFile
		if err := rows.Scan(&f.ContractID, &f.FileName, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan unclassified file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Outcomes returns this run's per-contract summaries.
func (s *Store) Outcomes() ([]models.ContractOutcome, error) {
	rows, err := s.db.Query(`SELECT contract_id, provider, success, records,
		files, message, category, low_confidence, elapsed_ms
		FROM outcomes WHERE run_id = ? ORDER BY id`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.ContractOutcome
	for rows.Next() {
		var o models.ContractOutcome
		var success, lowConfidence int
		var elapsedMs int64
		if err := rows.Scan(&o.ContractID, &o.Provider, &success, &o.Records,
			&o.Files, &o.Message, &o.Category, &lowConfidence, &elapsedMs); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Success = success != 0
		o.LowConfidence = lowConfidence != 0
		o.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
