// Package orchestrator drives a consolidation run: it walks the contract
// list, keeps the remote session healthy, extracts every annex and lands
// the results through the pipeline. One bad contract never stops the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/config"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/finder"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/pipeline"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/recognizer"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/registry"
	"github.com/Daniromero1410/Consolidador-Positiva/pkg/checksum"
)

// RemoteSession is the session surface the orchestrator manages.
type RemoteSession interface {
	finder.Session
	IsActive() bool
	ForceReconnect() error
	Reconnections() int
}

// Orchestrator runs the consolidation end to end.
type Orchestrator struct {
	cfg       *config.Config
	logger    *zap.Logger
	session   RemoteSession
	registry  *registry.Registry
	finder    *finder.Finder
	extractor *recognizer.Extractor
	sink      *pipeline.Consolidator
	store     *pipeline.Store

	// OnProgress, when set, is called after every contract.
	OnProgress func(models.Progress)
}

// Report is the final accounting of one run.
type Report struct {
	Contracts     int
	Succeeded     int
	Failed        int
	Records       int
	Alerts        int
	Reconnections int
	Elapsed       time.Duration
}

func New(cfg *config.Config, session RemoteSession, reg *registry.Registry,
	fnd *finder.Finder, extractor *recognizer.Extractor,
	sink *pipeline.Consolidator, store *pipeline.Store, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		session:   session,
		registry:  reg,
		finder:    fnd,
		extractor: extractor,
		sink:      sink,
		store:     store,
	}
}

// Run processes every contract matched by the year/number filters.
func (o *Orchestrator) Run(ctx context.Context, year, number string) (*Report, error) {
	start := time.Now()

	contracts := o.registry.Contracts(year, number)
	if len(contracts) == 0 {
		return nil, fmt.Errorf("no contracts matched year=%q number=%q", year, number)
	}
	o.logger.Info("run started", zap.Int("contracts", len(contracts)))

	report := &Report{Contracts: len(contracts)}
	for idx, contract := range contracts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := o.ensureSession(idx); err != nil {
			o.sink.Alert(models.AlertConnection,
				"No se pudo conectar - Socket is closed", contract.ID(), "")
			o.recordOutcome(models.ContractOutcome{
				ContractID: contract.ID(),
				Provider:   contract.DisplayName,
				Message:    "Sin conexión (Socket closed)",
			})
			report.Failed++
			continue
		}

		outcome := o.processContract(ctx, contract)
		o.recordOutcome(outcome)
		if outcome.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}

		if o.OnProgress != nil {
			o.OnProgress(models.Progress{
				Processed: idx + 1,
				Total:     len(contracts),
				Current:   contract.ID(),
			})
		}
	}

	if err := o.sink.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush pipeline: %w", err)
	}

	report.Records, report.Alerts = o.sink.Totals()
	report.Reconnections = o.session.Reconnections()
	report.Elapsed = time.Since(start)
	o.logger.Info("run finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("records", report.Records),
		zap.Int("reconnections", report.Reconnections),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// ensureSession reconnects on a fixed cadence and whenever the probe says
// the session died. Long extractions starve the connection, so waiting
// for a failure wastes a navigation round-trip.
func (o *Orchestrator) ensureSession(idx int) error {
	if (idx > 0 && idx%o.cfg.ReconnectEvery == 0) || !o.session.IsActive() {
		if err := o.session.ForceReconnect(); err != nil {
			return err
		}
	}
	return nil
}

// processContract handles one contract; every failure path returns an
// outcome instead of an error so the run keeps going.
func (o *Orchestrator) processContract(ctx context.Context, contract models.Contract) models.ContractOutcome {
	start := time.Now()
	outcome := models.ContractOutcome{
		ContractID: contract.ID(),
		Provider:   contract.DisplayName,
		Category:   o.registry.Category(contract),
	}
	defer func() {
		outcome.Elapsed = time.Since(start)
	}()

	if column, value, ok := o.registry.AmbulanceHint(contract); ok {
		o.sink.Alert(models.AlertAmbulanceRegistry,
			fmt.Sprintf("Identificado como contrato de ambulancias - Columna '%s' contiene '%s'",
				column, value),
			contract.ID(), "")
	}

	if err := o.locateWithRetry(contract); err != nil {
		outcome.Message = err.Error()
		return outcome
	}

	workDir := filepath.Join(o.cfg.WorkDir,
		fmt.Sprintf("t_%s_%s", contract.Number, contract.Year))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		outcome.Message = fmt.Sprintf("failed to create workdir: %v", err)
		return outcome
	}
	defer os.RemoveAll(workDir)

	fetched, err := o.finder.FetchAnnexes(contract, workDir)
	if err != nil {
		outcome.Message = err.Error()
		return outcome
	}
	if len(fetched.Unclassified) > 0 {
		if err := o.store.InsertUnclassified(fetched.Unclassified); err != nil {
			o.logger.Error("failed to record unclassified files", zap.Error(err))
		}
	}

	var files []models.AnnexFile
	if fetched.Principal != nil {
		files = append(files, *fetched.Principal)
	}
	files = append(files, fetched.Minutes...)
	outcome.Files = len(files)
	if len(files) == 0 {
		outcome.Message = "Sin anexos descargables"
		return outcome
	}

	seen := make(map[string]bool, len(files))
	for _, annex := range files {
		if sum, err := checksum.GetFileChecksum(annex.LocalPath); err == nil {
			if seen[sum] {
				o.logger.Info("skipping annex with duplicate content",
					zap.String("contract", contract.ID()),
					zap.String("file", annex.Name))
				continue
			}
			seen[sum] = true
		}
		records, lowConfidence := o.processAnnex(ctx, contract, annex)
		outcome.Records += records
		outcome.LowConfidence = outcome.LowConfidence || lowConfidence
	}

	outcome.Success = outcome.Records > 0
	if outcome.Success {
		outcome.Message = fmt.Sprintf("%d registros de %d archivo(s)", outcome.Records, len(files))
	} else if outcome.Message == "" {
		outcome.Message = "Sin registros extraídos"
	}
	return outcome
}

// locateWithRetry navigates to the contract folder, reconnecting on dead
// sessions up to three times.
func (o *Orchestrator) locateWithRetry(contract models.Contract) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		lastErr = o.finder.Locate(contract)
		if lastErr == nil {
			return nil
		}
		if !isSocketError(lastErr) {
			return lastErr
		}
		o.logger.Warn("navigation hit a dead session",
			zap.String("contract", contract.ID()),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
		if err := o.session.ForceReconnect(); err != nil {
			return err
		}
	}
	return lastErr
}

// processAnnex extracts one downloaded annex into the pipeline and returns
// how many records it produced.
func (o *Orchestrator) processAnnex(ctx context.Context, contract models.Contract, annex models.AnnexFile) (int, bool) {
	budget := o.cfg.FileTimeoutFor(contract.ID())
	fileCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	res, err := o.extractor.ExtractFileContext(fileCtx, annex.LocalPath)
	if err != nil {
		o.alertExtractionFailure(contract, annex, err, budget)
		return 0, false
	}

	date, fromRegistry := o.registry.AgreementDate(contract, annex.Origin, annex.Number, annex.ModifiedAt)
	if !fromRegistry {
		origin := annex.Origin.Label(annex.Number)
		if date == "" {
			o.sink.Alert(models.AlertDateNotFound,
				fmt.Sprintf("Sin fecha para %s", origin), contract.ID(), annex.Name)
		} else {
			o.sink.Alert(models.AlertRegistryDateGap,
				fmt.Sprintf("Fecha de %s tomada del archivo", origin), contract.ID(), annex.Name)
		}
	}

	originLabel := annex.Origin.Label(annex.Number)
	records := make([]models.OutputRecord, 0, len(res.Records))
	for _, svc := range res.Records {
		records = append(records, models.OutputRecord{
			ContractID:   contract.ID(),
			Habilitation: svc.Habilitation,
			ServiceCode:  svc.ServiceCode,
			HomologCode:  svc.HomologCode,
			Description:  svc.Description,
			TariffAmount: svc.TariffAmount,
			ManualRef:    svc.TariffManualRef,
			Percent:      svc.TariffPercent,
			Observations: svc.Observations,
			Origin:       originLabel,
			AgreementOn:  date,
			SourceFile:   annex.Name,
		})
	}
	if err := o.sink.Add(records...); err != nil {
		o.logger.Error("pipeline rejected batch", zap.Error(err))
		return 0, false
	}
	return len(records), res.LowConfidence
}

// alertExtractionFailure maps every extraction error to its alert.
func (o *Orchestrator) alertExtractionFailure(contract models.Contract, annex models.AnnexFile, err error, budget time.Duration) {
	var notFound *recognizer.SheetNotFoundError
	var timeout *recognizer.TimeoutError

	switch {
	case errors.As(err, &timeout):
		o.sink.Alert(models.AlertTimeout,
			fmt.Sprintf("Archivo tardó más de %ds", int(budget.Seconds())),
			contract.ID(), annex.Name)
	case errors.As(err, &notFound):
		sel := notFound.Selection
		switch sel.Diagnosis {
		case recognizer.DiagnosisAmbulancesOnly:
			o.sink.Alert(models.AlertFileAmbulancesOnly,
				"El archivo solo contiene hojas de ambulancias", contract.ID(), annex.Name)
		case recognizer.DiagnosisTransfersOnly:
			o.sink.Alert(models.AlertFileTransfersOnly,
				"El archivo solo contiene hojas de traslados", contract.ID(), annex.Name)
		case recognizer.DiagnosisMixedTransfers:
			o.sink.Alert(models.AlertTransfersOnly,
				"El archivo solo contiene traslados y ambulancias", contract.ID(), annex.Name)
		default:
			o.sink.Alert(models.AlertSheetNotFound,
				recognizer.NotFoundMessage(sel, o.registry.Category(contract)),
				contract.ID(), annex.Name)
		}
	case isPackageError(err):
		o.sink.Alert(models.AlertPackageFile,
			fmt.Sprintf("Archivo de paquetes: %v", err), contract.ID(), annex.Name)
	case errors.As(err, new(*recognizer.NoServiceHeaderError)):
		o.sink.Alert(models.AlertColumnsNotFound, "Sin encabezado de servicios",
			contract.ID(), annex.Name)
	case errors.As(err, new(*recognizer.NoSitesError)):
		o.sink.Alert(models.AlertSitesNotFound, "Sin sección de sedes",
			contract.ID(), annex.Name)
	default:
		o.sink.Alert(models.AlertReadError, err.Error(), contract.ID(), annex.Name)
	}
}

func (o *Orchestrator) recordOutcome(outcome models.ContractOutcome) {
	if err := o.store.InsertOutcome(outcome); err != nil {
		o.logger.Error("failed to record outcome",
			zap.String("contract", outcome.ContractID), zap.Error(err))
	}
}

func isSocketError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"socket", "connection", "eof", "broken pipe"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isPackageError(err error) bool {
	return strings.Contains(strings.ToUpper(err.Error()), "PAQUETE")
}
