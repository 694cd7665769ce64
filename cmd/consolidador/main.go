// Command consolidador consolidates the tariff annexes of health provider
// contracts from the remote file server into one workbook set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/anomaly"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/config"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/finder"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/orchestrator"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/pipeline"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/recognizer"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/registry"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/sftpclient"
)

var (
	flagMode       string
	flagYear       string
	flagNumber     string
	flagRegistry   string
	flagOutput     string
	flagConfigFile string
)

func main() {
	root := &cobra.Command{
		Use:   "consolidador",
		Short: "Consolida los anexos de tarifas de los contratos de salud",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Ejecuta una consolidación",
		RunE:  runConsolidation,
	}
	run.Flags().StringVar(&flagMode, "mode", "all", "single, year or all")
	run.Flags().StringVar(&flagYear, "year", "", "contract year, required for year mode")
	run.Flags().StringVar(&flagNumber, "number", "", "contract number, required for single mode")
	run.Flags().StringVar(&flagRegistry, "registry", "", "path to the contract master workbook")
	run.Flags().StringVar(&flagOutput, "output", "", "output directory for the workbooks")
	run.Flags().StringVar(&flagConfigFile, "config", "", "optional YAML config file")
	run.MarkFlagRequired("registry")

	root.AddCommand(run)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runConsolidation(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return err
	}
	if flagConfigFile != "" {
		if err := cfg.LoadFile(flagConfigFile); err != nil {
			return err
		}
	}
	if flagOutput != "" {
		cfg.OutputDir = flagOutput
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	year, number, err := resolveFilters()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Load(flagRegistry, logger)
	if err != nil {
		return err
	}

	store, err := pipeline.OpenStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	corrector := anomaly.NewCorrector(logger)
	sink := pipeline.NewConsolidator(store, corrector, cfg.BatchSize, cfg.AlertBatchSize, logger)

	session := sftpclient.New(cfg, logger)
	if err := session.Connect(); err != nil {
		return err
	}
	defer session.Close()

	fnd := finder.New(session, sink, cfg.RootFolder, cfg.ContractsLabel, logger)
	extractor := recognizer.NewExtractor(cfg.MaxSites, cfg.MaxScanRows, logger)

	orch := orchestrator.New(cfg, session, reg, fnd, extractor, sink, store, logger)
	orch.OnProgress = func(p models.Progress) {
		fmt.Printf("[%d/%d] %s\n", p.Processed, p.Total, p.Current)
	}

	report, err := orch.Run(ctx, year, number)
	if err != nil {
		return err
	}

	exporter := pipeline.NewExporter(store, cfg.OutputDir, cfg.MaxRowsPerSheet, logger)
	if err := exporter.Export(baseName(year, number)); err != nil {
		return err
	}

	stats := sink.CorrectionStats()
	fmt.Printf("Contratos: %d exitosos, %d fallidos | Registros: %d | Alertas: %d | Reconexiones: %d | Columnas corregidas: %d | Tiempo: %s\n",
		report.Succeeded, report.Failed, report.Records, report.Alerts,
		report.Reconnections, stats.SwappedColumns, report.Elapsed.Round(time.Second))
	return nil
}

func resolveFilters() (year, number string, err error) {
	switch flagMode {
	case "single":
		if flagNumber == "" || flagYear == "" {
			return "", "", fmt.Errorf("single mode requires --number and --year")
		}
		return flagYear, flagNumber, nil
	case "year":
		if flagYear == "" {
			return "", "", fmt.Errorf("year mode requires --year")
		}
		return flagYear, "", nil
	case "all":
		return "", "", nil
	default:
		return "", "", fmt.Errorf("unknown mode %q: use single, year or all", flagMode)
	}
}

func baseName(year, number string) string {
	switch {
	case number != "":
		return "Consolidado_Contrato_" + number
	case year != "":
		return "Consolidado_Año_" + year
	default:
		return "Consolidado_Completo"
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
