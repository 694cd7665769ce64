package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

var consolidatedHeader = []string{
	"CONTRATO", "HABILITACION", "CODIGO CUPS", "CODIGO HOMOLOGO",
	"DESCRIPCION", "TARIFA", "MANUAL TARIFARIO", "PORCENTAJE",
	"OBSERVACIONES", "ORIGEN", "FECHA ACUERDO", "ARCHIVO",
}

var alertHeader = []string{
	"PRIORIDAD", "TIPO", "CONTRATO", "ARCHIVO", "MENSAJE", "SUGERENCIA",
}

// Exporter renders the run's workbooks from the store.
type Exporter struct {
	store           *Store
	logger          *zap.Logger
	outputDir       string
	maxRowsPerSheet int
}

func NewExporter(store *Store, outputDir string, maxRowsPerSheet int, logger *zap.Logger) *Exporter {
	return &Exporter{
		store:           store,
		logger:          logger,
		outputDir:       outputDir,
		maxRowsPerSheet: maxRowsPerSheet,
	}
}

// Export writes the consolidated workbook, the alerts workbook, the run
// summary and the unclassified-files workbook, in parallel.
func (e *Exporter) Export(baseName string) error {
	stamp := time.Now().Format("2006-01-02_15-04")

	var g errgroup.Group
	g.Go(func() error {
		return e.exportConsolidated(filepath.Join(e.outputDir,
			fmt.Sprintf("%s_%s.xlsx", baseName, stamp)))
	})
	g.Go(func() error {
		return e.exportAlerts(filepath.Join(e.outputDir,
			fmt.Sprintf("Alertas_%s.xlsx", stamp)))
	})
	g.Go(func() error {
		return e.exportSummary(filepath.Join(e.outputDir,
			fmt.Sprintf("Resumen_%s.xlsx", stamp)))
	})
	g.Go(func() error {
		return e.exportUnclassified(filepath.Join(e.outputDir,
			fmt.Sprintf("Archivos_No_Positiva_%s.xlsx", stamp)))
	})
	if err := g.Wait(); err != nil {
		return err
	}
	e.logger.Info("artifacts written", zap.String("dir", e.outputDir))
	return nil
}

// exportConsolidated streams every record, rolling to CONSOLIDADO_2,
// CONSOLIDADO_3... when a sheet reaches its row cap.
func (e *Exporter) exportConsolidated(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetIdx := 0
	var sw *excelize.StreamWriter
	rowInSheet := 0

	openSheet := func() error {
		sheetIdx++
		name := "CONSOLIDADO"
		if sheetIdx > 1 {
			name = fmt.Sprintf("CONSOLIDADO_%d", sheetIdx)
		}
		if sheetIdx == 1 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return err
			}
		}
		var err error
		sw, err = f.NewStreamWriter(name)
		if err != nil {
			return fmt.Errorf("failed to open stream writer for %s: %w", name, err)
		}
		// Freeze the header row; panes must be set before any row lands.
		if err := sw.SetPanes(&excelize.Panes{Freeze: true, YSplit: 1}); err != nil {
			return err
		}
		if err := sw.SetRow("A1", headerCells(consolidatedHeader)); err != nil {
			return err
		}
		rowInSheet = 1
		return nil
	}

	if err := openSheet(); err != nil {
		return err
	}

	err := e.store.WalkRecords(func(r models.OutputRecord) error {
		if rowInSheet >= e.maxRowsPerSheet {
			if err := sw.Flush(); err != nil {
				return err
			}
			if err := openSheet(); err != nil {
				return err
			}
		}
		rowInSheet++
		cell, err := excelize.CoordinatesToCellName(1, rowInSheet)
		if err != nil {
			return err
		}
		return sw.SetRow(cell, []interface{}{
			r.ContractID, r.Habilitation, r.ServiceCode, r.HomologCode,
			r.Description, r.TariffAmount, r.ManualRef, r.Percent,
			r.Observations, r.Origin, r.AgreementOn, r.SourceFile,
		})
	})
	if err != nil {
		return err
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save consolidated workbook: %w", err)
	}
	return nil
}

// exportAlerts writes one sheet with every alert sorted by priority, then
// one sheet per category.
func (e *Exporter) exportAlerts(path string) error {
	alerts, err := e.store.Alerts()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "TODAS_ALERTAS"); err != nil {
		return err
	}
	if err := writeAlertSheet(f, "TODAS_ALERTAS", alerts); err != nil {
		return err
	}

	byCategory := make(map[string][]models.Alert)
	for _, a := range alerts {
		sheet := models.CategorySheet(a.Kind)
		byCategory[sheet] = append(byCategory[sheet], a)
	}

	for _, cat := range models.AlertCategories {
		catAlerts := byCategory[cat.Sheet]
		if len(catAlerts) == 0 {
			continue
		}
		if _, err := f.NewSheet(cat.Sheet); err != nil {
			return err
		}
		if err := writeAlertSheet(f, cat.Sheet, catAlerts); err != nil {
			return err
		}
	}
	if others := byCategory["OTRAS_ALERTAS"]; len(others) > 0 {
		if _, err := f.NewSheet("OTRAS_ALERTAS"); err != nil {
			return err
		}
		if err := writeAlertSheet(f, "OTRAS_ALERTAS", others); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save alerts workbook: %w", err)
	}
	return nil
}

func writeAlertSheet(f *excelize.File, sheet string, alerts []models.Alert) error {
	if err := f.SetSheetRow(sheet, "A1", &alertHeader); err != nil {
		return err
	}
	for i, a := range alerts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			a.Priority.String(), string(a.Kind), a.ContractID,
			a.FileName, a.Message, a.Suggestion,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// exportSummary writes the per-contract outcome table.
func (e *Exporter) exportSummary(path string) error {
	outcomes, err := e.store.Outcomes()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "RESUMEN"); err != nil {
		return err
	}

	header := []string{
		"CONTRATO", "PRESTADOR", "EXITO", "REGISTROS", "ARCHIVOS",
		"MENSAJE", "CATEGORIA", "BAJA_CONFIANZA", "TIEMPO_SEG",
	}
	if err := f.SetSheetRow("RESUMEN", "A1", &header); err != nil {
		return err
	}
	for i, o := range outcomes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			o.ContractID, o.Provider, yesNo(o.Success), o.Records, o.Files,
			o.Message, o.Category, yesNo(o.LowConfidence),
			int(o.Elapsed.Seconds()),
		}
		if err := f.SetSheetRow("RESUMEN", cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save summary workbook: %w", err)
	}
	return nil
}

// exportUnclassified writes the spreadsheets no rule recognized, for a
// manual pass.
func (e *Exporter) exportUnclassified(path string) error {
	files, err := e.store.Unclassified()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "NO_CLASIFICADOS"); err != nil {
		return err
	}

	header := []string{"CONTRATO", "ARCHIVO", "MOTIVO"}
	if err := f.SetSheetRow("NO_CLASIFICADOS", "A1", &header); err != nil {
		return err
	}
	for i, uf := range files {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{uf.ContractID, uf.FileName, uf.Reason}
		if err := f.SetSheetRow("NO_CLASIFICADOS", cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save unclassified workbook: %w", err)
	}
	return nil
}

func headerCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = excelize.Cell{Value: v, StyleID: 0}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}
