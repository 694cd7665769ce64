package recognizer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/sheet"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/validate"
)

type scanState int

const (
	stateSearching scanState = iota
	stateSiteBlock
	stateServiceBlock
)

// Extractor turns the services sheet of one annex into flat service
// records, one per site the tariff applies to.
type Extractor struct {
	maxSites    int
	maxScanRows int
	logger      *zap.Logger
}

// Result is everything extracted from one workbook.
type Result struct {
	Records []models.ExtractedService
	Sheet   string
	// LowConfidence marks extractions where the last site block never got
	// a service header before the sheet ended.
	LowConfidence bool
	RowsScanned   int
	RowsRejected  int
}

func NewExtractor(maxSites, maxScanRows int, logger *zap.Logger) *Extractor {
	return &Extractor{maxSites: maxSites, maxScanRows: maxScanRows, logger: logger}
}

// ExtractFile opens the workbook, selects the services sheet and extracts
// its records. Selection failures come back as *SheetNotFoundError so the
// caller can alert with the full diagnosis.
func (e *Extractor) ExtractFile(path string) (*Result, error) {
	r, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sel := SelectServicesSheet(r.SheetNames())
	if !sel.Found {
		return nil, &SheetNotFoundError{Selection: sel}
	}

	rows, err := r.Rows(sel.Sheet, e.maxScanRows)
	if err != nil {
		return nil, err
	}

	res, err := e.extractRows(rows)
	if err != nil {
		return nil, err
	}
	res.Sheet = sel.Sheet
	return res, nil
}

// ExtractFileContext runs ExtractFile bounded by the context deadline.
// Workbooks that blow the deadline keep parsing in the background; their
// result is discarded.
func (e *Extractor) ExtractFileContext(ctx context.Context, path string) (*Result, error) {
	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := e.ExtractFile(path)
		ch <- outcome{res, err}
	}()

	select {
	case out := <-ch:
		return out.res, out.err
	case <-ctx.Done():
		return nil, &TimeoutError{Path: path, Err: ctx.Err()}
	}
}

// SheetNotFoundError carries the selection diagnosis for alerting.
type SheetNotFoundError struct {
	Selection Selection
}

func (e *SheetNotFoundError) Error() string {
	return NotFoundMessage(e.Selection, "")
}

// TimeoutError marks a workbook that exceeded its per-file budget.
type TimeoutError struct {
	Path string
	Err  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("workbook %s exceeded its time budget: %v", e.Path, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// extractRows is the row scanner. Sites and services alternate in blocks:
// a site header opens a pending site list, the next service header makes
// it the active one, and every valid service row fans out to every active
// site.
func (e *Extractor) extractRows(rows [][]string) (*Result, error) {
	res := &Result{}
	state := stateSearching

	var active []models.SiteRecord
	var pending []models.SiteRecord
	var cols Columns
	sawServiceHeader := false
	sawSites := false

	for i := 0; i < len(rows); i++ {
		row := rows[i]
		res.RowsScanned++

		if validate.IsSiteHeader(row) {
			sites, consumed := e.extractSiteBlock(rows, i)
			if len(sites) > 0 {
				pending = sites
				sawSites = true
			}
			state = stateSiteBlock
			i += consumed
			continue
		}

		if validate.IsServiceHeader(row) {
			detected := DetectColumns(row)
			if detected.HasMinimum() {
				cols = detected
				sawServiceHeader = true
				// The pending block becomes active atomically so a header
				// inside a service region never mixes site lists.
				if len(pending) > 0 {
					active = pending
					pending = nil
				}
				state = stateServiceBlock
			}
			continue
		}

		if state != stateServiceBlock || !cols.HasMinimum() || len(active) == 0 {
			continue
		}
		if validate.IsSiteDataRow(row) {
			continue
		}

		rec, ok := e.serviceRecord(row, cols)
		if !ok {
			res.RowsRejected++
			continue
		}
		for _, site := range active {
			res.Records = append(res.Records, models.ExtractedService{
				ServiceRecord: rec,
				Habilitation:  validate.FormatHabilitation(site.FacilityCode, site.SiteNumber),
			})
		}
	}

	if !sawServiceHeader {
		return nil, &NoServiceHeaderError{}
	}
	if !sawSites {
		return nil, &NoSitesError{}
	}

	// A trailing site block with no service header after it usually means
	// the annex lists sites at the bottom; apply it to nothing but flag
	// the extraction.
	if len(pending) > 0 {
		res.LowConfidence = true
		e.logger.Warn("trailing site block never activated",
			zap.Int("sites", len(pending)))
	}
	return res, nil
}

// NoServiceHeaderError means the sheet never showed a service header row.
type NoServiceHeaderError struct{}

func (e *NoServiceHeaderError) Error() string { return "Sin encabezado de servicios" }

// NoSitesError means the sheet never showed a site section.
type NoSitesError struct{}

func (e *NoSitesError) Error() string { return "Sin sección de sedes" }

// extractSiteBlock reads the site rows that follow a site header. It
// returns the sites and how many extra rows were consumed.
func (e *Extractor) extractSiteBlock(rows [][]string, headerIdx int) ([]models.SiteRecord, int) {
	header := rows[headerIdx]

	idxHab := -1
	idxSite := -1
	for j, cell := range header {
		norm := validate.Normalize(cell)
		if idxHab < 0 && (strings.Contains(norm, "HABILITACION") || strings.Contains(norm, "HABIITACION")) {
			idxHab = j
		}
		if idxSite < 0 && siteNumberHeader(norm) {
			idxSite = j
		}
	}
	if idxHab < 0 {
		return nil, 0
	}
	if idxSite < 0 {
		idxSite = idxHab + 1
	}

	var sites []models.SiteRecord
	consumed := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if validate.IsSiteHeader(row) || validate.IsServiceHeader(row) {
			break
		}

		if validate.IsSiteDataRow(row) {
			code := validate.CleanCode(cellAt(row, idxHab))
			digits := countDigits(code)
			if digits >= 5 && digits <= 12 {
				number := strings.TrimSpace(cellAt(row, idxSite))
				if number == "" {
					number = fmt.Sprintf("%d", len(sites)+1)
				}
				sites = append(sites, models.SiteRecord{FacilityCode: code, SiteNumber: number})
				if len(sites) >= e.maxSites {
					consumed = i - headerIdx
					break
				}
			}
			consumed = i - headerIdx
			continue
		}

		first := strings.TrimSpace(cellAt(row, 0))
		if first != "" && !validate.IsMunicipalityOrDepartment(first) && !validate.IsAddress(first) {
			break
		}
		consumed = i - headerIdx
	}
	return sites, consumed
}

// serviceRecord validates one data row and builds its record. Any field
// failing its shape check rejects the whole row.
func (e *Extractor) serviceRecord(row []string, cols Columns) (models.ServiceRecord, bool) {
	var rec models.ServiceRecord

	code := validate.CleanCode(cellAt(row, cols.Code))
	if !validate.AcceptServiceCode(code, row) {
		return rec, false
	}

	tariff := validate.TrimCell(cellAt(row, cols.Tariff))
	if tariff != "" && !validate.AcceptTariff(tariff, row) {
		return rec, false
	}
	manual := validate.CleanText(cellAt(row, cols.ManualRef))
	if manual != "" && !validate.AcceptManualRef(manual) {
		return rec, false
	}
	desc := validate.CleanText(cellAt(row, cols.Description))
	if desc != "" && !validate.AcceptDescription(desc) {
		return rec, false
	}

	rec.ServiceCode = code
	rec.HomologCode = validate.CleanCode(cellAt(row, cols.Homolog))
	rec.Description = desc
	rec.TariffAmount = validate.CleanTariff(tariff)
	rec.TariffManualRef = manual
	rec.TariffPercent = validate.CleanText(cellAt(row, cols.Percent))
	rec.Observations = validate.CleanText(cellAt(row, cols.Observations))
	return rec, true
}

func siteNumberHeader(norm string) bool {
	for _, p := range []string{"NUMERO DE SEDE", "NUMERO SEDE", "N SEDE", "NO SEDE"} {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
