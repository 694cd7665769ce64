// Package finder navigates the remote folder tree to a contract, selects
// the governing annex and downloads it together with the eligible minutes
// files.
package finder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/classifier"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/locator"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

// Session is the slice of the SFTP client the finder needs.
type Session interface {
	Cd(dir string) error
	List() ([]models.RemoteEntry, error)
	Download(remote, local string) error
}

var invalidLocalCharsRe = regexp.MustCompile(`[<>:"/\\|?*]`)

// Finder locates contract folders and fetches their annexes.
type Finder struct {
	session Session
	alerts  models.AlertSink
	logger  *zap.Logger

	rootFolder     string
	contractsLabel string
}

func New(session Session, alerts models.AlertSink, rootFolder, contractsLabel string, logger *zap.Logger) *Finder {
	return &Finder{
		session:        session,
		alerts:         alerts,
		logger:         logger,
		rootFolder:     rootFolder,
		contractsLabel: contractsLabel,
	}
}

// Locate walks root folder, year folder and contract folder. A miss at the
// contract level raises the not-found alert with every variant tried.
func (f *Finder) Locate(contract models.Contract) error {
	if err := f.session.Cd("/"); err != nil {
		return err
	}
	if err := f.cdMatching(f.rootFolder); err != nil {
		return err
	}
	yearLabel := fmt.Sprintf("%s %s", f.contractsLabel, contract.Year)
	if err := f.cdMatching(yearLabel); err != nil {
		return err
	}

	entries, err := f.session.List()
	if err != nil {
		return err
	}
	folders := dirNames(entries)

	folder, ok := locator.MatchContractFolder(folders, contract.Number, contract.DisplayName)
	if !ok {
		variants := locator.Variants(contract.Number)
		f.alerts.Alert(models.AlertContractNotFound,
			fmt.Sprintf("CONTRATO NO SE ENCUENTRA EN EL GO ANYWHERE. Buscado: %s",
				strings.Join(variants, ", ")),
			contract.ID(), "")
		return fmt.Errorf("contract folder not found for %s", contract.ID())
	}
	return f.session.Cd(folder)
}

func (f *Finder) cdMatching(name string) error {
	entries, err := f.session.List()
	if err != nil {
		return err
	}
	folder, ok := locator.MatchFolder(dirNames(entries), name)
	if !ok {
		return fmt.Errorf("folder %q not found", name)
	}
	return f.session.Cd(folder)
}

// FetchResult is the download set of one contract.
type FetchResult struct {
	// Principal is the governing annex: the highest amendment, or the
	// initial annex when no amendment exists. Nil when the rates folder
	// held nothing usable.
	Principal *models.AnnexFile
	Minutes   []models.AnnexFile
	// Unclassified lists spreadsheets that matched no annex rule.
	Unclassified []models.UnclassifiedFile
}

// FetchAnnexes downloads the governing annex and the minutes files into
// localDir. The session must already be inside the contract folder.
func (f *Finder) FetchAnnexes(contract models.Contract, localDir string) (*FetchResult, error) {
	entries, err := f.session.List()
	if err != nil {
		return nil, err
	}

	ratesFolder := ""
	for _, e := range entries {
		if e.Dir && strings.Contains(strings.ToLower(e.Name), "tarifa") {
			ratesFolder = e.Name
			break
		}
	}
	if ratesFolder == "" {
		f.alerts.Alert(models.AlertNoRatesFolder, "No existe carpeta TARIFAS", contract.ID(), "")
		return nil, fmt.Errorf("no rates folder in contract %s", contract.ID())
	}
	if err := f.session.Cd(ratesFolder); err != nil {
		return nil, err
	}

	entries, err = f.session.List()
	if err != nil {
		return nil, err
	}

	res := &FetchResult{}
	principal, ignored := f.selectPrincipal(contract, entries)
	if principal == nil {
		msg := "No hay anexo 1, otrosí ni archivo TARIFAS válido"
		if len(ignored) > 0 {
			shown := ignored
			if len(shown) > 3 {
				shown = shown[:3]
			}
			msg += " | Archivos ignorados: " + strings.Join(shown, ", ")
		}
		f.alerts.Alert(models.AlertNoAnnex1, msg, contract.ID(), "")
	} else {
		local := filepath.Join(localDir, sanitizeLocalName(principal.Name))
		if err := f.session.Download(principal.Name, local); err != nil {
			return nil, err
		}
		principal.LocalPath = local
		res.Principal = principal
	}
	for _, name := range ignored {
		res.Unclassified = append(res.Unclassified, models.UnclassifiedFile{
			ContractID: contract.ID(),
			FileName:   name,
			Reason:     "no coincide con anexo 1, otrosí ni TARIFAS",
		})
	}

	minutes, err := f.fetchMinutes(contract, entries, localDir, res.Principal)
	if err != nil {
		return nil, err
	}
	res.Minutes = minutes

	return res, nil
}

// selectPrincipal classifies the spreadsheets of the rates folder and
// picks the governing one: the highest numbered amendment wins, then the
// first initial annex or rates file.
func (f *Finder) selectPrincipal(contract models.Contract, entries []models.RemoteEntry) (*models.AnnexFile, []string) {
	var amendments []models.AnnexFile
	var initial *models.AnnexFile
	var ignored []string

	for _, e := range entries {
		if e.Dir || !classifier.IsSpreadsheet(e.Name) {
			continue
		}
		cls := classifier.Classify(e.Name)
		if !cls.Eligible {
			ignored = append(ignored, e.Name)
			f.logger.Debug("ignored file",
				zap.String("contract", contract.ID()),
				zap.String("file", e.Name),
				zap.String("reason", cls.ExcludeReason))
			continue
		}
		annex := models.AnnexFile{
			Name:       e.Name,
			ModifiedAt: e.ModTime,
			Size:       e.Size,
		}
		if cls.IsAmendment {
			annex.Origin = models.OriginAmendment
			annex.Number = cls.AmendmentNumber
			amendments = append(amendments, annex)
		} else if initial == nil {
			annex.Origin = models.OriginInitial
			initial = &annex
		}
	}

	if len(amendments) > 0 {
		sort.Slice(amendments, func(i, j int) bool {
			return amendments[i].Number > amendments[j].Number
		})
		return &amendments[0], ignored
	}
	return initial, ignored
}

// fetchMinutes walks the minutes subfolders. A minutes annex is only
// downloaded when it is newer than the principal, since older minutes are
// already superseded by it.
func (f *Finder) fetchMinutes(contract models.Contract, entries []models.RemoteEntry, localDir string, principal *models.AnnexFile) ([]models.AnnexFile, error) {
	var reference time.Time
	if principal != nil {
		reference = principal.ModifiedAt
	}

	var minutes []models.AnnexFile
	seen := make(map[int]struct{})

	for _, e := range entries {
		if !e.Dir || !strings.Contains(strings.ToLower(e.Name), "acta") {
			continue
		}
		if err := f.session.Cd(e.Name); err != nil {
			return nil, err
		}
		files, err := f.session.List()
		if err != nil {
			return nil, err
		}

		hasSpreadsheet := false
		downloadedAny := false
		for _, file := range files {
			if file.Dir || !classifier.IsSpreadsheet(file.Name) {
				continue
			}
			hasSpreadsheet = true
			if !classifier.IsEligible(file.Name) {
				continue
			}
			if principal != nil && !file.ModTime.After(reference) {
				downloadedAny = true
				continue
			}

			number, _ := classifier.MinutesNumber(file.Name, e.Name)
			local := filepath.Join(localDir,
				sanitizeLocalName(fmt.Sprintf("ACTA_%s_%s", e.Name, file.Name)))
			if err := f.session.Download(file.Name, local); err != nil {
				return nil, err
			}
			minutes = append(minutes, models.AnnexFile{
				Name:       file.Name,
				LocalPath:  local,
				Origin:     models.OriginMinutes,
				Number:     number,
				ModifiedAt: file.ModTime,
				Size:       file.Size,
			})
			seen[number] = struct{}{}
			downloadedAny = true
		}

		if hasSpreadsheet && !downloadedAny {
			f.alerts.Alert(models.AlertMinutesNoAnnex, "Carpeta sin anexo 1", contract.ID(), e.Name)
		}
		if err := f.session.Cd(".."); err != nil {
			return nil, err
		}
	}

	f.alertMinutesGaps(contract, seen)
	return minutes, nil
}

// alertMinutesGaps flags missing minutes numbers up to the highest seen.
func (f *Finder) alertMinutesGaps(contract models.Contract, seen map[int]struct{}) {
	maxSeen := 0
	for n := range seen {
		if n > maxSeen {
			maxSeen = n
		}
	}
	for n := 1; n <= maxSeen; n++ {
		if _, ok := seen[n]; !ok {
			f.alerts.Alert(models.AlertMinutesMissing,
				fmt.Sprintf("Falta anexo 1 del acta %d", n), contract.ID(), "")
		}
	}
}

func sanitizeLocalName(name string) string {
	return invalidLocalCharsRe.ReplaceAllString(name, "_")
}

func dirNames(entries []models.RemoteEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Dir {
			names = append(names, e.Name)
		}
	}
	return names
}
