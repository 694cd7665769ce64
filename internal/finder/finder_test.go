package finder

import (
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

// fakeSession serves a canned directory tree.
type fakeSession struct {
	tree map[string][]models.RemoteEntry
	cwd  string
}

func (s *fakeSession) Cd(dir string) error {
	target := dir
	if !path.IsAbs(dir) {
		target = path.Join(s.cwd, dir)
	}
	target = path.Clean(target)
	if _, ok := s.tree[target]; !ok {
		return os.ErrNotExist
	}
	s.cwd = target
	return nil
}

func (s *fakeSession) List() ([]models.RemoteEntry, error) {
	return s.tree[s.cwd], nil
}

func (s *fakeSession) Download(remote, local string) error {
	return os.WriteFile(local, []byte("workbook"), 0o644)
}

type alertRecorder struct {
	alerts []models.Alert
}

func (r *alertRecorder) Alert(kind models.AlertKind, message, contractID, fileName string) {
	r.alerts = append(r.alerts, models.NewAlert(kind, message, contractID, fileName))
}

func (r *alertRecorder) kinds() []models.AlertKind {
	out := make([]models.AlertKind, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.Kind
	}
	return out
}

func dir(name string) models.RemoteEntry {
	return models.RemoteEntry{Name: name, Dir: true}
}

func file(name string, mtime time.Time) models.RemoteEntry {
	return models.RemoteEntry{Name: name, ModTime: mtime, Size: 1024}
}

var contract = models.Contract{Number: "45", Year: "2024", DisplayName: "HOSPITAL SAN RAFAEL"}

func baseTree() map[string][]models.RemoteEntry {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return map[string][]models.RemoteEntry{
		"/": {dir("R.A-ABASTECIMIENTO RED ASISTENCIAL")},
		"/R.A-ABASTECIMIENTO RED ASISTENCIAL": {dir("CONTRATOS 2024")},
		"/R.A-ABASTECIMIENTO RED ASISTENCIAL/CONTRATOS 2024": {
			dir("045-2024 HOSPITAL SAN RAFAEL"),
			dir("046-2024 OTRO PRESTADOR"),
		},
		"/R.A-ABASTECIMIENTO RED ASISTENCIAL/CONTRATOS 2024/045-2024 HOSPITAL SAN RAFAEL": {
			dir("TARIFAS"),
		},
		"/R.A-ABASTECIMIENTO RED ASISTENCIAL/CONTRATOS 2024/045-2024 HOSPITAL SAN RAFAEL/TARIFAS": {
			file("ANEXO 1 TARIFAS.xlsx", t0),
			file("OTROSI 2 ANEXO 1.xlsx", t0.AddDate(0, 2, 0)),
			file("listado precios.pdf", t0),
			dir("ACTA 1"),
			dir("ACTA 3"),
		},
		"/R.A-ABASTECIMIENTO RED ASISTENCIAL/CONTRATOS 2024/045-2024 HOSPITAL SAN RAFAEL/TARIFAS/ACTA 1": {
			file("ANEXO 1 ACTA 1.xlsx", t0.AddDate(0, 1, 0)),
		},
		"/R.A-ABASTECIMIENTO RED ASISTENCIAL/CONTRATOS 2024/045-2024 HOSPITAL SAN RAFAEL/TARIFAS/ACTA 3": {
			file("ANEXO 1 ACTA 3.xlsx", t0.AddDate(0, 4, 0)),
		},
	}
}

func newTestFinder(tree map[string][]models.RemoteEntry) (*Finder, *fakeSession, *alertRecorder) {
	session := &fakeSession{tree: tree, cwd: "/"}
	alerts := &alertRecorder{}
	f := New(session, alerts, "R.A-ABASTECIMIENTO RED ASISTENCIAL", "contratos", zap.NewNop())
	return f, session, alerts
}

func TestLocate(t *testing.T) {
	t.Run("should walk down to the contract folder", func(t *testing.T) {
		f, session, _ := newTestFinder(baseTree())

		err := f.Locate(contract)

		assert.NoError(t, err)
		assert.Contains(t, session.cwd, "045-2024 HOSPITAL SAN RAFAEL")
	})

	t.Run("should alert with every variant tried on a miss", func(t *testing.T) {
		f, _, alerts := newTestFinder(baseTree())
		missing := models.Contract{Number: "999", Year: "2024"}

		err := f.Locate(missing)

		assert.Error(t, err)
		require.Len(t, alerts.alerts, 1)
		assert.Equal(t, models.AlertContractNotFound, alerts.alerts[0].Kind)
		assert.Contains(t, alerts.alerts[0].Message, "999")
		assert.Contains(t, alerts.alerts[0].Message, "0999")
	})
}

func TestFetchAnnexes(t *testing.T) {
	locate := func(t *testing.T, f *Finder) {
		t.Helper()
		require.NoError(t, f.Locate(contract))
	}

	t.Run("should pick the highest amendment as principal", func(t *testing.T) {
		f, _, _ := newTestFinder(baseTree())
		locate(t, f)

		res, err := f.FetchAnnexes(contract, t.TempDir())

		require.NoError(t, err)
		require.NotNil(t, res.Principal)
		assert.Equal(t, "OTROSI 2 ANEXO 1.xlsx", res.Principal.Name)
		assert.Equal(t, models.OriginAmendment, res.Principal.Origin)
		assert.Equal(t, 2, res.Principal.Number)
		assert.FileExists(t, res.Principal.LocalPath)
	})

	t.Run("should only download minutes newer than the principal", func(t *testing.T) {
		f, _, _ := newTestFinder(baseTree())
		locate(t, f)
		dir := t.TempDir()

		res, err := f.FetchAnnexes(contract, dir)

		require.NoError(t, err)
		require.Len(t, res.Minutes, 1)
		assert.Equal(t, "ANEXO 1 ACTA 3.xlsx", res.Minutes[0].Name)
		assert.Equal(t, 3, res.Minutes[0].Number)

		local := filepath.Base(res.Minutes[0].LocalPath)
		assert.Equal(t, "ACTA_ACTA 3_ANEXO 1 ACTA 3.xlsx", local)
	})

	t.Run("should flag the missing minutes number", func(t *testing.T) {
		f, _, alerts := newTestFinder(baseTree())
		locate(t, f)

		_, err := f.FetchAnnexes(contract, t.TempDir())

		require.NoError(t, err)
		assert.Contains(t, alerts.kinds(), models.AlertMinutesMissing)
	})

	t.Run("should alert when the rates folder is missing", func(t *testing.T) {
		tree := baseTree()
		contractDir := "/R.A-ABASTECIMIENTO RED ASISTENCIAL/CONTRATOS 2024/045-2024 HOSPITAL SAN RAFAEL"
		tree[contractDir] = []models.RemoteEntry{dir("SOPORTES")}
		tree[contractDir+"/SOPORTES"] = nil
		f, _, alerts := newTestFinder(tree)
		locate(t, f)

		_, err := f.FetchAnnexes(contract, t.TempDir())

		assert.Error(t, err)
		assert.Contains(t, alerts.kinds(), models.AlertNoRatesFolder)
	})

	t.Run("should alert listing the ignored files when nothing is eligible", func(t *testing.T) {
		tree := baseTree()
		ratesDir := "/R.A-ABASTECIMIENTO RED ASISTENCIAL/CONTRATOS 2024/045-2024 HOSPITAL SAN RAFAEL/TARIFAS"
		tree[ratesDir] = []models.RemoteEntry{
			file("ANALISIS DE TARIFAS.xlsx", time.Now()),
			file("MEDICAMENTOS.xlsx", time.Now()),
		}
		f, _, alerts := newTestFinder(tree)
		locate(t, f)

		res, err := f.FetchAnnexes(contract, t.TempDir())

		require.NoError(t, err)
		assert.Nil(t, res.Principal)
		assert.Len(t, res.Unclassified, 2)
		require.NotEmpty(t, alerts.alerts)
		assert.Equal(t, models.AlertNoAnnex1, alerts.alerts[0].Kind)
		assert.Contains(t, alerts.alerts[0].Message, "Archivos ignorados")
	})
}
