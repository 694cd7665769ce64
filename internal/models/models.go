package models

import (
	"fmt"
	"time"
)

// Origin identifies which kind of annex a tariff row came from.
type Origin int

const (
	OriginInitial Origin = iota
	OriginAmendment
	OriginMinutes
)

func (o Origin) String() string {
	switch o {
	case OriginAmendment:
		return "OTROSI"
	case OriginMinutes:
		return "ACTA"
	default:
		return "INICIAL"
	}
}

// Label renders the origin with its sequence number, e.g. "OTROSI 3".
func (o Origin) Label(number int) string {
	if o == OriginInitial || number <= 0 {
		return o.String()
	}
	return fmt.Sprintf("%s %d", o.String(), number)
}

// Contract is one row of the registry the run iterates over.
type Contract struct {
	Number      string
	Year        string
	DisplayName string
	CTO         string
	Category    string
	Object      string
}

// ID is the canonical "number-year" contract identifier.
func (c Contract) ID() string {
	return c.Number + "-" + c.Year
}

// AnnexFile is a downloaded annex, already classified.
type AnnexFile struct {
	Name       string
	RemotePath string
	LocalPath  string
	Origin     Origin
	// Number is the amendment or minutes sequence number; zero for the
	// initial annex.
	Number     int
	ModifiedAt time.Time
	Size       int64
}

// RemoteEntry is a directory listing entry from the remote server.
type RemoteEntry struct {
	Name    string
	Dir     bool
	Size    int64
	ModTime time.Time
}

// SiteRecord is one care site parsed from a site block.
type SiteRecord struct {
	FacilityCode string
	SiteNumber   string
	Department   string
	Municipality string
}

// ServiceRecord is one tariff row before it is attributed to a site.
type ServiceRecord struct {
	ServiceCode     string
	HomologCode     string
	Description     string
	TariffAmount    string
	TariffManualRef string
	TariffPercent   string
	Observations    string
}

// ExtractedService is a service row fanned out to one active site.
type ExtractedService struct {
	ServiceRecord
	// Habilitation is the formatted "facilityCode-siteNumber" key.
	Habilitation string
}

// OutputRecord is the final consolidated row written to durable storage.
type OutputRecord struct {
	ContractID   string
	Habilitation string
	ServiceCode  string
	HomologCode  string
	Description  string
	TariffAmount string
	ManualRef    string
	Percent      string
	Observations string
	Origin       string
	AgreementOn  string
	SourceFile   string
}

// ContractOutcome summarizes the processing of one contract.
type ContractOutcome struct {
	ContractID    string
	Provider      string
	Success       bool
	Records       int
	Files         int
	Message       string
	Category      string
	LowConfidence bool
	Elapsed       time.Duration
}

// UnclassifiedFile is a remote spreadsheet that matched no annex rule.
type UnclassifiedFile struct {
	ContractID string
	FileName   string
	Reason     string
}

// Progress is reported to the caller between contracts.
type Progress struct {
	Processed int
	Total     int
	Current   string
}

// AlertSink receives alerts raised anywhere in a run. The pipeline
// deduplicates, so callers add freely.
type AlertSink interface {
	Alert(kind AlertKind, message, contractID, fileName string)
}

// AppError carries an operation label next to the underlying failure.
type AppError struct {
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}
