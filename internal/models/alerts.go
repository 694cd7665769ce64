package models

// AlertKind enumerates every alert the run can raise.
type AlertKind string

const (
	AlertNoAnnex1           AlertKind = "SIN_ANEXO1"
	AlertNoRatesFolder      AlertKind = "SIN_CARPETA_TARIFAS"
	AlertMinutesMissing     AlertKind = "ACTA_FALTANTE"
	AlertMinutesNoAnnex     AlertKind = "CARPETA_ACTAS_SIN_ANEXO"
	AlertNoStandardFormat   AlertKind = "SIN_FORMATO_POSITIVA"
	AlertOwnFormat          AlertKind = "FORMATO_PROPIO"
	AlertSheetNotFound      AlertKind = "HOJA_NO_ENCONTRADA"
	AlertColumnsNotFound    AlertKind = "COLUMNAS_NO_DETECTADAS"
	AlertSitesNotFound      AlertKind = "SEDES_NO_DETECTADAS"
	AlertDateNotFound       AlertKind = "FECHA_NO_ENCONTRADA"
	AlertProcessingError    AlertKind = "ERROR_PROCESAMIENTO"
	AlertTimeout            AlertKind = "TIMEOUT"
	AlertConnection         AlertKind = "CONEXION"
	AlertReadError          AlertKind = "ERROR_LECTURA"
	AlertTransfersOnly      AlertKind = "SOLO_TRASLADOS"
	AlertAmbulanceContract  AlertKind = "CONTRATO_AMBULANCIA"
	AlertAmbulanceRegistry  AlertKind = "CONTRATO_AMBULANCIA_MAESTRA"
	AlertFileAmbulancesOnly AlertKind = "ARCHIVO_SOLO_AMBULANCIAS"
	AlertFileTransfersOnly  AlertKind = "ARCHIVO_SOLO_TRASLADOS"
	AlertRatesSheetMissing  AlertKind = "TARIFA_SERVICIOS_NO_ENCONTRADA"
	AlertContractNotFound   AlertKind = "CONTRATO_NO_ENCONTRADO_GO"
	AlertRegistryDateGap    AlertKind = "FECHA_FALTANTE_MAESTRA"
	AlertPackageFile        AlertKind = "ARCHIVO_PAQUETE"
)

// Priority orders alerts in the final report; lower is more urgent.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICA"
	case PriorityHigh:
		return "ALTA"
	case PriorityMedium:
		return "MEDIA"
	default:
		return "BAJA"
	}
}

var alertPriorities = map[AlertKind]Priority{
	AlertContractNotFound:   PriorityCritical,
	AlertNoRatesFolder:      PriorityCritical,
	AlertNoAnnex1:           PriorityCritical,
	AlertConnection:         PriorityCritical,
	AlertProcessingError:    PriorityHigh,
	AlertMinutesMissing:     PriorityHigh,
	AlertSheetNotFound:      PriorityHigh,
	AlertColumnsNotFound:    PriorityHigh,
	AlertSitesNotFound:      PriorityHigh,
	AlertTimeout:            PriorityHigh,
	AlertReadError:          PriorityHigh,
	AlertRatesSheetMissing:  PriorityHigh,
	AlertNoStandardFormat:   PriorityMedium,
	AlertOwnFormat:          PriorityMedium,
	AlertDateNotFound:       PriorityMedium,
	AlertMinutesNoAnnex:     PriorityMedium,
	AlertRegistryDateGap:    PriorityMedium,
	AlertTransfersOnly:      PriorityLow,
	AlertAmbulanceContract:  PriorityLow,
	AlertAmbulanceRegistry:  PriorityLow,
	AlertFileAmbulancesOnly: PriorityLow,
	AlertFileTransfersOnly:  PriorityLow,
	AlertPackageFile:        PriorityLow,
}

var alertSuggestions = map[AlertKind]string{
	AlertContractNotFound:   "Verificar el numero de contrato en la carpeta del anio en el servidor",
	AlertNoRatesFolder:      "Revisar si la carpeta TARIFAS existe dentro de la carpeta del contrato",
	AlertNoAnnex1:           "Solicitar el Anexo 1 de tarifas al area de contratacion",
	AlertConnection:         "Reintentar la ejecucion; revisar credenciales y disponibilidad del servidor",
	AlertProcessingError:    "Revisar el archivo manualmente; posible estructura no estandar",
	AlertMinutesMissing:     "Solicitar el acta faltante en la secuencia de actas del contrato",
	AlertSheetNotFound:      "Abrir el archivo y verificar el nombre de la hoja de tarifas de servicios",
	AlertColumnsNotFound:    "Verificar que la hoja tenga encabezado CODIGO CUPS y columna de tarifas",
	AlertSitesNotFound:      "Verificar el bloque de sedes (departamento, municipio, codigo habilitacion)",
	AlertTimeout:            "Procesar el archivo manualmente; supera el tiempo limite de lectura",
	AlertReadError:          "Descargar el archivo y validar que no este corrupto o protegido",
	AlertRatesSheetMissing:  "El archivo no contiene hoja de tarifas de servicios; revisar manualmente",
	AlertNoStandardFormat:   "El anexo no sigue el formato estandar; consolidar manualmente",
	AlertOwnFormat:          "Formato propio del prestador; requiere homologacion manual",
	AlertDateNotFound:       "Registrar la fecha del acuerdo en la maestra de contratos",
	AlertMinutesNoAnnex:     "La carpeta de actas no contiene anexo de tarifas vigente",
	AlertRegistryDateGap:    "Completar la fecha de suscripcion en la maestra",
	AlertTransfersOnly:      "Archivo solo de traslados; no genera tarifas de servicios",
	AlertAmbulanceContract:  "Contrato de ambulancias; validar si aplica consolidacion",
	AlertAmbulanceRegistry:  "La maestra marca el contrato como ambulancias",
	AlertFileAmbulancesOnly: "El archivo solo contiene hojas de ambulancias",
	AlertFileTransfersOnly:  "El archivo solo contiene hojas de traslados",
	AlertPackageFile:        "Archivo de paquetes; excluido de la consolidacion de servicios",
}

// PriorityFor returns the reporting priority of a kind, defaulting to low.
func PriorityFor(kind AlertKind) Priority {
	if p, ok := alertPriorities[kind]; ok {
		return p
	}
	return PriorityLow
}

// SuggestionFor returns the operator suggestion attached to a kind.
func SuggestionFor(kind AlertKind) string {
	return alertSuggestions[kind]
}

// Alert is a deduplicated diagnostic raised during a run.
type Alert struct {
	Kind       AlertKind
	Message    string
	ContractID string
	FileName   string
	Priority   Priority
	Suggestion string
}

// NewAlert builds an alert with priority and suggestion resolved.
func NewAlert(kind AlertKind, message, contractID, fileName string) Alert {
	return Alert{
		Kind:       kind,
		Message:    message,
		ContractID: contractID,
		FileName:   fileName,
		Priority:   PriorityFor(kind),
		Suggestion: SuggestionFor(kind),
	}
}

// AlertCategory groups kinds into one sheet of the alerts workbook.
type AlertCategory struct {
	Sheet string
	Kinds []AlertKind
}

// AlertCategories partitions every kind into exactly one report sheet;
// kinds not listed land in OTRAS_ALERTAS.
var AlertCategories = []AlertCategory{
	{Sheet: "CONTRATOS_NO_ENCONTRADOS", Kinds: []AlertKind{AlertContractNotFound, AlertNoRatesFolder, AlertConnection}},
	{Sheet: "HOJAS_SIN_SERVICIOS", Kinds: []AlertKind{AlertSheetNotFound, AlertRatesSheetMissing, AlertColumnsNotFound, AlertSitesNotFound}},
	{Sheet: "FECHAS_FALTANTES", Kinds: []AlertKind{AlertDateNotFound, AlertRegistryDateGap}},
	{Sheet: "AMBULANCIAS_TRASLADOS", Kinds: []AlertKind{AlertAmbulanceRegistry, AlertFileAmbulancesOnly, AlertFileTransfersOnly, AlertTransfersOnly, AlertAmbulanceContract}},
	{Sheet: "ANEXOS_FALTANTES", Kinds: []AlertKind{AlertNoAnnex1, AlertMinutesMissing, AlertMinutesNoAnnex}},
	{Sheet: "FORMATO_PROPIO", Kinds: []AlertKind{AlertOwnFormat, AlertNoStandardFormat}},
	{Sheet: "ERRORES_PROCESAMIENTO", Kinds: []AlertKind{AlertProcessingError, AlertReadError, AlertTimeout}},
}

// CategorySheet resolves the report sheet for a kind.
func CategorySheet(kind AlertKind) string {
	for _, c := range AlertCategories {
		for _, k := range c.Kinds {
			if k == kind {
				return c.Sheet
			}
		}
	}
	return "OTRAS_ALERTAS"
}
