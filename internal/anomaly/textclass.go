// Package anomaly detects and repairs swapped tariff columns: rows where
// the manual-reference cell carries a medical description and the percent
// cell carries the real manual reference.
package anomaly

import (
	"math"
	"regexp"
	"strings"
)

// Class is the verdict of the two-class text classifier.
type Class string

const (
	ClassEmpty   Class = "VACIO"
	ClassPercent Class = "PORCENTAJE"
	ClassManual  Class = "MANUAL"
	ClassMedical Class = "MEDICO"
	ClassUnknown Class = "DESCONOCIDO"
)

var manualVocabulary = []string{
	"SOAT", "SOAT VIGENTE", "SOAT UVT", "SOAT UVB", "TARIFARIO SOAT",
	"ISS", "ISS 2001", "ISS2001", "TARIFARIOS ISS", "TARIFA ISS",
	"TARIFA PROPIA", "TARIFAS PROPIAS", "PROPIA", "PROPIO", "PROPIAS",
	"INSTITUCIONAL", "TARIFAS INSTITUCIONALES", "TARIFA INSTITUCIONAL",
	"DECRETO 2423", "DECRETO 2644", "UVT", "UVB", "TARIFA PLENA",
	"MENOS", "PLENO", "VIGENTE", "MANUAL TARIFARIO",
}

var medicalVocabulary = []string{
	"CONSULTA", "TERAPIA", "NEURAL", "CIRUGIA", "PROCEDIMIENTO",
	"TRATAMIENTO", "EVALUACION", "VALORACION", "DIAGNOSTICO",
	"EXAMEN", "BIOPSIA", "ECOGRAFIA", "RADIOGRAFIA", "TOMOGRAFIA",
	"RESONANCIA", "LABORATORIO", "HEMOGRAMA", "CURACION", "SUTURA",
	"INYECCION", "APLICACION", "NEBULIZACION", "HOSPITALIZACION",
	"CONTROL", "SEGUIMIENTO", "ESPECIALISTA", "MEDICINA", "GENERAL",
	"PEDIATRIA", "GINECOLOGIA", "ORTOPEDIA", "CARDIOLOGIA", "NEUROLOGIA",
	"PSIQUIATRIA", "PSICOLOGIA", "FISIOTERAPIA", "FONOAUDIOLOGIA",
	"ODONTOLOGIA", "OPTOMETRIA", "ANESTESIA", "URGENCIA", "AMBULANCIA",
	"SANGRE", "ORINA", "GLUCOSA", "COLESTEROL", "TRIGLICERIDOS",
	"ELECTROCARDIOGRAMA", "ENDOSCOPIA", "COLONOSCOPIA", "MAMOGRAFIA",
	"QUIMIOTERAPIA", "RADIOTERAPIA", "DIALISIS", "TRASPLANTE", "PROTESIS",
	"IMPLANTE", "REHABILITACION", "TERAPIA OCUPACIONAL", "TERAPIA FISICA",
	"CONSULTA DE", "VISITA DE", "ATENCION DE", "SERVICIO DE",
}

var manualKeywords = []string{
	"SOAT", "ISS", "TARIFA", "DECRETO", "UVT", "UVB", "PROPIA", "PROPIO", "INSTITUCIONAL",
}

var medicalKeywords = []string{
	"CONSULTA", "TERAPIA", "CIRUGIA", "PROCEDIMIENTO", "EXAMEN",
	"TRATAMIENTO", "BIOPSIA", "ECOGRAFIA", "LABORATORIO",
}

var numericOnlyRe = regexp.MustCompile(`^[+-]?[\d,\.%\s]+$`)

// TextClassifier scores text against the manual-reference and medical
// vocabularies using character 2-4 gram frequency vectors and cosine
// similarity to each class centroid. Keyword short-circuits run first.
type TextClassifier struct {
	manualCentroid  map[string]float64
	medicalCentroid map[string]float64
}

// NewTextClassifier builds the centroids once; the classifier is read-only
// afterwards and safe for concurrent use.
func NewTextClassifier() *TextClassifier {
	return &TextClassifier{
		manualCentroid:  centroid(manualVocabulary),
		medicalCentroid: centroid(medicalVocabulary),
	}
}

// Classify returns the class of a text and a confidence in [0, 1].
func (c *TextClassifier) Classify(text string) (Class, float64) {
	t := strings.TrimSpace(text)
	if t == "" {
		return ClassEmpty, 1.0
	}
	upper := strings.ToUpper(t)

	if numericOnlyRe.MatchString(t) {
		return ClassPercent, 0.95
	}
	for _, kw := range manualKeywords {
		if strings.Contains(upper, kw) {
			return ClassManual, 0.9
		}
	}
	for _, kw := range medicalKeywords {
		if strings.Contains(upper, kw) {
			return ClassMedical, 0.85
		}
	}

	vec := ngramVector(upper)
	simManual := cosine(vec, c.manualCentroid)
	simMedical := cosine(vec, c.medicalCentroid)

	total := simManual + simMedical + 0.001
	scoreManual := simManual / total
	scoreMedical := simMedical / total

	switch {
	case scoreManual > scoreMedical && scoreManual > 0.4:
		return ClassManual, scoreManual
	case scoreMedical > scoreManual && scoreMedical > 0.4:
		return ClassMedical, scoreMedical
	default:
		return ClassUnknown, math.Max(scoreManual, scoreMedical)
	}
}

// ngramVector builds an L2-normalized character n-gram frequency vector
// over padded words, n in 2..4.
func ngramVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	for _, word := range strings.Fields(text) {
		padded := " " + word + " "
		runes := []rune(padded)
		for n := 2; n <= 4; n++ {
			for i := 0; i+n <= len(runes); i++ {
				vec[string(runes[i:i+n])]++
			}
		}
	}
	normalize(vec)
	return vec
}

func centroid(vocabulary []string) map[string]float64 {
	sum := make(map[string]float64)
	for _, term := range vocabulary {
		for gram, weight := range ngramVector(strings.ToUpper(term)) {
			sum[gram] += weight
		}
	}
	for gram := range sum {
		sum[gram] /= float64(len(vocabulary))
	}
	normalize(sum)
	return sum
}

func normalize(vec map[string]float64) {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for k, v := range vec {
		vec[k] = v / norm
	}
}

func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	return dot
}
