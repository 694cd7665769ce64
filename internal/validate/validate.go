// Package validate holds the semantic cell validators used while walking
// annex sheets: service codes, tariffs, addresses, phones and geography.
package validate

import (
	"regexp"
	"strings"
)

var (
	nonDigitRe      = regexp.MustCompile(`[^\d]`)
	nonAlnumRe      = regexp.MustCompile(`[^A-Z0-9\s]`)
	spaceRunRe      = regexp.MustCompile(`\s+`)
	habFormattedRe  = regexp.MustCompile(`^\d{8,12}-\d{1,2}$`)
	invalidCodeRes  = []*regexp.Regexp{
		regexp.MustCompile(`^\*`),
		regexp.MustCompile(`^-+$`),
		regexp.MustCompile(`^\d{1,2}$`),
		regexp.MustCompile(`^N\.?A\.?$`),
		regexp.MustCompile(`^N/A$`),
		regexp.MustCompile(`INCLUYE`),
		regexp.MustCompile(`NOTA\s*\d*`),
	}
)

var accentReplacer = strings.NewReplacer(
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ñ", "N", "Ü", "U",
)

// Normalize uppercases, strips accents, replaces everything that is not a
// letter, digit or space, and collapses whitespace runs to one space.
func Normalize(text string) string {
	t := strings.ToUpper(strings.TrimSpace(text))
	t = accentReplacer.Replace(t)
	t = nonAlnumRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(t, " "))
}

// TrimCell removes surrounding whitespace and the ".0" suffix that numeric
// cells carry after formatting.
func TrimCell(value string) string {
	v := strings.TrimSpace(value)
	return strings.TrimSuffix(v, ".0")
}

// CleanCode normalizes a code cell; empty and null-ish values become "".
func CleanCode(value string) string {
	v := TrimCell(value)
	switch strings.ToLower(v) {
	case "", "none", "nan":
		return ""
	}
	return v
}

// CleanText normalizes a free-text cell the same way as CleanCode.
func CleanText(value string) string {
	return CleanCode(value)
}

// CleanTariff strips currency formatting from a tariff cell and returns the
// bare numeric text, or "" when the cell does not parse as a number.
func CleanTariff(value string) string {
	v := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(value))
	v = strings.TrimSuffix(v, ".0")
	if v == "" {
		return ""
	}
	seenDot := false
	for i, r := range v {
		switch {
		case r >= '0' && r <= '9':
		case r == '-' && i == 0:
		case r == '.' && !seenDot:
			seenDot = true
		default:
			return ""
		}
	}
	if v == "-" || v == "." {
		return ""
	}
	return v
}

func digitsOnly(value string) string {
	return nonDigitRe.ReplaceAllString(value, "")
}

// IsMobilePhone reports whether a value is a Colombian mobile number: ten
// digits starting with a known carrier prefix.
func IsMobilePhone(value string) bool {
	digits := digitsOnly(TrimCell(value))
	if len(digits) != 10 {
		return false
	}
	_, ok := mobilePrefixes[digits[:3]]
	return ok
}

// IsAddress reports whether a value looks like a street address.
func IsAddress(value string) bool {
	if value == "" {
		return false
	}
	u := strings.ToUpper(value)
	for _, token := range addressTokens {
		if strings.Contains(u, token) {
			return true
		}
	}
	return false
}

// IsCity reports whether a value is a known Colombian city.
func IsCity(value string) bool {
	_, ok := colombianCities[strings.ToUpper(TrimCell(value))]
	return ok
}

// IsDepartment reports whether a value is a known Colombian department.
func IsDepartment(value string) bool {
	_, ok := colombianDepartments[strings.ToUpper(TrimCell(value))]
	return ok
}

// IsMunicipalityOrDepartment covers both geography vocabularies.
func IsMunicipalityOrDepartment(value string) bool {
	if value == "" {
		return false
	}
	return IsCity(value) || IsDepartment(value)
}

// IsSiteNumber reports whether a value is a bare site sequence number.
func IsSiteNumber(value string) bool {
	v := strings.ReplaceAll(strings.TrimSpace(value), ".0", "")
	if v == "" || len(v) > 2 {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsTransferRow reports whether a data row belongs to a transfer section,
// identified by city names in the first columns.
func IsTransferRow(row []string) bool {
	if len(row) < 3 {
		return false
	}
	limit := min(4, len(row))
	for _, cell := range row[:limit] {
		if cell == "" {
			continue
		}
		if IsCity(cell) {
			return true
		}
	}
	return false
}

// IsTransferHeader reports whether a row is the header of a transfer
// section: two or more transfer markers and no CUPS column.
func IsTransferHeader(row []string) bool {
	joined := joinUpper(row)
	count := 0
	for _, marker := range transferHeaderWords {
		if strings.Contains(joined, marker) {
			count++
		}
	}
	return count >= 2 && !strings.Contains(joined, "CUPS")
}

// IsSiteHeader reports whether a row is the header of a site block.
func IsSiteHeader(row []string) bool {
	joined := joinUpper(row)
	count := 0
	for _, word := range SiteHeaderWords {
		if strings.Contains(joined, word) {
			count++
		}
	}
	return count >= 3
}

// IsServiceHeader reports whether a row is the header of a service block:
// a CUPS code column plus at least one companion column.
func IsServiceHeader(row []string) bool {
	joined := joinUpper(row)
	hasCups := strings.Contains(joined, "CODIGO CUPS") || strings.Contains(joined, "CÓDIGO CUPS")
	if !hasCups {
		return false
	}
	for _, companion := range []string{"DESCRIPCION", "TARIFA", "TARIFARIO", "ESPECIALIDAD"} {
		if strings.Contains(joined, companion) {
			return true
		}
	}
	return false
}

// IsSiteDataRow reports whether a row carries site data: either a
// department/municipality pair in the first two columns, or a pure 10-12
// digit facility code in columns 2-5 next to geography or an address.
func IsSiteDataRow(row []string) bool {
	if len(row) < 3 {
		return false
	}

	col0 := strings.ToUpper(strings.TrimSpace(row[0]))
	col1 := ""
	if len(row) > 1 {
		col1 = strings.ToUpper(strings.TrimSpace(row[1]))
	}

	isDept := containsAnyKey(col0, colombianDepartments)
	isMuni := containsAnyKey(col1, colombianCities) || containsAnyKey(col1, colombianDepartments)

	if isDept && isMuni {
		return true
	}

	hasAddress := false
	hasFacilityCode := false
	end := min(6, len(row))
	for i := 2; i < end; i++ {
		cell := strings.ToUpper(strings.TrimSpace(row[i]))
		if cell == "" {
			continue
		}
		if !hasAddress && IsAddress(cell) {
			hasAddress = true
		}
		clean := strings.ReplaceAll(cell, ".0", "")
		if isAllDigits(clean) && len(clean) >= 10 && len(clean) <= 12 {
			hasFacilityCode = true
		}
	}

	if hasFacilityCode && (isDept || isMuni || hasAddress) {
		return true
	}
	return hasAddress && (isDept || isMuni)
}

// AcceptServiceCode applies the full rejection chain for a candidate
// service code, using the row for transfer and site context.
func AcceptServiceCode(code string, row []string) bool {
	if code == "" {
		return false
	}
	c := TrimCell(code)
	u := strings.ToUpper(c)

	if c == "" || len(c) > 25 {
		return false
	}
	if _, ok := colombianCities[u]; ok {
		return false
	}
	for _, word := range invalidCodeWords {
		if strings.Contains(u, word) {
			return false
		}
	}
	for _, re := range invalidCodeRes {
		if re.MatchString(u) {
			return false
		}
	}

	digits := digitsOnly(c)

	// Seven or more digits is a money amount unless the provider used a
	// hyphenated own code like 931002-1.
	if len(digits) >= 7 && !strings.Contains(c, "-") {
		return false
	}
	if IsMobilePhone(c) {
		return false
	}
	// Pure 8-12 digit numbers are facility registration codes.
	if digits == c && len(digits) >= 8 && len(digits) <= 12 {
		return false
	}
	if IsMunicipalityOrDepartment(u) {
		return false
	}
	if IsAddress(u) {
		return false
	}
	if _, ok := specialEmptyValues[u]; ok {
		return false
	}
	if IsSiteNumber(c) {
		return false
	}
	if digits == c && len(digits) < 4 {
		return false
	}
	if row != nil && IsTransferRow(row) {
		return false
	}
	if row != nil && IsSiteDataRow(row) {
		return false
	}
	return true
}

// AcceptTariff accepts a tariff cell unless it is clearly a phone number,
// or a facility code sitting inside a site-context row.
func AcceptTariff(value string, row []string) bool {
	if value == "" {
		return true
	}
	v := TrimCell(value)
	if IsMobilePhone(v) {
		return false
	}
	digits := digitsOnly(v)
	if len(digits) >= 8 && len(digits) <= 12 && row != nil {
		limit := min(5, len(row))
		joined := joinUpper(row[:limit])
		for dept := range colombianDepartments {
			if strings.Contains(joined, dept) {
				return false
			}
		}
	}
	return true
}

// AcceptManualRef rejects manual-reference cells that hold addresses or
// phone numbers.
func AcceptManualRef(value string) bool {
	if value == "" {
		return true
	}
	return !IsAddress(value) && !IsMobilePhone(value)
}

// AcceptDescription rejects description cells that hold a site number or a
// municipality.
func AcceptDescription(value string) bool {
	if value == "" {
		return true
	}
	v := strings.TrimSpace(value)
	if IsSiteNumber(v) {
		return false
	}
	return !IsMunicipalityOrDepartment(v)
}

// FormatHabilitation renders "facilityCode-siteNumber" with the site number
// zero padded to two digits. Already formatted codes pass through.
func FormatHabilitation(code, site string) string {
	if code == "" {
		return "0000000000-01"
	}
	c := TrimCell(code)
	if habFormattedRe.MatchString(c) {
		return c
	}
	cDigits := digitsOnly(c)

	siteNum := "1"
	s := TrimCell(site)
	sDigits := digitsOnly(s)
	if s != "" && sDigits != "" && sDigits != cDigits && len(sDigits) <= 5 {
		siteNum = strings.TrimLeft(sDigits, "0")
		if siteNum == "" {
			siteNum = "1"
		}
	}
	if len(siteNum) < 2 {
		siteNum = "0" + siteNum
	}
	return cDigits + "-" + siteNum
}

func containsAnyKey(value string, set map[string]struct{}) bool {
	if value == "" {
		return false
	}
	if _, ok := set[value]; ok {
		return true
	}
	for key := range set {
		if strings.Contains(value, key) {
			return true
		}
	}
	return false
}

func isAllDigits(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func joinUpper(row []string) string {
	parts := make([]string, 0, len(row))
	for _, cell := range row {
		if cell == "" {
			continue
		}
		parts = append(parts, strings.ToUpper(strings.TrimSpace(cell)))
	}
	return strings.Join(parts, " ")
}
