// Package locator matches contract numbers against remote folder names,
// tolerating the zero-padding differences the file server accumulates.
package locator

import (
	"regexp"
	"strings"
)

var tokenSplitRe = regexp.MustCompile(`[\s\-_]`)

// Variants returns the candidate spellings of a contract number, in match
// priority order: as given, padded to 4, 3 and 5 digits, stripped of
// leading zeros, and with one zero prepended.
func Variants(number string) []string {
	digits := keepDigits(number)

	stripped := strings.TrimLeft(digits, "0")
	if stripped == "" {
		stripped = "0"
	}

	candidates := []string{
		digits,
		zfill(digits, 4),
		zfill(digits, 3),
		zfill(digits, 5),
		stripped,
		"0" + digits,
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, v := range candidates {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique
}

// MatchFolder finds a folder by exact name first, then by substring, both
// case-insensitive.
func MatchFolder(folders []string, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, f := range folders {
		if strings.ToLower(f) == lower {
			return f, true
		}
	}
	for _, f := range folders {
		if strings.Contains(strings.ToLower(f), lower) {
			return f, true
		}
	}
	return "", false
}

// MatchContractFolder finds the folder of a contract. Every number variant
// is tried against the first token of each folder name, then as a
// separator-delimited prefix; the provider name is the last resort.
func MatchContractFolder(folders []string, number, providerName string) (string, bool) {
	variants := Variants(number)

	for _, variant := range variants {
		for _, folder := range folders {
			tokens := tokenSplitRe.Split(folder, 2)
			if len(tokens) > 0 && tokens[0] == variant {
				return folder, true
			}
		}
	}

	for _, variant := range variants {
		for _, folder := range folders {
			if strings.HasPrefix(folder, variant+"-") ||
				strings.HasPrefix(folder, variant+"_") ||
				strings.HasPrefix(folder, variant+" ") {
				return folder, true
			}
		}
	}

	if providerName != "" {
		needle := strings.ToUpper(strings.TrimSpace(providerName))
		for _, folder := range folders {
			if strings.Contains(strings.ToUpper(folder), needle) {
				return folder, true
			}
		}
	}

	return "", false
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
