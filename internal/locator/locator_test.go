package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariants(t *testing.T) {
	t.Run("should generate padded and stripped spellings", func(t *testing.T) {
		variants := Variants("45")

		assert.Contains(t, variants, "45")
		assert.Contains(t, variants, "0045")
		assert.Contains(t, variants, "045")
		assert.Contains(t, variants, "00045")
	})

	t.Run("should not repeat spellings", func(t *testing.T) {
		variants := Variants("0045")

		seen := make(map[string]int)
		for _, v := range variants {
			seen[v]++
		}
		for v, n := range seen {
			assert.Equal(t, 1, n, v)
		}
	})

	t.Run("should ignore non digit characters", func(t *testing.T) {
		assert.Equal(t, Variants("45-2024")[0], "452024")
	})
}

func TestMatchFolder(t *testing.T) {
	folders := []string{"R.A-ABASTECIMIENTO RED ASISTENCIAL", "CONTRATOS 2024", "OTROS"}

	t.Run("should match exact names case insensitively", func(t *testing.T) {
		got, ok := MatchFolder(folders, "contratos 2024")

		assert.True(t, ok)
		assert.Equal(t, "CONTRATOS 2024", got)
	})

	t.Run("should fall back to substring matching", func(t *testing.T) {
		got, ok := MatchFolder(folders, "abastecimiento")

		assert.True(t, ok)
		assert.Equal(t, "R.A-ABASTECIMIENTO RED ASISTENCIAL", got)
	})

	t.Run("should report a miss", func(t *testing.T) {
		_, ok := MatchFolder(folders, "contratos 2019")

		assert.False(t, ok)
	})
}

func TestMatchContractFolder(t *testing.T) {
	folders := []string{
		"145-2024 CLINICA DEL NORTE",
		"045-2024 HOSPITAL SAN RAFAEL",
		"0901-2025 IPS VIDA PLENA",
		"45-2024 LABORATORIO CENTRAL",
	}

	t.Run("should match the first token against the exact digits first", func(t *testing.T) {
		got, ok := MatchContractFolder(folders, "45", "")

		assert.True(t, ok)
		assert.Equal(t, "45-2024 LABORATORIO CENTRAL", got)
	})

	t.Run("should match a zero padded folder when no exact one exists", func(t *testing.T) {
		got, ok := MatchContractFolder(folders[:3], "45", "")

		assert.True(t, ok)
		assert.Equal(t, "045-2024 HOSPITAL SAN RAFAEL", got)
	})

	t.Run("should not match a longer number containing the digits", func(t *testing.T) {
		got, ok := MatchContractFolder([]string{"145-2024 CLINICA DEL NORTE"}, "45", "")

		assert.False(t, ok, got)
	})

	t.Run("should match via zero padding to four digits", func(t *testing.T) {
		got, ok := MatchContractFolder(folders, "901", "")

		assert.True(t, ok)
		assert.Equal(t, "0901-2025 IPS VIDA PLENA", got)
	})

	t.Run("should fall back to the provider name", func(t *testing.T) {
		got, ok := MatchContractFolder(folders, "999", "laboratorio central")

		assert.True(t, ok)
		assert.Equal(t, "45-2024 LABORATORIO CENTRAL", got)
	})

	t.Run("should report a miss with no provider", func(t *testing.T) {
		_, ok := MatchContractFolder(folders, "999", "")

		assert.False(t, ok)
	})
}
