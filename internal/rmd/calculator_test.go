package rmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateAsOf_BaseFactors(t *testing.T) {
	tests := []struct {
		name      string
		birthDate string
		balance   float64
		want      float64
	}{
		{"age 50 exact", "1975-06-01", 100000, 2923.98},     // 100000 / 34.2
		{"age 20 exact", "2005-01-15", 63000, 1000.00},      // 63000 / 63.0
		{"age 90 exact", "1935-12-31", 5300, 1000.00},       // 5300 / 5.3
		{"age 44 rounds to 40", "1981-03-03", 43600, 1000.00},
		{"age 46 rounds to 50", "1979-03-03", 34200, 1000.00},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateAsOf(2025, Input{
				AccountType:          "traditional-ira",
				Balance:              tc.balance,
				RegistrationType:     "individual",
				BeneficiaryType:      "child",
				BeneficiaryBirthDate: tc.birthDate,
			})
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 0.001)
		})
	}
}

func TestCalculateAsOf_AgeTieKeepsLowerBracket(t *testing.T) {
	// Age 25 is equidistant from 20 and 30; the factor for 20 wins.
	got, err := CalculateAsOf(2025, Input{
		Balance:              63000,
		RegistrationType:     "individual",
		BeneficiaryType:      "child",
		BeneficiaryBirthDate: "2000-07-01",
	})
	require.NoError(t, err)
	assert.InDelta(t, 1000.00, got, 0.001)
}

func TestCalculateAsOf_Adjustments(t *testing.T) {
	base := Input{
		Balance:              100000,
		RegistrationType:     "individual",
		BeneficiaryType:      "child",
		BeneficiaryBirthDate: "1975-06-01", // age 50 in 2025, factor 34.2
	}

	t.Run("surviving spouse scales factor by 1.1", func(t *testing.T) {
		in := base
		in.BeneficiaryType = "spouse"
		got, err := CalculateAsOf(2025, in)
		require.NoError(t, err)
		assert.InDelta(t, 2658.16, got, 0.001) // 100000 / 37.62
	})

	t.Run("display phrasing also matches", func(t *testing.T) {
		in := base
		in.BeneficiaryType = "A surviving spouse"
		got, err := CalculateAsOf(2025, in)
		require.NoError(t, err)
		assert.InDelta(t, 2658.16, got, 0.001)
	})

	t.Run("minor beneficiary scales factor by 1.2", func(t *testing.T) {
		in := base
		in.BeneficiaryType = "a child under age 21"
		got, err := CalculateAsOf(2025, in)
		require.NoError(t, err)
		assert.InDelta(t, 2436.65, got, 0.001) // 100000 / 41.04
	})

	t.Run("trust registration scales factor by 0.9", func(t *testing.T) {
		in := base
		in.RegistrationType = "trust"
		got, err := CalculateAsOf(2025, in)
		require.NoError(t, err)
		assert.InDelta(t, 3248.86, got, 0.001) // 100000 / 30.78
	})

	t.Run("adjustments stack", func(t *testing.T) {
		in := base
		in.BeneficiaryType = "spouse"
		in.RegistrationType = "trust"
		got, err := CalculateAsOf(2025, in)
		require.NoError(t, err)
		// 34.2 * 1.1 * 0.9 = 33.8580
		assert.InDelta(t, 2953.51, got, 0.001)
	})
}

func TestCalculateAsOf_MalformedDate(t *testing.T) {
	_, err := CalculateAsOf(2025, Input{Balance: 1000, BeneficiaryBirthDate: "way back"})
	assert.Error(t, err)

	_, err = CalculateAsOf(2025, Input{Balance: 1000, BeneficiaryBirthDate: ""})
	assert.Error(t, err)
}

func TestResultRoundsToCents(t *testing.T) {
	got, err := CalculateAsOf(2025, Input{
		Balance:              100000,
		RegistrationType:     "individual",
		BeneficiaryType:      "child",
		BeneficiaryBirthDate: "1975-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 2923.98, got)
}
