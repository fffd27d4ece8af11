// Package rmd computes Required Minimum Distribution estimates for inherited
// retirement accounts. The life-expectancy table is illustrative, not the
// IRS one.
package rmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Input is a fully validated calculation request. Dates are YYYY-MM-DD
// (NormalizeDate converts the other accepted forms). Balance must be
// positive; the caller validates that before calling Calculate.
type Input struct {
	AccountType            string  `json:"accountType"`
	Balance                float64 `json:"balance"`
	OriginalOwnerBirthDate string  `json:"originalOwnerBirthDate"`
	OriginalOwnerDeathDate string  `json:"originalOwnerDeathDate"`
	RegistrationType       string  `json:"registrationType"` // individual | trust
	BeneficiaryType        string  `json:"beneficiaryType"`
	BeneficiaryBirthDate   string  `json:"beneficiaryBirthDate"`
}

// Prefill mirrors Input with every field optional, for tool-driven form
// prefilling.
type Prefill struct {
	AccountType            *string  `json:"accountType,omitempty"`
	Balance                *float64 `json:"balance,omitempty"`
	OriginalOwnerBirthDate *string  `json:"originalOwnerBirthDate,omitempty"`
	OriginalOwnerDeathDate *string  `json:"originalOwnerDeathDate,omitempty"`
	RegistrationType       *string  `json:"registrationType,omitempty"`
	BeneficiaryType        *string  `json:"beneficiaryType,omitempty"`
	BeneficiaryBirthDate   *string  `json:"beneficiaryBirthDate,omitempty"`
}

// lifeExpectancyFactors is ordered by ascending age. Entries are non-zero by
// construction; nearestFactor relies on that.
var lifeExpectancyFactors = []struct {
	Age    int
	Factor float64
}{
	{20, 63.0},
	{30, 53.3},
	{40, 43.6},
	{50, 34.2},
	{60, 25.2},
	{70, 17.0},
	{80, 10.2},
	{90, 5.3},
}

// Calculate computes the RMD estimate using the current calendar year for
// the beneficiary's age.
func Calculate(in Input) (float64, error) {
	return CalculateAsOf(time.Now().UTC().Year(), in)
}

// CalculateAsOf is the deterministic core: the beneficiary's age is the
// calendar-year difference to asOfYear, not exact elapsed years.
func CalculateAsOf(asOfYear int, in Input) (float64, error) {
	birthYear, err := yearOf(in.BeneficiaryBirthDate)
	if err != nil {
		return 0, fmt.Errorf("beneficiary birth date: %w", err)
	}
	age := asOfYear - birthYear

	factor := nearestFactor(age)
	if IsSurvivingSpouse(in.BeneficiaryType) {
		factor *= 1.1
	}
	if IsUnderAge21(in.BeneficiaryType) {
		factor *= 1.2
	}
	if strings.EqualFold(strings.TrimSpace(in.RegistrationType), "trust") {
		factor *= 0.9
	}

	return round2(in.Balance / factor), nil
}

// nearestFactor selects the factor of the tabulated age closest to age.
// Iteration is ascending and only a strictly smaller distance replaces the
// candidate, so a tie keeps the lower age.
func nearestFactor(age int) float64 {
	best := lifeExpectancyFactors[0]
	for _, entry := range lifeExpectancyFactors[1:] {
		if abs(entry.Age-age) < abs(best.Age-age) {
			best = entry
		}
	}
	return best.Factor
}

// IsSurvivingSpouse accepts both the select slug and the display phrasing the
// model is instructed to use.
func IsSurvivingSpouse(beneficiaryType string) bool {
	t := strings.ToLower(strings.TrimSpace(beneficiaryType))
	return t == "spouse" || t == "a surviving spouse"
}

// IsUnderAge21 matches the minor-beneficiary display phrasing ("... under
// age 21").
func IsUnderAge21(beneficiaryType string) bool {
	t := strings.ToLower(strings.TrimSpace(beneficiaryType))
	return strings.Contains(t, "under age 21")
}

func yearOf(date string) (int, error) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, fmt.Errorf("malformed date %q", date)
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, fmt.Errorf("malformed date %q", date)
	}
	return y, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
