package rmd

import (
	"regexp"
	"strings"
)

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeDate converts MM/DD/YYYY (and two-digit-year variants) to
// YYYY-MM-DD. Already-normalized values pass through; anything else is
// returned unchanged for the caller's validation to reject.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || isoDateRe.MatchString(s) {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return s
	}
	month, day, year := parts[0], parts[1], parts[2]
	if month == "" || day == "" || year == "" {
		return s
	}
	if len(year) == 2 {
		year = "20" + year
	}
	return year + "-" + pad2(month) + "-" + pad2(day)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

var accountTypeSlugs = map[string]string{
	"traditional ira": "traditional-ira",
	"traditional-ira": "traditional-ira",
	"roth ira":        "roth-ira",
	"roth-ira":        "roth-ira",
	"401(k)":          "401k",
	"401k":            "401k",
	"403(b)":          "403b",
	"403b":            "403b",
	"457(b)":          "457b",
	"457b":            "457b",
}

// NormalizeAccountType maps both display names ("Traditional IRA", "401(k)")
// and already-normalized slugs to the canonical kebab-case slug.
func NormalizeAccountType(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if slug, ok := accountTypeSlugs[key]; ok {
		return slug
	}
	return strings.ReplaceAll(key, " ", "-")
}

// NormalizePrefill applies date and account-type normalization to every
// populated prefill field.
func NormalizePrefill(p Prefill) Prefill {
	if p.AccountType != nil {
		v := NormalizeAccountType(*p.AccountType)
		p.AccountType = &v
	}
	norm := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := NormalizeDate(*s)
		return &v
	}
	p.OriginalOwnerBirthDate = norm(p.OriginalOwnerBirthDate)
	p.OriginalOwnerDeathDate = norm(p.OriginalOwnerDeathDate)
	p.BeneficiaryBirthDate = norm(p.BeneficiaryBirthDate)
	return p
}
