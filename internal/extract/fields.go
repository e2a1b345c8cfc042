package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
)

// caseNumberChain prefers an explicit "Filing No." over the general pattern
// and falls back to the raw cell text rather than nothing.
var caseNumberChain = Chain[string, string]{
	regexStrategy("filing-no", filingNoPattern),
	regexStrategy("case-no-label", caseNoLabel),
	regexStrategy("case-pattern", caseCorePattern),
	regexStrategy("number-year", numberYearPattern),
	{Name: "raw-text", Fn: func(text string) (string, bool) {
		v := flatten(text)
		return v, v != ""
	}},
}

// ExtractCaseNumber returns the case number found in a cell, or nil.
func ExtractCaseNumber(cell string) *string {
	v, _, ok := caseNumberChain.First(cell)
	if !ok {
		return nil
	}
	return &v
}

// TempEfilingPrefix marks e-filing numbers synthesized from row content.
const TempEfilingPrefix = "TEMP-EFILE-"

// efilingChain builds the chain for one row; the case number fallback needs
// the already-extracted value.
func efilingChain(caseNumber *string) Chain[string, string] {
	return Chain[string, string]{
		regexStrategy("efile-label", efileLabelPattern),
		regexStrategy("efile-code", efileCodePattern),
		{Name: "case-number", Fn: func(string) (string, bool) {
			if caseNumber == nil || *caseNumber == "" {
				return "", false
			}
			return *caseNumber, true
		}},
		{Name: "row-hash", Fn: func(rowText string) (string, bool) {
			return TemporaryEfilingNumber(rowText), true
		}},
	}
}

// TemporaryEfilingNumber derives a placeholder from the row content, so the
// same row always yields the same placeholder.
func TemporaryEfilingNumber(rowText string) string {
	sum := sha256.Sum256([]byte(flatten(rowText)))
	return TempEfilingPrefix + strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}

// ExtractEfilingNumber never returns an empty string.
func ExtractEfilingNumber(rowText string, caseNumber *string) string {
	v, _, _ := efilingChain(caseNumber).First(rowText)
	return v
}

// ExtractCaseType resolves the short case-type code for a case number.
func ExtractCaseType(caseText string) string {
	caseText = flatten(caseText)
	if m := casePrefixPattern.FindStringSubmatch(caseText); len(m) > 1 {
		prefix := strings.Trim(flatten(m[1]), " -:")
		if canonical, ok := caseTypeAliases[models.NormalizeAlnum(prefix)]; ok {
			return canonical
		}
		if looksLikeCaseType(prefix) {
			return strings.ToUpper(prefix)
		}
	}
	for _, word := range caseWordPattern.FindAllString(caseText, -1) {
		if canonical, ok := caseTypeAliases[models.NormalizeAlnum(word)]; ok {
			return canonical
		}
	}
	return models.UnknownCaseType
}

var caseTypeShape = regexp.MustCompile(`^[A-Za-z][A-Za-z.() ]{0,19}$`)

func looksLikeCaseType(prefix string) bool {
	if !caseTypeShape.MatchString(prefix) {
		return false
	}
	lower := strings.ToLower(prefix)
	return !strings.Contains(lower, "filing") && !strings.Contains(lower, "case no")
}

// ExtractCaseYear finds a 4-digit year in the case number, then the filing
// date, then falls back to the current year.
func ExtractCaseYear(caseNumber *string, efilingDate *string, now time.Time) int {
	if caseNumber != nil {
		for _, re := range []*regexp.Regexp{slashYearPattern, anyYearPattern} {
			if m := re.FindStringSubmatch(*caseNumber); len(m) > 1 {
				if y, err := strconv.Atoi(m[1]); err == nil {
					return y
				}
			}
		}
	}
	if efilingDate != nil && len(*efilingDate) >= 4 {
		if y, err := strconv.Atoi((*efilingDate)[:4]); err == nil {
			return y
		}
	}
	return now.Year()
}

// Parties holds the two sides of a case title.
type Parties struct {
	Petitioner string
	Respondent string
}

var partiesChain = Chain[string, Parties]{
	{Name: "versus", Fn: func(text string) (Parties, bool) {
		return splitParties(versusPattern.Split(text, 2))
	}},
	{Name: "line-break", Fn: func(text string) (Parties, bool) {
		var lines []string
		for _, l := range strings.Split(text, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		if len(lines) < 2 {
			return Parties{}, false
		}
		return splitParties([]string{lines[0], strings.Join(lines[1:], " ")})
	}},
	{Name: "and", Fn: func(text string) (Parties, bool) {
		return splitParties(andPattern.Split(text, 2))
	}},
	{Name: "whole-text", Fn: func(text string) (Parties, bool) {
		name := cleanPartyName(text)
		if name == "" {
			return Parties{}, false
		}
		return Parties{Petitioner: name, Respondent: models.UnspecifiedRespondent}, true
	}},
}

func splitParties(parts []string) (Parties, bool) {
	if len(parts) != 2 {
		return Parties{}, false
	}
	pet, resp := cleanPartyName(parts[0]), cleanPartyName(parts[1])
	if pet == "" && resp == "" {
		return Parties{}, false
	}
	if pet == "" {
		pet = models.UnknownPetitioner
	}
	if resp == "" {
		resp = models.UnspecifiedRespondent
	}
	return Parties{Petitioner: pet, Respondent: resp}, true
}

func cleanPartyName(s string) string {
	s = partyLabel.ReplaceAllString(flatten(s), "")
	return trailingFiller.ReplaceAllString(s, "")
}

// ExtractParties splits a party cell into petitioner and respondent.
func ExtractParties(cell string) Parties {
	if p, _, ok := partiesChain.First(strings.TrimSpace(cell)); ok {
		return p
	}
	return Parties{Petitioner: models.UnknownPetitioner, Respondent: models.UnspecifiedRespondent}
}

// NormalizeDate converts a single date token to YYYY-MM-DD.
func NormalizeDate(token string) (string, bool) {
	token = flatten(token)
	if token == "" {
		return "", false
	}
	if t, err := time.Parse("2006-1-2", token); err == nil {
		return t.Format("2006-01-02"), true
	}

	parts := dateSeparator.Split(token, -1)
	if len(parts) == 3 && len(parts[2]) == 4 {
		a, errA := strconv.Atoi(parts[0])
		b, errB := strconv.Atoi(parts[1])
		y, errY := strconv.Atoi(parts[2])
		if errA == nil && errB == nil && errY == nil {
			// Day first is the portal's convention; month first only when
			// day first cannot be a real date.
			if d, ok := validDate(y, b, a); ok {
				return d, true
			}
			if d, ok := validDate(y, a, b); ok {
				return d, true
			}
			return "", false
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func validDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// dateChain builds a chain that tries a labeled pattern over the row and
// then the first date inside a specific cell.
func dateChain(labeled *regexp.Regexp, cell string) Chain[string, string] {
	return Chain[string, string]{
		{Name: "labeled", Fn: func(rowText string) (string, bool) {
			m := labeled.FindStringSubmatch(rowText)
			if len(m) < 2 {
				return "", false
			}
			return NormalizeDate(m[1])
		}},
		{Name: "cell", Fn: func(string) (string, bool) {
			for _, tok := range dateToken.FindAllString(cell, -1) {
				if d, ok := NormalizeDate(tok); ok {
					return d, true
				}
			}
			return "", false
		}},
	}
}

func extractDate(labeled *regexp.Regexp, rowText, cell string) *string {
	if d, _, ok := dateChain(labeled, cell).First(rowText); ok {
		return &d
	}
	return nil
}

// NormalizeStatus maps portal wording onto the status enum; unknown wording
// is treated as pending.
func NormalizeStatus(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range statusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.status
			}
		}
	}
	return models.StatusPending
}

func normalizeRole(s string) string {
	if strings.EqualFold(s, models.RoleRespondent) {
		return models.RoleRespondent
	}
	return models.RolePetitioner
}

// roleChain checks explicit wording first, then a bare role cell, then the
// data-party-role attribute value passed in by the caller.
func roleChain(cells []string, attr string) Chain[string, string] {
	return Chain[string, string]{
		{Name: "explicit", Fn: func(rowText string) (string, bool) {
			for _, re := range []*regexp.Regexp{explicitRolePattern, labeledRolePattern} {
				if m := re.FindStringSubmatch(rowText); len(m) > 1 {
					return normalizeRole(m[1]), true
				}
			}
			return "", false
		}},
		{Name: "role-cell", Fn: func(string) (string, bool) {
			for _, c := range cells {
				if m := bareRolePattern.FindStringSubmatch(flatten(c)); len(m) > 1 {
					return normalizeRole(m[1]), true
				}
			}
			return "", false
		}},
		{Name: "attribute", Fn: func(string) (string, bool) {
			attr = strings.ToLower(strings.TrimSpace(attr))
			if attr != models.RolePetitioner && attr != models.RoleRespondent {
				return "", false
			}
			return attr, true
		}},
	}
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// extractBench returns e.g. "Division Bench".
func extractBench(rowText string) *string {
	if m := benchPattern.FindStringSubmatch(rowText); len(m) > 1 {
		v := titleWords(m[1]) + " Bench"
		return &v
	}
	return nil
}

func extractJudge(rowText string) *string {
	if m := judgePattern.FindStringSubmatch(rowText); len(m) > 1 {
		v := "Justice " + strings.TrimSpace(m[1])
		return &v
	}
	return nil
}

func extractCourt(rowText string) *string {
	if m := courtPattern.FindStringSubmatch(rowText); len(m) > 1 {
		v := strings.ToUpper(m[1])
		return &v
	}
	return nil
}
