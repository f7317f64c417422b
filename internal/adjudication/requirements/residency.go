package requirements

import (
	"regexp"
	"strconv"
	"time"

	"citizenship-adjudicator/internal/common/textnorm"
	"citizenship-adjudicator/internal/models"
)

const daysPerYear = 365.25

type patternKind int

const (
	sinceDate patternKind = iota
	yearsOnly
	yearsAndMonths
)

type residencyPattern struct {
	kind patternKind
	re   *regexp.Regexp
}

const (
	datePart  = `(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`
	spelled   = `\s*\([a-z\s]+\)`
	possuindo = `possuindo,?\s+portanto,?\s+`
)

// Patterns run against folded text, in priority order; the first match wins.
var residencyPatterns = []residencyPattern{
	{sinceDate, regexp.MustCompile(`(?:foi constatado|constatou-se) que reside no brasil desde\s+` + datePart)},
	{sinceDate, regexp.MustCompile(`reside no brasil desde\s+` + datePart)},
	{sinceDate, regexp.MustCompile(`residencia.{0,160}?por prazo indeterminado desde\s+` + datePart)},
	{yearsAndMonths, regexp.MustCompile(possuindo + `(\d+)` + spelled + `\s+anos?.{0,80}?\be\s+(\d+)` + spelled + `\s+mes(?:es)?`)},
	{yearsOnly, regexp.MustCompile(possuindo + `(\d+)` + spelled + `\s+anos?`)},
	{yearsOnly, regexp.MustCompile(possuindo + `(\d+)\s+anos?`)},
	{yearsAndMonths, regexp.MustCompile(`totalizando\s+(\d+)` + spelled + `\s+anos?\s+e\s+(\d+)` + spelled + `\s+mes(?:es)?`)},
	{yearsOnly, regexp.MustCompile(`totalizando\s+(\d+)` + spelled + `\s+anos?`)},
	{yearsOnly, regexp.MustCompile(`possui\s+(\d+)\s+anos de residencia`)},
	{yearsOnly, regexp.MustCompile(`(\d+)\s+anos de residencia`)},
}

// ParseResidencyYears extracts a residency term from free text. Date
// statements are measured against caseStart, not the current date.
func ParseResidencyYears(text string, caseStart time.Time) (float64, bool) {
	folded := textnorm.Fold(text)
	if folded == "" {
		return 0, false
	}
	for _, p := range residencyPatterns {
		m := p.re.FindStringSubmatch(folded)
		if m == nil {
			continue
		}
		switch p.kind {
		case sinceDate:
			since, err := models.ParseDate(m[1])
			if err != nil {
				continue
			}
			return YearsBetween(since, caseStart), true
		case yearsOnly:
			years, _ := strconv.Atoi(m[1])
			return float64(years), true
		case yearsAndMonths:
			years, _ := strconv.Atoi(m[1])
			months, _ := strconv.Atoi(m[2])
			return float64(years) + float64(months)/12, true
		}
	}
	return 0, false
}

// YearsBetween returns the elapsed time from since to until in years of
// 365.25 days.
func YearsBetween(since, until time.Time) float64 {
	return until.Sub(since).Hours() / 24 / daysPerYear
}
