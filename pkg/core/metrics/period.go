package metrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"filing_analyzer/pkg/core/filing"
)

// PeriodKind distinguishes quarterly from annual fiscal periods.
type PeriodKind string

const (
	Quarterly PeriodKind = "quarter"
	Annual    PeriodKind = "annual"
)

// Period is a canonical fiscal period. Quarter is 0 for annual periods.
type Period struct {
	Kind    PeriodKind
	Year    int
	Quarter int
}

// Label renders the canonical label: "Q2 2023" or "FY2023".
func (p Period) Label() string {
	if p.Kind == Annual {
		return fmt.Sprintf("FY%d", p.Year)
	}
	return fmt.Sprintf("Q%d %d", p.Quarter, p.Year)
}

func (p Period) String() string { return p.Label() }

// PriorYear returns the same period one fiscal year earlier.
func (p Period) PriorYear() Period {
	p.Year--
	return p
}

// Start is the first day of the period on a calendar fiscal year.
func (p Period) Start() time.Time {
	if p.Kind == Annual {
		return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, time.Month((p.Quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// End approximates the period end date when the filing does not supply one.
func (p Period) End() time.Time {
	if p.Kind == Annual {
		return time.Date(p.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	firstOfNext := time.Date(p.Year, time.Month(p.Quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// MarshalText encodes the period as its label.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.Label()), nil
}

// UnmarshalText decodes a period label.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, ok := ParsePeriod(string(text))
	if !ok {
		return fmt.Errorf("unrecognized fiscal period %q", string(text))
	}
	*p = parsed
	return nil
}

var (
	quarterFirst = regexp.MustCompile(`^Q([1-4])[\s\-_/]*(?:FY)?[\s\-_/]*(\d{4})$`)
	yearFirst    = regexp.MustCompile(`^(?:FY)?[\s\-_/]*(\d{4})[\s\-_/]*Q([1-4])$`)
	fiscalYear   = regexp.MustCompile(`^(?:FY[\s\-_/]*(\d{4})|(\d{4})[\s\-_/]*FY|(\d{4}))$`)
)

// ParsePeriod parses the irregular fiscal-period labels seen in filings:
// "Q2 2023", "2023 Q2", "2023-Q2", "Q2 FY2023", "FY2023", "FY 2023", "2023".
func ParsePeriod(label string) (Period, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return Period{}, false
	}

	if m := quarterFirst.FindStringSubmatch(s); m != nil {
		q, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return Period{Kind: Quarterly, Year: y, Quarter: q}, true
	}
	if m := yearFirst.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return Period{Kind: Quarterly, Year: y, Quarter: q}, true
	}
	if m := fiscalYear.FindStringSubmatch(s); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				y, _ := strconv.Atoi(g)
				return Period{Kind: Annual, Year: y}, true
			}
		}
	}
	return Period{}, false
}

// PeriodFromDate derives a period from the period-of-report date and form:
// a 10-K covers the fiscal year ending on that date, a 10-Q the calendar
// quarter containing it. Other forms cannot be placed.
func PeriodFromDate(form filing.FormType, end time.Time) (Period, bool) {
	if end.IsZero() {
		return Period{}, false
	}
	switch form {
	case filing.Form10K:
		return Period{Kind: Annual, Year: end.Year()}, true
	case filing.Form10Q:
		return Period{Kind: Quarterly, Year: end.Year(), Quarter: (int(end.Month())-1)/3 + 1}, true
	}
	return Period{}, false
}

// ResolvePeriod places a filing in a fiscal period: its label when it
// parses, otherwise its period-of-report date and form.
func ResolvePeriod(r filing.Record) (Period, bool) {
	if p, ok := ParsePeriod(r.PeriodLabel); ok {
		return p, true
	}
	return PeriodFromDate(r.Form, r.PeriodEnd)
}
