package metrics

import (
	"fmt"
	"sort"

	"filing_analyzer/pkg/core/filing"
)

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Level grades a diagnostic.
type Level string

const (
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Diagnostic describes a filing that was skipped or superseded during
// normalization. Err wraps filing.ErrMalformedRecord for dropped filings.
type Diagnostic struct {
	Level    Level  `json:"level"`
	FilingID string `json:"filing_id"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: filing %s: %s", d.Level, d.FilingID, d.Reason)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// =============================================================================
// NORMALIZER
// =============================================================================

type candidate struct {
	period Period
	record filing.Record
}

// Normalize produces one metrics record per distinct fiscal period, ordered
// chronologically, plus diagnostics for every filing it dropped or
// superseded. It never fails as a whole.
//
// When several filings report the same period (an amendment, or a restated
// comparative), the most recently filed one wins; ties go to the amended
// filing and then to the greater filing id.
func Normalize(records []filing.Record) (Series, []Diagnostic) {
	var diags []Diagnostic
	byLabel := make(map[string]candidate)
	var order []string

	for _, rec := range records {
		// 1. Filings without any extracted number carry nothing to normalize
		if len(rec.Fields) == 0 {
			diags = append(diags, malformed(rec.ID, "no financial fields extracted"))
			continue
		}

		// 2. Place the filing in a fiscal period
		period, ok := ResolvePeriod(rec)
		if !ok {
			diags = append(diags, malformed(rec.ID, fmt.Sprintf("fiscal period cannot be determined (label %q)", rec.PeriodLabel)))
			continue
		}

		// 3. Deduplicate by period
		label := period.Label()
		existing, seen := byLabel[label]
		if !seen {
			byLabel[label] = candidate{period: period, record: rec}
			order = append(order, label)
			continue
		}
		if supersedes(existing.record, rec) {
			diags = append(diags, superseded(existing.record.ID, rec.ID, label))
			byLabel[label] = candidate{period: period, record: rec}
		} else {
			diags = append(diags, superseded(rec.ID, existing.record.ID, label))
		}
	}

	series := make(Series, 0, len(order))
	for _, label := range order {
		c := byLabel[label]
		series = append(series, toRecord(c.period, c.record))
	}

	sort.SliceStable(series, func(i, j int) bool {
		a, b := series[i], series[j]
		if !a.PeriodEnd.Equal(b.PeriodEnd) {
			return a.PeriodEnd.Before(b.PeriodEnd)
		}
		// A Q4 and the fiscal year sharing an end date: quarter first.
		if a.Period.Kind != b.Period.Kind {
			return a.Period.Kind == Quarterly
		}
		return a.Label() < b.Label()
	})

	return series, diags
}

// supersedes reports whether incoming should replace existing for a period.
func supersedes(existing, incoming filing.Record) bool {
	if !incoming.FilingDate.Equal(existing.FilingDate) {
		return incoming.FilingDate.After(existing.FilingDate)
	}
	if incoming.Amended != existing.Amended {
		return incoming.Amended
	}
	return incoming.ID > existing.ID
}

func toRecord(p Period, rec filing.Record) Record {
	end := rec.PeriodEnd
	if end.IsZero() {
		end = p.End()
	}
	return Record{
		Period:           p,
		PeriodEnd:        end,
		Form:             rec.Form,
		FilingID:         rec.ID,
		FilingDate:       rec.FilingDate,
		Revenue:          rec.Fields.Get(filing.FieldRevenue),
		NetIncome:        rec.Fields.Get(filing.FieldNetIncome),
		TotalAssets:      rec.Fields.Get(filing.FieldTotalAssets),
		Cash:             rec.Fields.Get(filing.FieldCash),
		RDExpense:        rec.Fields.Get(filing.FieldRDExpense),
		OperatingExpense: rec.Fields.Get(filing.FieldOperatingExpense),
	}
}

func malformed(id, reason string) Diagnostic {
	return Diagnostic{
		Level:    LevelWarning,
		FilingID: id,
		Reason:   reason,
		Err:      fmt.Errorf("%w: %s", filing.ErrMalformedRecord, reason),
	}
}

func superseded(loserID, winnerID, label string) Diagnostic {
	return Diagnostic{
		Level:    LevelInfo,
		FilingID: loserID,
		Reason:   fmt.Sprintf("superseded by %s for %s", winnerID, label),
	}
}
