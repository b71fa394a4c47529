package analysis

import "filing_analyzer/pkg/core/filing"

// Summarize counts filings per form, the filing-date range and how many
// filings carry financial fields or text.
func Summarize(records []filing.Record) DataSummary {
	s := DataSummary{
		TotalFilings: len(records),
		FormCounts:   make(map[filing.FormType]int),
	}
	for _, r := range records {
		s.FormCounts[r.Form]++
		if len(r.Fields) > 0 {
			s.WithFinancials++
		}
		if r.HasText() {
			s.WithText++
		}
		if r.FilingDate.IsZero() {
			continue
		}
		d := r.FilingDate
		if s.FirstFiled == nil || d.Before(*s.FirstFiled) {
			s.FirstFiled = &d
		}
		if s.LastFiled == nil || d.After(*s.LastFiled) {
			s.LastFiled = &d
		}
	}
	return s
}
