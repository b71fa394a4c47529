// Package filing defines the filing records consumed by the analysis engine
// and the read contract the record store must satisfy.
package filing

import (
	"context"
	"strings"
	"time"
)

// FormType is the regulatory form of a filing.
type FormType string

const (
	Form10K   FormType = "10-K"
	Form10Q   FormType = "10-Q"
	Form8K    FormType = "8-K"
	FormOther FormType = "other"
)

// ParseFormType normalizes a raw form name. Amendments ("10-K/A") map to
// their base form with amended set to true; unknown forms map to FormOther.
func ParseFormType(raw string) (form FormType, amended bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if strings.HasSuffix(s, "/A") {
		amended = true
		s = strings.TrimSuffix(s, "/A")
	}
	switch strings.ReplaceAll(s, " ", "") {
	case "10-K", "10K":
		return Form10K, amended
	case "10-Q", "10Q":
		return Form10Q, amended
	case "8-K", "8K":
		return Form8K, amended
	}
	return FormOther, amended
}

// Section is one named block of filing text, e.g. "Risk Factors".
type Section struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Record is the immutable input unit: filing metadata, extracted financial
// fields and the filing text split into sections.
type Record struct {
	ID          string    `json:"filing_id"`
	Form        FormType  `json:"form_type"`
	Amended     bool      `json:"amended"`
	FilingDate  time.Time `json:"filing_date"`
	PeriodLabel string    `json:"fiscal_period"`
	PeriodEnd   time.Time `json:"period_of_report"`
	Fields      Fields    `json:"financial_metrics"`
	Sections    []Section `json:"sections"`
}

// Section returns the section with the given name (case-insensitive).
func (r Record) Section(name string) (Section, bool) {
	for _, s := range r.Sections {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Section{}, false
}

// HasText reports whether any section carries text.
func (r Record) HasText() bool {
	for _, s := range r.Sections {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}

// Filter narrows a set of filings by form type and filing-date range.
// Zero values mean "unbounded".
type Filter struct {
	FormTypes []FormType
	From      time.Time
	To        time.Time
}

// Match reports whether r passes the filter. The date range is inclusive
// of whole days.
func (f Filter) Match(r Record) bool {
	if len(f.FormTypes) > 0 {
		found := false
		for _, ft := range f.FormTypes {
			if ft == r.Form {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && r.FilingDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.FilingDate.Before(f.Until()) {
		return false
	}
	return true
}

// Until is the exclusive upper bound of the range: the start of the day
// after To, so a filing stamped at any time on To still matches.
func (f Filter) Until() time.Time {
	y, m, d := f.To.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, f.To.Location())
}

// Apply returns the records that pass the filter, preserving input order.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Store is the read contract of the filing record store. No ordering is
// guaranteed; the engine imposes its own.
type Store interface {
	ListFilings(ctx context.Context, filter Filter) ([]Record, error)
}
