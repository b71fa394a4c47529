package filing

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"20060102",
}

// ParseDate accepts the date formats seen in filing metadata. An empty
// string is the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrMalformedRecord, s)
}

// ParseFilter builds a filter from user input: form names and an inclusive
// filing-date range. Errors wrap ErrInvalidConfiguration.
func ParseFilter(forms []string, from, to string) (Filter, error) {
	var f Filter
	for _, raw := range forms {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		form, _ := ParseFormType(raw)
		if form == FormOther {
			return Filter{}, fmt.Errorf("%w: unknown form type %q", ErrInvalidConfiguration, raw)
		}
		f.FormTypes = append(f.FormTypes, form)
	}

	var err error
	if f.From, err = ParseDate(from); err != nil {
		return Filter{}, fmt.Errorf("%w: from: %v", ErrInvalidConfiguration, err)
	}
	if f.To, err = ParseDate(to); err != nil {
		return Filter{}, fmt.Errorf("%w: to: %v", ErrInvalidConfiguration, err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return Filter{}, fmt.Errorf("%w: date range ends before it starts", ErrInvalidConfiguration)
	}
	return f, nil
}
