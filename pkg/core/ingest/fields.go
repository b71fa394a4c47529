package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"filing_analyzer/pkg/core/filing"
)

// amount captures a figure with optional currency sign, parentheses for
// negatives and a scale word.
const amount = `(?:\s+(?:of|was|were|totaled|totaling))?\s*[:\-]?\s*(\()?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*\)?\s*(million|thousand|billion)?`

type fieldPattern struct {
	re   *regexp.Regexp
	sign float64
}

func patterns(sign float64, labels ...string) []fieldPattern {
	out := make([]fieldPattern, 0, len(labels))
	for _, l := range labels {
		out = append(out, fieldPattern{re: regexp.MustCompile(`(?i)\b` + l + amount), sign: sign})
	}
	return out
}

// fieldPatterns are tried in order per field; the first match wins.
var fieldPatterns = map[filing.Field][]fieldPattern{
	filing.FieldRevenue: patterns(1,
		`total\s+revenues?`, `net\s+revenues?`, `revenues?`),
	filing.FieldNetIncome: append(patterns(1, `net\s+income`, `net\s+earnings`),
		patterns(-1, `net\s+loss`)...),
	filing.FieldTotalAssets: patterns(1,
		`total\s+assets`),
	filing.FieldCash: patterns(1,
		`cash\s+and\s+cash\s+equivalents`, `cash\s+and\s+equivalents`),
	filing.FieldRDExpense: patterns(1,
		`research\s+and\s+development(?:\s+expenses?)?`, `r\s*&\s*d(?:\s+expenses?)?`),
	filing.FieldOperatingExpense: patterns(1,
		`total\s+operating\s+expenses`, `operating\s+expenses`),
}

var scales = map[string]float64{
	"thousand": 1e3,
	"million":  1e6,
	"billion":  1e9,
}

// ExtractFields finds the first stated value of each financial field in
// text. Values in parentheses are negative; scale words multiply.
func ExtractFields(text string) filing.Fields {
	out := make(filing.Fields)
	for _, f := range filing.AllFields {
		for _, p := range fieldPatterns[f] {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
			if err != nil {
				continue
			}
			if scale, ok := scales[strings.ToLower(m[3])]; ok {
				v *= scale
			}
			if m[1] != "" {
				v = -v
			}
			out[f] = v * p.sign
			break
		}
	}
	return out
}
