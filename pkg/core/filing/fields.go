package filing

import (
	"encoding/json"
	"sort"
	"strings"
)

// Field enumerates the financial fields the upstream parser may extract.
type Field string

const (
	FieldRevenue          Field = "revenue"
	FieldNetIncome        Field = "net_income"
	FieldTotalAssets      Field = "total_assets"
	FieldCash             Field = "cash_and_equivalents"
	FieldRDExpense        Field = "research_development"
	FieldOperatingExpense Field = "operating_expenses"
)

// AllFields lists every known field in display order.
var AllFields = []Field{
	FieldRevenue,
	FieldNetIncome,
	FieldTotalAssets,
	FieldCash,
	FieldRDExpense,
	FieldOperatingExpense,
}

var fieldAliases = map[string]Field{
	"revenue":                   FieldRevenue,
	"revenues":                  FieldRevenue,
	"total_revenue":             FieldRevenue,
	"net_income":                FieldNetIncome,
	"net_earnings":              FieldNetIncome,
	"total_assets":              FieldTotalAssets,
	"cash_and_equivalents":      FieldCash,
	"cash_and_cash_equivalents": FieldCash,
	"cash":                      FieldCash,
	"research_development":      FieldRDExpense,
	"research_and_development":  FieldRDExpense,
	"rd_expense":                FieldRDExpense,
	"rd_spending":               FieldRDExpense,
	"r_and_d":                   FieldRDExpense,
	"operating_expenses":        FieldOperatingExpense,
	"operating_expense":         FieldOperatingExpense,
	"total_operating_expenses":  FieldOperatingExpense,
}

// ParseField resolves a field name, accepting the common aliases used by
// upstream parsers. The second return is false for unknown names.
func ParseField(name string) (Field, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_", "&", "_and_").Replace(key)
	key = strings.ReplaceAll(key, "__", "_")
	f, ok := fieldAliases[key]
	return f, ok
}

// Fields is an optional-value map keyed by the fixed Field set.
// A missing key means the value is absent, which is distinct from zero.
type Fields map[Field]float64

// Get returns a copy of the value for f, or nil when absent.
func (fs Fields) Get(f Field) *float64 {
	v, ok := fs[f]
	if !ok {
		return nil
	}
	return &v
}

// Has reports whether f is present.
func (fs Fields) Has(f Field) bool {
	_, ok := fs[f]
	return ok
}

// Present returns the present fields in AllFields order.
func (fs Fields) Present() []Field {
	out := make([]Field, 0, len(fs))
	for _, f := range AllFields {
		if fs.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// UnmarshalJSON accepts a name -> number object. Null values stay absent and
// names outside the Field set are ignored.
func (fs *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Canonical names win over aliases when both are present.
	out := make(Fields, len(raw))
	aliased := make(map[Field]float64)
	for _, k := range keys {
		v := raw[k]
		if v == nil {
			continue
		}
		f, ok := ParseField(k)
		if !ok {
			continue
		}
		if string(f) == k {
			out[f] = *v
		} else if _, seen := aliased[f]; !seen {
			aliased[f] = *v
		}
	}
	for f, v := range aliased {
		if _, exists := out[f]; !exists {
			out[f] = v
		}
	}
	*fs = out
	return nil
}
