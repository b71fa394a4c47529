package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"filing_analyzer/pkg/core/analysis"
	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/utils"
)

// topFilings caps the filings listed per keyword group.
const topFilings = 5

// Markdown renders the report as a Markdown document.
func Markdown(r *Report) string {
	var sb strings.Builder
	a := r.Analysis

	title := "Financial Analysis Report"
	if a != nil && a.Company != "" {
		title += ": " + a.Company
		if a.Ticker != "" {
			title += " (" + a.Ticker + ")"
		}
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString(fmt.Sprintf("Generated %s · run `%s`\n\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"), r.ID))

	if a != nil {
		writeSummary(&sb, r)
		writeHealth(&sb, a.Health)
		writeLatest(&sb, a.Latest)
		writeTrends(&sb, r)
		writeInvestment(&sb, r)
	}
	writeKeywordTrends(&sb, r)
	writeGroups(&sb, r)
	if a != nil {
		writeDiagnostics(&sb, r)
	}
	return sb.String()
}

// HTML renders the report as an HTML fragment.
func HTML(r *Report) (string, error) {
	return utils.MarkdownToHTML(Markdown(r))
}

func writeSummary(sb *strings.Builder, r *Report) {
	s := r.Analysis.Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Total filings: %d\n", s.TotalFilings))
	for _, form := range sortedForms(s.FormCounts) {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", form, s.FormCounts[form]))
	}
	if s.FirstFiled != nil && s.LastFiled != nil {
		sb.WriteString(fmt.Sprintf("- Filed between %s and %s\n", s.FirstFiled.Format("2006-01-02"), s.LastFiled.Format("2006-01-02")))
	}
	sb.WriteString(fmt.Sprintf("- Filings with financial data: %d\n", s.WithFinancials))
	sb.WriteString(fmt.Sprintf("- Filings with text: %d\n\n", s.WithText))
}

func writeHealth(sb *strings.Builder, s health.Score) {
	sb.WriteString("## Financial Health\n\n")
	if s.Overall == nil {
		sb.WriteString("Insufficient data to compute a health score.\n\n")
		return
	}
	sb.WriteString(fmt.Sprintf("**Overall: %.1f / 100 (grade %s)** as of %s\n\n", *s.Overall, s.Grade, s.AsOf))
	sb.WriteString("| Component | Input | Score | Weight |\n")
	sb.WriteString("| --- | --- | --- | --- |\n")
	for _, comp := range health.Components {
		c, ok := s.Components[comp]
		if !ok {
			continue
		}
		if !c.Computed {
			sb.WriteString(fmt.Sprintf("| %s | n/a | n/a | %s |\n", comp, pct(c.Weight*100)))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %.1f | %s |\n", comp, optPct(c.Input), c.Score, pct(c.EffectiveWeight*100)))
	}
	sb.WriteString("\n")
}

func writeLatest(sb *strings.Builder, latest *metrics.Record) {
	if latest == nil {
		return
	}
	sb.WriteString(fmt.Sprintf("## Key Metrics (%s)\n\n", latest.Label()))
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("| --- | --- |\n")
	for _, m := range metrics.RawMetrics {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", m, formatValue(m, latest.Value(m))))
	}
	for _, m := range metrics.DerivedMetrics {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", m, formatValue(m, latest.Value(m))))
	}
	sb.WriteString("\n")
}

func writeTrends(sb *strings.Builder, r *Report) {
	a := r.Analysis
	if len(a.Trends) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("## Trends (%s view)\n\n", a.View))
	sb.WriteString("| Metric | Latest | Latest growth | Average growth | Volatility | Direction |\n")
	sb.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, m := range trendOrder(a.Trends) {
		t := a.Trends[m]
		vol := "n/a"
		if t.Volatility != nil {
			vol = fmt.Sprintf("%.2f", *t.Volatility)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			m, formatValue(m, t.Summary.LatestValue), optPct(t.Summary.LatestGrowthPct),
			optPct(t.Summary.AverageGrowthPct), vol, t.Direction))
	}
	sb.WriteString("\n")
}

func writeInvestment(sb *strings.Builder, r *Report) {
	a := r.Analysis
	if a.RD != nil {
		sb.WriteString("## R&D Investment\n\n")
		sb.WriteString(fmt.Sprintf("- Total over %d periods: %s\n", a.RD.Periods, money(a.RD.TotalRD)))
		sb.WriteString(fmt.Sprintf("- Average per period: %s\n", money(a.RD.AverageRD)))
		sb.WriteString(fmt.Sprintf("- Average growth: %s\n", optPct(a.RD.AverageGrowthPct)))
		sb.WriteString(fmt.Sprintf("- Average share of revenue: %s\n", optPct(a.RD.AverageIntensityPct)))
		sb.WriteString(fmt.Sprintf("- Movement: %s\n\n", a.RD.Movement))
	}
	if a.Cash != nil {
		sb.WriteString("## Cash Position\n\n")
		sb.WriteString(fmt.Sprintf("- Current (%s): %s\n", a.Cash.CurrentPeriod, money(a.Cash.CurrentCash)))
		sb.WriteString(fmt.Sprintf("- Average: %s\n", money(a.Cash.AverageCash)))
		if a.Cash.StdDev != nil {
			sb.WriteString(fmt.Sprintf("- Standard deviation: %s\n", money(*a.Cash.StdDev)))
		}
		sb.WriteString(fmt.Sprintf("- Average growth: %s\n", optPct(a.Cash.AverageGrowthPct)))
		sb.WriteString(fmt.Sprintf("- Movement: %s\n\n", a.Cash.Movement))
	}
}

func writeKeywordTrends(sb *strings.Builder, r *Report) {
	if len(r.KeywordTrends) == 0 {
		return
	}
	sb.WriteString("## Keyword Trends\n\n")
	buckets := r.KeywordTrends[0].Points
	sb.WriteString("| Keyword | Category | Total |")
	for _, p := range buckets {
		sb.WriteString(" " + p.Bucket + " |")
	}
	sb.WriteString("\n| --- | --- | --- |")
	for range buckets {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, kt := range r.KeywordTrends {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |", escapeCell(kt.Key), kt.Category, kt.Total))
		for _, p := range kt.Points {
			sb.WriteString(fmt.Sprintf(" %d |", p.Mentions))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeGroups(sb *strings.Builder, r *Report) {
	for _, g := range r.Groups {
		sb.WriteString(fmt.Sprintf("## Keyword Group: %s\n\n", g.Name))
		if len(g.Filings) == 0 {
			sb.WriteString("No mentions.\n\n")
			continue
		}
		sb.WriteString("| Filing | Form | Filed | Mentions | Keywords | Score |\n")
		sb.WriteString("| --- | --- | --- | --- | --- | --- |\n")
		for i, fm := range g.Filings {
			if i == topFilings {
				break
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %d |\n",
				escapeCell(fm.FilingID), fm.Form, fm.FilingDate.Format("2006-01-02"), fm.Mentions,
				escapeCell(strings.Join(fm.Keywords, ", ")), fm.Score))
		}
		if n := len(g.Filings) - topFilings; n > 0 {
			sb.WriteString(fmt.Sprintf("\n%d more filing%s not shown.\n", n, plural(n)))
		}
		sb.WriteString("\n")
	}
}

func writeDiagnostics(sb *strings.Builder, r *Report) {
	var warnings []metrics.Diagnostic
	for _, d := range r.Analysis.Diagnostics {
		if d.Level == metrics.LevelWarning {
			warnings = append(warnings, d)
		}
	}
	if len(warnings) == 0 {
		return
	}
	sb.WriteString("## Data Quality\n\n")
	for _, d := range warnings {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", d.FilingID, d.Reason))
	}
	sb.WriteString("\n")
}

// =============================================================================
// FORMATTING
// =============================================================================

func sortedForms(counts map[filing.FormType]int) []filing.FormType {
	forms := make([]filing.FormType, 0, len(counts))
	for f := range counts {
		forms = append(forms, f)
	}
	sort.Slice(forms, func(i, j int) bool { return forms[i] < forms[j] })
	return forms
}

func trendOrder[T any](trends map[metrics.Metric]T) []metrics.Metric {
	out := make([]metrics.Metric, 0, len(trends))
	for _, m := range analysis.TrendMetrics {
		if _, ok := trends[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func isMoney(m metrics.Metric) bool {
	for _, raw := range metrics.RawMetrics {
		if raw == m {
			return true
		}
	}
	return false
}

func formatValue(m metrics.Metric, v *float64) string {
	if v == nil {
		return "n/a"
	}
	if isMoney(m) {
		return money(*v)
	}
	return pct(*v)
}

// money renders an amount in whole dollars with thousands separators.
func money(v float64) string {
	s := "$" + humanize.CommafWithDigits(math.Abs(v), 0)
	if v < 0 {
		return "-" + s
	}
	return s
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func optPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return pct(*v)
}

func escapeCell(s string) string { return strings.ReplaceAll(s, "|", "&#124;") }

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
