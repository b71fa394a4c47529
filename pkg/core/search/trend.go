package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/metrics"
)

// Granularity selects how filings are bucketed in a keyword trend.
type Granularity string

const (
	// GranularityYear buckets by filing-date calendar year.
	GranularityYear Granularity = "year"
	// GranularityQuarter buckets by filing-date calendar quarter.
	GranularityQuarter Granularity = "quarter"
	// GranularityPeriod buckets by the fiscal period the filing reports on.
	GranularityPeriod Granularity = "period"
)

// ParseGranularity validates a granularity name.
func ParseGranularity(name string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(name))); g {
	case GranularityYear, GranularityQuarter, GranularityPeriod:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown granularity %q", filing.ErrInvalidConfiguration, name)
}

// TrendPoint aggregates one bucket. Filings counts the filings in the bucket
// with at least one mention; Scanned counts all filings in the bucket.
type TrendPoint struct {
	Bucket   string    `json:"bucket"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Mentions int       `json:"mentions"`
	Filings  int       `json:"filings"`
	Scanned  int       `json:"scanned"`
}

// KeywordTrend is the mention history of one keyword or category.
type KeywordTrend struct {
	Key      string       `json:"key"`
	Category Category     `json:"category"`
	Total    int          `json:"total_mentions"`
	Points   []TrendPoint `json:"points"`
}

type bucket struct {
	label string
	start time.Time
	end   time.Time
	rank  int // breaks ties between buckets ending together
}

// KeywordTrend counts mentions of each keyword per bucket. Every bucket
// holding at least one filing appears in every trend, with zero mentions
// when the keyword is absent. Trends follow the keyword order; points are
// chronological.
func (e *Engine) KeywordTrend(records []filing.Record, keywords []string, g Granularity) ([]KeywordTrend, error) {
	matchers, err := e.compile(keywords, e.opts.WholeWord)
	if err != nil {
		return nil, err
	}
	buckets, assigned, err := bucketize(records, g)
	if err != nil {
		return nil, err
	}

	out := make([]KeywordTrend, 0, len(matchers))
	for _, m := range matchers {
		out = append(out, aggregate(m.keyword, m.category, buckets, assigned, []matcher{m}))
	}
	return out, nil
}

// CategoryTrend classifies the keywords and counts mentions per category.
// Only categories with at least one keyword appear, in taxonomy order.
func (e *Engine) CategoryTrend(records []filing.Record, keywords []string, g Granularity) ([]KeywordTrend, error) {
	matchers, err := e.compile(keywords, e.opts.WholeWord)
	if err != nil {
		return nil, err
	}
	buckets, assigned, err := bucketize(records, g)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[Category][]matcher)
	for _, m := range matchers {
		byCategory[m.category] = append(byCategory[m.category], m)
	}
	cats := make([]Category, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return categoryRank(cats[i]) < categoryRank(cats[j]) })

	out := make([]KeywordTrend, 0, len(cats))
	for _, c := range cats {
		out = append(out, aggregate(string(c), c, buckets, assigned, byCategory[c]))
	}
	return out, nil
}

// aggregate counts the mentions of ms per bucket.
func aggregate(key string, cat Category, buckets []bucket, assigned map[string][]filing.Record, ms []matcher) KeywordTrend {
	kt := KeywordTrend{Key: key, Category: cat, Points: make([]TrendPoint, 0, len(buckets))}
	for _, b := range buckets {
		p := TrendPoint{Bucket: b.label, Start: b.start, End: b.end, Scanned: len(assigned[b.label])}
		for _, rec := range assigned[b.label] {
			n := 0
			for _, m := range ms {
				n += count(rec, m)
			}
			if n > 0 {
				p.Mentions += n
				p.Filings++
			}
		}
		kt.Total += p.Mentions
		kt.Points = append(kt.Points, p)
	}
	return kt
}

// bucketize assigns records to buckets and returns the buckets in
// chronological order. Records that cannot be placed are skipped.
func bucketize(records []filing.Record, g Granularity) ([]bucket, map[string][]filing.Record, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bucket)
	assigned := make(map[string][]filing.Record)
	for _, rec := range records {
		b, ok := bucketOf(rec, g)
		if !ok {
			continue
		}
		seen[b.label] = b
		assigned[b.label] = append(assigned[b.label], rec)
	}

	buckets := make([]bucket, 0, len(seen))
	for _, b := range seen {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].end.Equal(buckets[j].end) {
			return buckets[i].end.Before(buckets[j].end)
		}
		if buckets[i].rank != buckets[j].rank {
			return buckets[i].rank < buckets[j].rank
		}
		return buckets[i].label < buckets[j].label
	})
	return buckets, assigned, nil
}

func bucketOf(rec filing.Record, g Granularity) (bucket, bool) {
	switch g {
	case GranularityYear:
		if rec.FilingDate.IsZero() {
			return bucket{}, false
		}
		y := rec.FilingDate.Year()
		return bucket{
			label: strconv.Itoa(y),
			start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC),
		}, true
	case GranularityQuarter:
		if rec.FilingDate.IsZero() {
			return bucket{}, false
		}
		y, q := rec.FilingDate.Year(), (int(rec.FilingDate.Month())-1)/3+1
		start := time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return bucket{
			label: fmt.Sprintf("%d-Q%d", y, q),
			start: start,
			end:   start.AddDate(0, 3, -1),
		}, true
	case GranularityPeriod:
		p, ok := metrics.ResolvePeriod(rec)
		if !ok {
			return bucket{}, false
		}
		// a fiscal year ends with its Q4; the quarter sorts first
		b := bucket{label: p.Label(), start: p.Start(), end: p.End()}
		if p.Kind == metrics.Annual {
			b.rank = 1
		}
		return b, true
	}
	return bucket{}, false
}
