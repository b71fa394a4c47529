// Package search scans filing text sections for keywords and phrases,
// classifies what it finds and aggregates mention counts over time.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"filing_analyzer/pkg/core/filing"
)

// DefaultContextWidth is the number of characters kept on each side of a
// match.
const DefaultContextWidth = 200

// Options configure an Engine. The zero value searches case-insensitively
// for substrings with no context.
type Options struct {
	ContextWidth  int
	CaseSensitive bool
	WholeWord     bool
	Classifier    *Classifier
}

// DefaultOptions returns the default context width and classifier.
func DefaultOptions() Options {
	return Options{
		ContextWidth: DefaultContextWidth,
		Classifier:   DefaultClassifier(),
	}
}

// Match is one occurrence of a keyword in a filing section. Offset counts
// characters (runes) from the start of the section text.
type Match struct {
	FilingID      string          `json:"filing_id"`
	Form          filing.FormType `json:"form_type"`
	FilingDate    time.Time       `json:"filing_date"`
	PeriodLabel   string          `json:"fiscal_period,omitempty"`
	Section       string          `json:"section"`
	SectionIndex  int             `json:"-"`
	Keyword       string          `json:"keyword"`
	Text          string          `json:"matched_text"`
	Offset        int             `json:"offset"`
	ContextBefore string          `json:"context_before"`
	ContextAfter  string          `json:"context_after"`
	Category      Category        `json:"category"`
}

// Context returns the match with its surrounding text.
func (m Match) Context() string {
	return m.ContextBefore + m.Text + m.ContextAfter
}

// Engine runs read-only searches over filing records. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine returns an engine with the given options. A negative context
// width is an error; a nil classifier leaves every match uncategorized.
func NewEngine(opts Options) (*Engine, error) {
	if opts.ContextWidth < 0 {
		return nil, fmt.Errorf("%w: negative context width %d", filing.ErrInvalidConfiguration, opts.ContextWidth)
	}
	return &Engine{opts: opts}, nil
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Classify categorizes a keyword with the engine's classifier.
func (e *Engine) Classify(keyword string) Category {
	return e.opts.Classifier.Classify(keyword)
}

// Search finds every occurrence of query in the records passing filter.
// Matches are ordered by filing date (newest first), filing id, section
// order and offset.
func (e *Engine) Search(records []filing.Record, query string, filter filing.Filter) ([]Match, error) {
	return e.SearchAll(records, []string{query}, filter)
}

// SearchAll runs Search for several keywords and merges the results in the
// same order. Matches of different keywords at the same offset are ordered
// by keyword.
func (e *Engine) SearchAll(records []filing.Record, keywords []string, filter filing.Filter) ([]Match, error) {
	matchers, err := e.compile(keywords, e.opts.WholeWord)
	if err != nil {
		return nil, err
	}

	matches := []Match{}
	for _, rec := range filter.Apply(records) {
		for _, m := range matchers {
			matches = append(matches, e.scan(rec, m)...)
		}
	}
	sortMatches(matches)
	return matches, nil
}

// ============================================================================
// Matching
// ============================================================================

type matcher struct {
	keyword  string
	re       *regexp.Regexp
	category Category
}

// compile builds one literal matcher per distinct keyword.
func (e *Engine) compile(keywords []string, wholeWord bool) ([]matcher, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: no keywords", filing.ErrInvalidConfiguration)
	}
	seen := make(map[string]bool, len(keywords))
	out := make([]matcher, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			return nil, fmt.Errorf("%w: empty search query", filing.ErrInvalidConfiguration)
		}
		key := kw
		if !e.opts.CaseSensitive {
			key = strings.ToLower(kw)
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		pattern := regexp.QuoteMeta(kw)
		if wholeWord {
			pattern = wordBounded(kw, pattern)
		}
		if !e.opts.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: keyword %q: %v", filing.ErrInvalidConfiguration, kw, err)
		}
		out = append(out, matcher{keyword: kw, re: re, category: e.Classify(kw)})
	}
	return out, nil
}

// scan finds m in every section of rec independently.
func (e *Engine) scan(rec filing.Record, m matcher) []Match {
	var out []Match
	for idx, sec := range rec.Sections {
		locs := m.re.FindAllStringIndex(sec.Text, -1)
		if len(locs) == 0 {
			continue
		}
		runes := []rune(sec.Text)

		// byte offsets -> rune offsets, walking forward once
		bytePos, runePos := 0, 0
		for _, loc := range locs {
			runePos += utf8.RuneCountInString(sec.Text[bytePos:loc[0]])
			bytePos = loc[0]
			start := runePos
			end := start + utf8.RuneCountInString(sec.Text[loc[0]:loc[1]])

			out = append(out, Match{
				FilingID:      rec.ID,
				Form:          rec.Form,
				FilingDate:    rec.FilingDate,
				PeriodLabel:   rec.PeriodLabel,
				Section:       sec.Name,
				SectionIndex:  idx,
				Keyword:       m.keyword,
				Text:          sec.Text[loc[0]:loc[1]],
				Offset:        start,
				ContextBefore: string(runes[max(0, start-e.opts.ContextWidth):start]),
				ContextAfter:  string(runes[end:min(len(runes), end+e.opts.ContextWidth)]),
				Category:      m.category,
			})
		}
	}
	return out
}

// count returns the number of occurrences of m across all sections of rec.
func count(rec filing.Record, m matcher) int {
	n := 0
	for _, sec := range rec.Sections {
		n += len(m.re.FindAllStringIndex(sec.Text, -1))
	}
	return n
}

func sortMatches(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if !a.FilingDate.Equal(b.FilingDate) {
			return a.FilingDate.After(b.FilingDate)
		}
		if a.FilingID != b.FilingID {
			return a.FilingID < b.FilingID
		}
		if a.SectionIndex != b.SectionIndex {
			return a.SectionIndex < b.SectionIndex
		}
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		return a.Keyword < b.Keyword
	})
}

// wordBounded anchors pattern with \b on each side where kw starts or ends
// with a word character. A boundary next to punctuation could never match.
func wordBounded(kw, pattern string) string {
	if isWordByte(kw[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(kw[len(kw)-1]) {
		pattern += `\b`
	}
	return pattern
}

// isWordByte mirrors the ASCII word class used by \b.
func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
