package search

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"filing_analyzer/pkg/core/filing"
)

// Keyword groups tracked by default for a clinical-stage biotech issuer.
var (
	BiotechKeywords = []string{
		"pipeline", "clinical trial", "FDA approval", "drug development",
		"therapeutic", "oncology", "rare disease", "gene therapy",
		"RNAi", "siRNA", "patent", "intellectual property",
		"collaboration", "partnership", "licensing", "milestone",
	}
	PipelineKeywords = []string{
		"pipeline", "clinical trial", "phase", "FDA", "approval",
		"drug development", "therapeutic", "oncology", "rare disease",
		"RNAi", "siRNA", "gene therapy", "patent", "intellectual property",
	}
	RiskKeywords = []string{
		"risk", "challenge", "uncertainty", "volatility", "competition",
		"regulatory", "clinical", "safety", "efficacy", "market",
		"reimbursement", "pricing", "intellectual property", "litigation",
	}
	PartnershipKeywords = []string{
		"collaboration", "partnership", "alliance", "agreement", "licensing",
		"milestone", "royalty", "joint venture", "strategic", "commercial",
	}
)

// Group names accepted by KeywordGroup.
const (
	GroupBiotech     = "biotech"
	GroupPipeline    = "pipeline"
	GroupRisk        = "risk"
	GroupPartnership = "partnership"
)

// KeywordGroup returns a copy of a named keyword list.
func KeywordGroup(name string) ([]string, error) {
	var kws []string
	switch strings.ToLower(strings.TrimSpace(name)) {
	case GroupBiotech:
		kws = BiotechKeywords
	case GroupPipeline:
		kws = PipelineKeywords
	case GroupRisk:
		kws = RiskKeywords
	case GroupPartnership:
		kws = PartnershipKeywords
	default:
		return nil, fmt.Errorf("%w: unknown keyword group %q", filing.ErrInvalidConfiguration, name)
	}
	return append([]string(nil), kws...), nil
}

// FilingMentions summarizes how strongly one filing covers a keyword group.
// Score is Mentions times the number of distinct keywords found.
type FilingMentions struct {
	FilingID   string          `json:"filing_id"`
	Form       filing.FormType `json:"form_type"`
	FilingDate time.Time       `json:"filing_date"`
	Mentions   int             `json:"mentions"`
	Keywords   []string        `json:"keywords_found"`
	Score      int             `json:"score"`
}

// GroupSummary counts whole-word mentions of keywords in each filing
// passing filter. Filings without mentions are omitted; the rest are
// ordered by score, then filing date (newest first), then filing id.
func (e *Engine) GroupSummary(records []filing.Record, keywords []string, filter filing.Filter) ([]FilingMentions, error) {
	matchers, err := e.compile(keywords, true)
	if err != nil {
		return nil, err
	}

	out := []FilingMentions{}
	for _, rec := range filter.Apply(records) {
		fm := FilingMentions{FilingID: rec.ID, Form: rec.Form, FilingDate: rec.FilingDate}
		for _, m := range matchers {
			if n := count(rec, m); n > 0 {
				fm.Mentions += n
				fm.Keywords = append(fm.Keywords, m.keyword)
			}
		}
		if fm.Mentions == 0 {
			continue
		}
		sort.Strings(fm.Keywords)
		fm.Score = fm.Mentions * len(fm.Keywords)
		out = append(out, fm)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.FilingDate.Equal(b.FilingDate) {
			return a.FilingDate.After(b.FilingDate)
		}
		return a.FilingID < b.FilingID
	})
	return out, nil
}
