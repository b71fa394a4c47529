package search

import (
	"fmt"
	"regexp"

	"filing_analyzer/pkg/core/filing"
)

// Category is a taxonomy bucket for keywords.
type Category string

const (
	CategoryPipeline            Category = "pipeline"
	CategoryPartnership         Category = "partnership"
	CategoryPatent              Category = "patent"
	CategoryRiskFactor          Category = "risk_factor"
	CategoryRegulatoryMilestone Category = "regulatory_milestone"
	CategoryUncategorized       Category = "uncategorized"
)

// Categories lists the taxonomy in reporting order.
var Categories = []Category{
	CategoryPipeline,
	CategoryPartnership,
	CategoryPatent,
	CategoryRiskFactor,
	CategoryRegulatoryMilestone,
	CategoryUncategorized,
}

// Rule maps keywords matching Pattern to Category.
type Rule struct {
	Pattern  string   `yaml:"pattern" json:"pattern"`
	Category Category `yaml:"category" json:"category"`
}

// DefaultRules is the built-in classification table. Rules are tried in
// order and the first match wins.
var DefaultRules = []Rule{
	{`\b(regulatory (milestone|approval|submission)s?|fda|ema|pdufa|nda|bla|approv\w*|breakthrough therapy|fast track|orphan drug|priority review|marketing authori[sz]ation)\b`, CategoryRegulatoryMilestone},
	{`\b(patent\w*|intellectual property|exclusivity|trade secrets?)\b`, CategoryPatent},
	{`\b(collaborat\w*|partner\w*|licens\w*|alliance|agreements?|joint venture|royalt\w*|milestones?|co-promot\w*)\b`, CategoryPartnership},
	{`\b(pipeline|clinical( trials?)?|phase( (1|2|3|i|ii|iii)\w*)?|preclinical|drug (candidate|development)|therapeutic\w*|oncology|rare disease|gene therapy|rnai|sirna|rna interference|oligonucleotide\w*)\b`, CategoryPipeline},
	{`\b(risks?|regulatory|uncertaint\w*|volatility|competition|litigation|challenges?|adverse|safety|efficacy|reimbursement|pricing|recall)\b`, CategoryRiskFactor},
}

type compiledRule struct {
	re       *regexp.Regexp
	category Category
}

// Classifier assigns keywords to categories from an ordered rule table.
type Classifier struct {
	rules []compiledRule
}

// NewClassifier compiles rules case-insensitively. An invalid pattern or an
// unknown category wraps filing.ErrInvalidConfiguration.
func NewClassifier(rules []Rule) (*Classifier, error) {
	c := &Classifier{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		if !knownCategory(r.Category) {
			return nil, fmt.Errorf("%w: rule %d: unknown category %q", filing.ErrInvalidConfiguration, i, r.Category)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", filing.ErrInvalidConfiguration, i, err)
		}
		c.rules = append(c.rules, compiledRule{re: re, category: r.Category})
	}
	return c, nil
}

// DefaultClassifier returns a classifier over DefaultRules.
func DefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultRules)
	if err != nil {
		panic(fmt.Sprintf("search: invalid default rules: %v", err))
	}
	return c
}

// Classify returns the category of the first rule matching keyword, or
// CategoryUncategorized.
func (c *Classifier) Classify(keyword string) Category {
	if c == nil {
		return CategoryUncategorized
	}
	for _, r := range c.rules {
		if r.re.MatchString(keyword) {
			return r.category
		}
	}
	return CategoryUncategorized
}

func knownCategory(cat Category) bool {
	for _, k := range Categories {
		if k == cat {
			return true
		}
	}
	return false
}

func categoryRank(cat Category) int {
	for i, k := range Categories {
		if k == cat {
			return i
		}
	}
	return len(Categories)
}
