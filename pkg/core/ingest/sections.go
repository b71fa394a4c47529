package ingest

import (
	"regexp"
	"sort"
	"strings"

	"filing_analyzer/pkg/core/filing"
)

// =============================================================================
// SECTION DEFINITIONS
// Based on the SEC Form 10-K, 10-Q and 8-K item structure
// =============================================================================

// SectionDefinition is one item heading a filing may contain.
type SectionDefinition struct {
	Item  string
	Title string
	// Heading matches the title as printed; defaults to the title itself.
	Heading string
}

// Fallback section names for text outside any recognized item.
const (
	CoverSection    = "Cover"
	DocumentSection = "Document"
)

// SectionDefinitions lists the recognized items per form.
var SectionDefinitions = map[filing.FormType][]SectionDefinition{
	filing.Form10K: {
		{Item: "1", Title: "Business"},
		{Item: "1A", Title: "Risk Factors"},
		{Item: "1B", Title: "Unresolved Staff Comments"},
		{Item: "1C", Title: "Cybersecurity"},
		{Item: "2", Title: "Properties"},
		{Item: "3", Title: "Legal Proceedings"},
		{Item: "4", Title: "Mine Safety Disclosures"},
		{Item: "5", Title: "Market for Common Equity", Heading: `Market\s+for\s+(?:the\s+)?Registrant['\x{2019}]?s\s+Common\s+Equity|Market\s+for\s+Common\s+Equity`},
		{Item: "6", Title: "Selected Financial Data", Heading: `Selected\s+Financial\s+Data|\[Reserved\]|Reserved`},
		{Item: "7", Title: "MD&A", Heading: `Management['\x{2019}]?s\s+Discussion\s+and\s+Analysis`},
		{Item: "7A", Title: "Market Risk", Heading: `Quantitative\s+and\s+Qualitative\s+Disclosures?\s+About\s+Market\s+Risk`},
		{Item: "8", Title: "Financial Statements", Heading: `Financial\s+Statements`},
		{Item: "9", Title: "Accounting Disagreements", Heading: `Changes\s+in\s+and\s+Disagreements`},
		{Item: "9A", Title: "Controls and Procedures"},
		{Item: "9B", Title: "Other Information"},
		{Item: "10", Title: "Directors and Governance", Heading: `Directors,?\s+Executive\s+Officers`},
		{Item: "11", Title: "Executive Compensation"},
		{Item: "12", Title: "Security Ownership"},
		{Item: "13", Title: "Related Transactions", Heading: `Certain\s+Relationships`},
		{Item: "14", Title: "Accountant Fees", Heading: `Principal\s+Account(?:ant|ing)\s+Fees`},
		{Item: "15", Title: "Exhibits", Heading: `Exhibits?`},
	},
	filing.Form10Q: {
		{Item: "1", Title: "Financial Statements", Heading: `Financial\s+Statements`},
		{Item: "2", Title: "MD&A", Heading: `Management['\x{2019}]?s\s+Discussion\s+and\s+Analysis`},
		{Item: "3", Title: "Market Risk", Heading: `Quantitative\s+and\s+Qualitative\s+Disclosures?\s+About\s+Market\s+Risk`},
		{Item: "4", Title: "Controls and Procedures"},
		{Item: "1", Title: "Legal Proceedings"},
		{Item: "1A", Title: "Risk Factors"},
		{Item: "2", Title: "Unregistered Sales", Heading: `Unregistered\s+Sales`},
		{Item: "5", Title: "Other Information"},
		{Item: "6", Title: "Exhibits"},
	},
	filing.Form8K: {
		{Item: "1.01", Title: "Material Definitive Agreement", Heading: `Entry\s+into\s+a\s+Material\s+Definitive\s+Agreement`},
		{Item: "2.02", Title: "Results of Operations", Heading: `Results\s+of\s+Operations`},
		{Item: "5.02", Title: "Officer Changes", Heading: `Departure\s+of\s+Directors`},
		{Item: "7.01", Title: "Regulation FD Disclosure", Heading: `Regulation\s+FD`},
		{Item: "8.01", Title: "Other Events"},
		{Item: "9.01", Title: "Financial Statements and Exhibits"},
	},
}

// =============================================================================
// SPLITTER
// =============================================================================

type sectionPattern struct {
	def SectionDefinition
	re  *regexp.Regexp
}

// Splitter splits filing text into item sections.
type Splitter struct {
	patterns map[filing.FormType][]sectionPattern
}

// NewSplitter compiles the heading patterns of SectionDefinitions.
// Matches variations like:
//
//	"ITEM 1. BUSINESS"
//	"Item 1 - Business"
//	"Item 1A: Risk Factors"
func NewSplitter() *Splitter {
	s := &Splitter{patterns: make(map[filing.FormType][]sectionPattern)}
	for form, defs := range SectionDefinitions {
		for _, def := range defs {
			heading := def.Heading
			if heading == "" {
				heading = strings.Join(strings.Fields(regexp.QuoteMeta(def.Title)), `\s+`)
			}
			re := regexp.MustCompile(`(?im)^[ \t]*item\s*` + regexp.QuoteMeta(def.Item) + `\s*[.\-:\x{2013}\x{2014}]?\s*(?:` + heading + `)`)
			s.patterns[form] = append(s.patterns[form], sectionPattern{def: def, re: re})
		}
	}
	return s
}

// Split returns the sections of text in document order. Text before the
// first heading becomes the cover section. A heading found more than once
// (a table of contents entry and the item itself) keeps the longest body.
// Text with no recognized heading is returned as one document section.
func (s *Splitter) Split(form filing.FormType, text string) []filing.Section {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	type boundary struct {
		title  string
		offset int
	}
	var boundaries []boundary
	for _, p := range s.patterns[form] {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			boundaries = append(boundaries, boundary{title: p.def.Title, offset: loc[0]})
		}
	}
	if len(boundaries) == 0 {
		return []filing.Section{{Name: DocumentSection, Text: cleanText(text)}}
	}
	sort.SliceStable(boundaries, func(i, j int) bool { return boundaries[i].offset < boundaries[j].offset })

	var sections []filing.Section
	index := make(map[string]int)
	if cover := cleanText(text[:boundaries[0].offset]); cover != "" {
		sections = append(sections, filing.Section{Name: CoverSection, Text: cover})
		index[CoverSection] = 0
	}
	for i, b := range boundaries {
		end := len(text)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].offset
		}
		body := cleanText(text[b.offset:end])
		if at, seen := index[b.title]; seen {
			if len(body) > len(sections[at].Text) {
				sections[at].Text = body
			}
			continue
		}
		index[b.title] = len(sections)
		sections = append(sections, filing.Section{Name: b.title, Text: body})
	}
	return sections
}

var whitespace = regexp.MustCompile(`[ \t\x{00a0}]+`)
var blankLines = regexp.MustCompile(`\n\s*\n+`)

// cleanText collapses runs of spaces and blank lines.
func cleanText(content string) string {
	content = whitespace.ReplaceAllString(content, " ")
	content = blankLines.ReplaceAllString(content, "\n")
	return strings.TrimSpace(content)
}
