// Package ingest turns raw filing documents (HTML or plain text) into
// filing records: text extraction, item section splitting and regex
// extraction of the headline financial fields.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"filing_analyzer/pkg/core/filing"
)

// Metadata describes a raw filing document as supplied by the filing
// provider.
type Metadata struct {
	ID             string `json:"filing_id"`
	Form           string `json:"form_type"`
	FilingDate     string `json:"filing_date"`
	PeriodOfReport string `json:"period_of_report"`
	FiscalPeriod   string `json:"fiscal_period"`
}

// Parser converts raw filing documents into records. It is safe for
// concurrent use.
type Parser struct {
	splitter *Splitter
}

// NewParser creates a parser with the default section definitions.
func NewParser() *Parser {
	return &Parser{splitter: NewSplitter()}
}

// Parse reads a raw filing document. Errors wrap filing.ErrMalformedRecord
// when the metadata or the document cannot be used.
func (p *Parser) Parse(meta Metadata, r io.Reader) (filing.Record, error) {
	if strings.TrimSpace(meta.ID) == "" {
		return filing.Record{}, fmt.Errorf("%w: filing id is required", filing.ErrMalformedRecord)
	}

	// 1. Metadata
	form, amended := filing.ParseFormType(meta.Form)
	filed, err := filing.ParseDate(meta.FilingDate)
	if err != nil {
		return filing.Record{}, fmt.Errorf("filing %s: filing date: %w", meta.ID, err)
	}
	periodEnd, err := filing.ParseDate(meta.PeriodOfReport)
	if err != nil {
		return filing.Record{}, fmt.Errorf("filing %s: period of report: %w", meta.ID, err)
	}

	// 2. Document text
	raw, err := io.ReadAll(r)
	if err != nil {
		return filing.Record{}, fmt.Errorf("filing %s: read document: %w", meta.ID, err)
	}
	text := string(raw)
	if LooksLikeHTML(text) {
		if text, err = HTMLToText(strings.NewReader(text)); err != nil {
			return filing.Record{}, fmt.Errorf("%w: filing %s: %v", filing.ErrMalformedRecord, meta.ID, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return filing.Record{}, fmt.Errorf("%w: filing %s has no text", filing.ErrMalformedRecord, meta.ID)
	}

	// 3. Sections and financial fields
	return filing.Record{
		ID:          strings.TrimSpace(meta.ID),
		Form:        form,
		Amended:     amended,
		FilingDate:  filed,
		PeriodLabel: strings.TrimSpace(meta.FiscalPeriod),
		PeriodEnd:   periodEnd,
		Fields:      ExtractFields(text),
		Sections:    p.splitter.Split(form, text),
	}, nil
}

// Sections splits already extracted text for the given form.
func (p *Parser) Sections(form filing.FormType, text string) []filing.Section {
	return p.splitter.Split(form, text)
}
