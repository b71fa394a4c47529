package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"filing_analyzer/pkg/core/filing"
)

// Saver persists parsed filings.
type Saver interface {
	SaveFiling(ctx context.Context, rec filing.Record) error
}

// FetchResult counts the outcome of a fetch run.
type FetchResult struct {
	Company string   `json:"company"`
	Listed  int      `json:"listed"`
	Saved   []string `json:"saved"`
	Failed  []string `json:"failed"`
}

// Fetcher downloads a company's filings from EDGAR, parses them and saves
// the records.
type Fetcher struct {
	client *EDGARClient
	parser *Parser
	saver  Saver
	logger *slog.Logger
}

// NewFetcher creates a fetcher. A nil logger uses slog.Default.
func NewFetcher(client *EDGARClient, parser *Parser, saver Saver, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, parser: parser, saver: saver, logger: logger}
}

// Fetch ingests up to limit filings of the given forms. A filing that fails
// to download or parse is logged and skipped; store errors abort the run.
func (f *Fetcher) Fetch(ctx context.Context, cik string, forms []filing.FormType, limit int) (*FetchResult, error) {
	// 1. Submissions index
	info, err := f.client.FetchCompanyInfo(ctx, cik)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company info: %w", err)
	}
	listings := f.client.Listings(info, forms, limit)
	res := &FetchResult{Company: info.Name, Listed: len(listings), Saved: []string{}, Failed: []string{}}
	f.logger.Info("edgar listings", "cik", PadCIK(cik), "company", info.Name, "count", len(listings))

	// 2. Download, parse and save each filing
	for _, l := range listings {
		rec, err := f.fetchOne(ctx, l)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			f.logger.Warn("filing skipped", "accession", l.AccessionNumber, "error", err)
			res.Failed = append(res.Failed, l.AccessionNumber)
			continue
		}
		if err := f.saver.SaveFiling(ctx, rec); err != nil {
			return res, fmt.Errorf("failed to save filing %s: %w", rec.ID, err)
		}
		res.Saved = append(res.Saved, rec.ID)
		f.logger.Debug("filing saved", "accession", rec.ID, "form", rec.Form, "fields", len(rec.Fields))
	}
	return res, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, l Listing) (filing.Record, error) {
	body, err := f.client.FetchDocument(ctx, l.URL)
	if err != nil {
		return filing.Record{}, err
	}
	defer body.Close()
	return f.parser.Parse(l.Metadata(), body)
}
