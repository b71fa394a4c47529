package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/ingest"
	"filing_analyzer/pkg/core/utils"
)

// document is the on-disk shape of a filing. Older files carry the raw
// filing text in Content instead of Sections and may use "id" for the
// filing id.
type document struct {
	ID             string           `json:"filing_id"`
	LegacyID       string           `json:"id,omitempty"`
	Form           string           `json:"form_type"`
	Amended        bool             `json:"amended,omitempty"`
	FilingDate     string           `json:"filing_date"`
	PeriodOfReport string           `json:"period_of_report,omitempty"`
	FiscalPeriod   string           `json:"fiscal_period,omitempty"`
	Fields         filing.Fields    `json:"financial_metrics,omitempty"`
	Sections       []filing.Section `json:"sections,omitempty"`
	Content        string           `json:"content,omitempty"`
}

// FileStore keeps one JSON document per filing in a directory. Documents
// may be hand-edited: trailing commas, comments and truncated files are
// decoded leniently. Unreadable documents are logged and skipped.
type FileStore struct {
	dir      string
	logger   *slog.Logger
	splitter *ingest.Splitter
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join("data", "filings")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create filings dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger, splitter: ingest.NewSplitter()}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string { return s.dir }

// ListFilings loads every document in the directory and returns those
// passing filter, ordered by filing id.
func (s *FileStore) ListFilings(ctx context.Context, filter filing.Filter) ([]filing.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read filings dir: %w", err)
	}

	var out []filing.Record
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".json" && ext != ".hjson") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		rec, err := s.load(path)
		if err != nil {
			s.logger.Warn("skipping filing document", "path", path, "error", err)
			continue
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveFiling writes the filing to <id>.json, replacing any earlier version.
func (s *FileStore) SaveFiling(ctx context.Context, rec filing.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: filing id is required", filing.ErrMalformedRecord)
	}
	doc := document{
		ID:             rec.ID,
		Form:           string(rec.Form),
		Amended:        rec.Amended,
		FilingDate:     formatDate(rec.FilingDate),
		FiscalPeriod:   rec.PeriodLabel,
		PeriodOfReport: formatDate(rec.PeriodEnd),
		Fields:         rec.Fields,
		Sections:       rec.Sections,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal filing: %w", err)
	}
	path := filepath.Join(s.dir, fileName(rec.ID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write filing: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write filing: %w", err)
	}
	return nil
}

func (s *FileStore) load(path string) (filing.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return filing.Record{}, err
	}
	var doc document
	if _, err := utils.DecodeLenient(data, &doc); err != nil {
		return filing.Record{}, fmt.Errorf("%w: %v", filing.ErrMalformedRecord, err)
	}
	return s.toRecord(doc)
}

func (s *FileStore) toRecord(doc document) (filing.Record, error) {
	id := doc.ID
	if id == "" {
		id = doc.LegacyID
	}
	if id == "" {
		return filing.Record{}, fmt.Errorf("%w: document has no filing id", filing.ErrMalformedRecord)
	}
	form, amended := filing.ParseFormType(doc.Form)
	filed, err := filing.ParseDate(doc.FilingDate)
	if err != nil {
		return filing.Record{}, err
	}
	periodEnd, err := filing.ParseDate(doc.PeriodOfReport)
	if err != nil {
		return filing.Record{}, err
	}

	sections := doc.Sections
	if len(sections) == 0 && strings.TrimSpace(doc.Content) != "" {
		text := doc.Content
		if ingest.LooksLikeHTML(text) {
			if text, err = ingest.HTMLToText(strings.NewReader(text)); err != nil {
				return filing.Record{}, fmt.Errorf("%w: %v", filing.ErrMalformedRecord, err)
			}
		}
		sections = s.splitter.Split(form, text)
	}

	return filing.Record{
		ID:          id,
		Form:        form,
		Amended:     amended || doc.Amended,
		FilingDate:  filed,
		PeriodLabel: doc.FiscalPeriod,
		PeriodEnd:   periodEnd,
		Fields:      doc.Fields,
		Sections:    sections,
	}, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileName(id string) string {
	return unsafeName.ReplaceAllString(id, "_") + ".json"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
