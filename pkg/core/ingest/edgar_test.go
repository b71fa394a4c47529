package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"filing_analyzer/pkg/core/filing"
)

const submissions = `{
  "cik": "0000012345",
  "name": "ACME THERAPEUTICS, INC.",
  "tickers": ["ACME"],
  "filings": {"recent": {
    "accessionNumber": ["0000012345-24-000003", "0000012345-24-000002", "0000012345-23-000009"],
    "filingDate": ["2024-05-08", "2024-02-20", "2023-11-07"],
    "reportDate": ["", "2023-12-31", "2023-09-30"],
    "form": ["8-K", "10-K", "10-Q"],
    "primaryDocument": ["acme-8k.htm", "acme-10k.htm", "missing.htm"]
  }}
}`

type memorySaver struct {
	mu      sync.Mutex
	records []filing.Record
}

func (s *memorySaver) SaveFiling(ctx context.Context, rec filing.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func newEDGARServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0000012345.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "user agent required", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, submissions)
	})
	mux.HandleFunc("/Archives/edgar/data/12345/000001234524000002/acme-10k.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tenK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPadCIK(t *testing.T) {
	for in, want := range map[string]string{"12345": "0000012345", "0000012345": "0000012345", " 320193 ": "0000320193"} {
		if got := PadCIK(in); got != want {
			t.Errorf("PadCIK(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListings(t *testing.T) {
	srv := newEDGARServer(t)
	c := NewEDGARClient(WithBaseURLs(srv.URL, srv.URL), WithRateLimit(100))

	info, err := c.FetchCompanyInfo(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchCompanyInfo failed: %v", err)
	}
	if info.Name != "ACME THERAPEUTICS, INC." {
		t.Errorf("name = %q", info.Name)
	}

	all := c.Listings(info, nil, 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(all))
	}
	want := srv.URL + "/Archives/edgar/data/12345/000001234524000002/acme-10k.htm"
	if all[1].URL != want {
		t.Errorf("url = %s, want %s", all[1].URL, want)
	}

	periodic := c.Listings(info, []filing.FormType{filing.Form10K, filing.Form10Q}, 0)
	if len(periodic) != 2 || periodic[0].Form != "10-K" {
		t.Errorf("unexpected periodic listings %+v", periodic)
	}
	if limited := c.Listings(info, nil, 1); len(limited) != 1 || limited[0].Form != "8-K" {
		t.Errorf("unexpected limited listings %+v", limited)
	}
}

func TestFetch(t *testing.T) {
	srv := newEDGARServer(t)
	c := NewEDGARClient(WithBaseURLs(srv.URL, srv.URL), WithRateLimit(100), WithUserAgent("test-agent/1.0"))
	saver := &memorySaver{}

	res, err := NewFetcher(c, NewParser(), saver, nil).Fetch(context.Background(), "12345",
		[]filing.FormType{filing.Form10K, filing.Form10Q}, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Listed != 2 || len(res.Saved) != 1 || len(res.Failed) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Failed[0] != "0000012345-23-000009" {
		t.Errorf("failed = %v", res.Failed)
	}

	rec := saver.records[0]
	if rec.ID != "0000012345-24-000002" || rec.Form != filing.Form10K {
		t.Errorf("unexpected record %s %s", rec.ID, rec.Form)
	}
	if rec.PeriodEnd.Year() != 2023 || rec.FilingDate.Year() != 2024 {
		t.Errorf("unexpected dates %v %v", rec.PeriodEnd, rec.FilingDate)
	}
	if v := rec.Fields.Get(filing.FieldRevenue); v == nil {
		t.Error("expected revenue to be extracted")
	}
	if _, ok := rec.Section("Risk Factors"); !ok {
		t.Error("expected a Risk Factors section")
	}
}

func TestFetch_CompanyNotFound(t *testing.T) {
	srv := newEDGARServer(t)
	c := NewEDGARClient(WithBaseURLs(srv.URL, srv.URL), WithRateLimit(100))
	_, err := NewFetcher(c, NewParser(), &memorySaver{}, nil).Fetch(context.Background(), "999", nil, 0)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected a 404 error, got %v", err)
	}
}
