package analysis

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	coreAnalysis "filing_analyzer/pkg/core/analysis"
	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/search"
	"filing_analyzer/pkg/core/store"
)

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func newTestServer(t *testing.T, records ...filing.Record) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, search.DefaultOptions(), records...)
}

func newTestServerWith(t *testing.T, opts search.Options, records ...filing.Record) *httptest.Server {
	t.Helper()
	searcher, err := search.NewEngine(opts)
	if err != nil {
		t.Fatalf("search engine: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := coreAnalysis.NewEngine(store.NewMemoryStore(records...), health.DefaultConfig(), searcher, logger)

	mux := http.NewServeMux()
	NewHandler(engine, logger).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fixtures() []filing.Record {
	return []filing.Record{
		{
			ID: "q2-2022", Form: filing.Form10Q, FilingDate: day("2022-08-05"), PeriodLabel: "Q2 2022",
			Fields: filing.Fields{filing.FieldRevenue: 80},
		},
		{
			ID: "q2-2023", Form: filing.Form10Q, FilingDate: day("2023-08-04"), PeriodLabel: "Q2 2023",
			Fields: filing.Fields{
				filing.FieldRevenue:     100,
				filing.FieldNetIncome:   10,
				filing.FieldTotalAssets: 1000,
				filing.FieldCash:        250,
				filing.FieldRDExpense:   20,
			},
			Sections: []filing.Section{{Name: "Risk Factors", Text: "Our siRNA pipeline faces regulatory risk."}},
		},
		{
			ID: "8k-2023", Form: filing.Form8K, FilingDate: day("2023-09-12"),
			Sections: []filing.Section{{Name: "Item 8.01", Text: "We announced a collaboration on an RNAi therapeutic."}},
		},
	}
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp, body
}

func TestHandleSummary(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	resp, body := get(t, srv, "/api/summary?form=10-Q")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var s coreAnalysis.DataSummary
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TotalFilings != 2 || s.FormCounts[filing.Form10Q] != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestHandleHealthScore(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	resp, body := get(t, srv, "/api/health-score")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var s health.Score
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Status != health.StatusOK || s.Grade != "B" || s.Overall == nil {
		t.Errorf("unexpected score %+v", s)
	}
}

func TestHandleHealthScore_InsufficientData(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv, "/api/health-score")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"status":"insufficient-data"`) || !strings.Contains(string(body), `"overall":null`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestHandleMetricsAndTrends(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	resp, body := get(t, srv, "/api/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var m MetricsResponse
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(m.Series) != 2 || len(m.Ratios) != 2 || len(m.Diagnostics) != 1 {
		t.Errorf("unexpected metrics %+v", m)
	}

	resp, body = get(t, srv, "/api/metrics?format=csv")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "period,period_end,") {
		t.Errorf("unexpected csv %d: %s", resp.StatusCode, body)
	}

	resp, body = get(t, srv, "/api/trends?metric=revenue")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var tr struct {
		Trends map[string]json.RawMessage `json:"trends"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := tr.Trends["revenue"]; !ok || len(tr.Trends) != 1 {
		t.Errorf("expected only the revenue trend, got %s", body)
	}

	if resp, _ := get(t, srv, "/api/trends?metric=ebitda"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown metric: status %d, want 400", resp.StatusCode)
	}
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	resp, body := get(t, srv, "/api/search?q=siRNA")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var sr SearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sr.Count != 1 || sr.Matches[0].FilingID != "q2-2023" {
		t.Errorf("unexpected matches %+v", sr)
	}

	resp, body = get(t, srv, "/api/search?q=sirna&case_sensitive=true")
	if err := json.Unmarshal(body, &sr); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if sr.Count != 0 {
		t.Errorf("case-sensitive search should not match, got %d", sr.Count)
	}

	for _, path := range []string{
		"/api/search",
		"/api/search?q=x&form=S-1",
		"/api/search?q=x&from=yesterday",
		"/api/search?q=x&from=2023-12-31&to=2023-01-01",
	} {
		if resp, _ := get(t, srv, path); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestHandleSearch_PartialOptionOverride(t *testing.T) {
	opts := search.DefaultOptions()
	opts.WholeWord = true
	srv := newTestServerWith(t, opts, fixtures()...)

	count := func(path string) int {
		t.Helper()
		resp, body := get(t, srv, path)
		var sr SearchResponse
		if err := json.Unmarshal(body, &sr); err != nil || resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d: %s", path, resp.StatusCode, body)
		}
		return sr.Count
	}

	// whole_word stays on from the server default
	if n := count("/api/search?q=pipe&case_sensitive=true"); n != 0 {
		t.Errorf("whole-word default should reject pipe in pipeline, got %d", n)
	}
	if n := count("/api/search?q=pipe&whole_word=false"); n != 1 {
		t.Errorf("substring search should find pipe, got %d", n)
	}
}

func TestHandleKeywordTrend(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	resp, body := get(t, srv, "/api/keywords/trend?keywords=siRNA,RNAi&granularity=year")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var kr KeywordTrendResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if kr.Granularity != search.GranularityYear || len(kr.Trends) != 2 {
		t.Errorf("unexpected trends %+v", kr)
	}

	resp, body = get(t, srv, "/api/keywords/trend?group=partnership&by=category")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}

	for _, path := range []string{
		"/api/keywords/trend?group=unknown",
		"/api/keywords/trend?granularity=decade",
	} {
		if resp, _ := get(t, srv, path); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestHandleReport(t *testing.T) {
	srv := newTestServer(t, fixtures()...)

	resp, body := get(t, srv, "/api/report")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "# Financial Analysis Report") {
		t.Errorf("markdown report %d: %s", resp.StatusCode, body)
	}

	resp, body = get(t, srv, "/api/report?format=html")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "<h1>") {
		t.Errorf("html report %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type %q", ct)
	}

	if resp, _ := get(t, srv, "/api/report?format=pdf"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format: status %d, want 400", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/summary", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status %d, want 405", resp.StatusCode)
	}
}
