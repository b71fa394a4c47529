package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	coreAnalysis "filing_analyzer/pkg/core/analysis"
	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/metrics"
	"filing_analyzer/pkg/core/report"
	"filing_analyzer/pkg/core/search"
	"filing_analyzer/pkg/core/trend"
)

// Handler serves the analysis endpoints.
type Handler struct {
	Engine *coreAnalysis.Engine
	Logger *slog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(engine *coreAnalysis.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Engine: engine, Logger: logger}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/summary", h.HandleSummary)
	mux.HandleFunc("/api/metrics", h.HandleMetrics)
	mux.HandleFunc("/api/trends", h.HandleTrends)
	mux.HandleFunc("/api/health-score", h.HandleHealthScore)
	mux.HandleFunc("/api/search", h.HandleSearch)
	mux.HandleFunc("/api/keywords/trend", h.HandleKeywordTrend)
	mux.HandleFunc("/api/report", h.HandleReport)
}

type MetricsResponse struct {
	View        metrics.PeriodKind   `json:"view,omitempty"`
	Series      metrics.Series       `json:"series"`
	Ratios      []metrics.Ratios     `json:"ratios"`
	Diagnostics []metrics.Diagnostic `json:"diagnostics"`
}

type TrendsResponse struct {
	View   metrics.PeriodKind              `json:"view,omitempty"`
	Trends map[metrics.Metric]trend.Result `json:"trends"`
	RD     *trend.RDAnalysis               `json:"rd_analysis,omitempty"`
	Cash   *trend.CashAnalysis             `json:"cash_analysis,omitempty"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Matches []search.Match `json:"matches"`
}

type KeywordTrendResponse struct {
	Granularity search.Granularity    `json:"granularity"`
	Trends      []search.KeywordTrend `json:"trends"`
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	records, err := h.Engine.Records(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coreAnalysis.Summarize(records))
}

func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	a, ok := h.analyze(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := report.WriteMetricsCSV(w, a.Series); err != nil {
			h.Logger.Error("metrics csv failed", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, MetricsResponse{
		View:        a.View,
		Series:      a.Series,
		Ratios:      a.Ratios,
		Diagnostics: a.Diagnostics,
	})
}

func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	a, ok := h.analyze(w, r)
	if !ok {
		return
	}
	resp := TrendsResponse{View: a.View, Trends: a.Trends, RD: a.RD, Cash: a.Cash}

	// Optional narrowing to one metric
	if name := r.URL.Query().Get("metric"); name != "" {
		m, known := metrics.ParseMetric(name)
		if !known {
			h.writeError(w, fmt.Errorf("%w: unknown metric %q", filing.ErrInvalidConfiguration, name))
			return
		}
		resp.Trends = map[metrics.Metric]trend.Result{}
		if t, found := a.Trends[m]; found {
			resp.Trends[m] = t
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealthScore answers 200 even when data is insufficient; the score
// status field says so.
func (h *Handler) HandleHealthScore(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	score, err := h.Engine.HealthScore(r.Context(), filter)
	if err != nil && !errors.Is(err, filing.ErrInsufficientData) {
		h.writeError(w, err)
		return
	}
	if score.Status == "" {
		score.Status = health.StatusInsufficientData
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, fmt.Errorf("%w: query parameter q is required", filing.ErrInvalidConfiguration))
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Per-request options override the server defaults
	searcher := h.Engine.Searcher()
	if q.Has("case_sensitive") || q.Has("whole_word") {
		opts := searcher.Options()
		if q.Has("case_sensitive") {
			opts.CaseSensitive = q.Get("case_sensitive") == "true"
		}
		if q.Has("whole_word") {
			opts.WholeWord = q.Get("whole_word") == "true"
		}
		if searcher, err = search.NewEngine(opts); err != nil {
			h.writeError(w, err)
			return
		}
	}

	records, err := h.Engine.Records(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	matches, err := searcher.Search(records, query, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Count: len(matches), Matches: matches})
}

// HandleKeywordTrend takes either keywords=a,b or group=<name>, an optional
// granularity and by=category to aggregate per category.
func (h *Handler) HandleKeywordTrend(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	q := r.URL.Query()

	keywords := splitList(q.Get("keywords"))
	if group := q.Get("group"); group != "" {
		kws, err := search.KeywordGroup(group)
		if err != nil {
			h.writeError(w, err)
			return
		}
		keywords = append(keywords, kws...)
	}
	if len(keywords) == 0 {
		keywords = append(keywords, search.BiotechKeywords...)
	}

	g := search.GranularityYear
	if name := q.Get("granularity"); name != "" {
		parsed, err := search.ParseGranularity(name)
		if err != nil {
			h.writeError(w, err)
			return
		}
		g = parsed
	}

	var (
		trends []search.KeywordTrend
		err    error
	)
	if q.Get("by") == "category" {
		trends, err = h.Engine.CategoryTrends(r.Context(), keywords, g)
	} else {
		trends, err = h.Engine.KeywordTrends(r.Context(), keywords, g)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := report.WriteKeywordTrendsCSV(w, trends); err != nil {
			h.Logger.Error("keyword trend csv failed", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, KeywordTrendResponse{Granularity: g, Trends: trends})
}

// HandleReport renders the full report; format is markdown (default), html
// or json.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rep, err := report.Generate(r.Context(), h.Engine, filter, splitList(r.URL.Query().Get("keywords")), search.GranularityYear)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Logger.Info("report generated", "run_id", rep.ID)

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, report.Markdown(rep))
	case "html":
		html, err := report.HTML(rep)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	case "json":
		writeJSON(w, http.StatusOK, rep)
	default:
		h.writeError(w, fmt.Errorf("%w: unknown report format %q", filing.ErrInvalidConfiguration, format))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) (*coreAnalysis.CompanyAnalysis, bool) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	a, err := h.Engine.Analyze(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return a, true
}

// preflight sets CORS headers, answers OPTIONS and rejects anything but GET.
func preflight(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// parseFilter reads form (comma separated), from and to.
func parseFilter(r *http.Request) (filing.Filter, error) {
	q := r.URL.Query()
	return filing.ParseFilter(splitList(q.Get("form")), q.Get("from"), q.Get("to"))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps configuration errors to 400 and everything else to 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, filing.ErrInvalidConfiguration) {
		status = http.StatusBadRequest
	} else {
		h.Logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
