package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"filing_analyzer/pkg/core/filing"
)

const (
	DefaultDataURL    = "https://data.sec.gov"
	DefaultArchiveURL = "https://www.sec.gov"

	// SEC asks automated clients to stay under 10 requests per second and
	// to identify themselves.
	DefaultRateLimit = 8
	DefaultUserAgent = "filing-analyzer/1.0 (admin@example.com)"
	DefaultTimeout   = 30 * time.Second
)

// =============================================================================
// SEC EDGAR DATA TYPES
// =============================================================================

// CompanyInfo is the top-level submissions response.
type CompanyInfo struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent recentFilings `json:"recent"`
	} `json:"filings"`
}

// recentFilings holds parallel arrays of filing attributes.
type recentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// Listing is one filing of the submissions index with its document URL.
type Listing struct {
	AccessionNumber string `json:"accession_number"`
	Form            string `json:"form_type"`
	FilingDate      string `json:"filing_date"`
	ReportDate      string `json:"report_date"`
	URL             string `json:"url"`
}

// Metadata converts the listing into parser metadata.
func (l Listing) Metadata() Metadata {
	return Metadata{
		ID:             l.AccessionNumber,
		Form:           l.Form,
		FilingDate:     l.FilingDate,
		PeriodOfReport: l.ReportDate,
	}
}

// =============================================================================
// SEC EDGAR CLIENT
// =============================================================================

// EDGARClient reads the SEC submissions API and filing archives.
type EDGARClient struct {
	dataURL    string
	archiveURL string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures an EDGARClient.
type ClientOption func(*EDGARClient)

// WithBaseURLs points the client at another submissions API and archive.
func WithBaseURLs(dataURL, archiveURL string) ClientOption {
	return func(c *EDGARClient) {
		c.dataURL = strings.TrimRight(dataURL, "/")
		c.archiveURL = strings.TrimRight(archiveURL, "/")
	}
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *EDGARClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *EDGARClient) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets the request rate.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *EDGARClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// NewEDGARClient creates a client for the public SEC endpoints.
func NewEDGARClient(opts ...ClientOption) *EDGARClient {
	c := &EDGARClient{
		dataURL:    DefaultDataURL,
		archiveURL: DefaultArchiveURL,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PadCIK zero-pads a CIK to the 10 digits the submissions API expects.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(strings.TrimSpace(cik), "0"))
}

// FetchCompanyInfo retrieves the submissions index of a company.
func (c *EDGARClient) FetchCompanyInfo(ctx context.Context, cik string) (*CompanyInfo, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, PadCIK(cik)), "application/json")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var info CompanyInfo
	if err := json.NewDecoder(body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse SEC response: %w", err)
	}
	if info.CIK == "" {
		info.CIK = PadCIK(cik)
	}
	return &info, nil
}

// Listings returns the filings of info whose base form is in forms (all
// forms when empty), newest first, at most limit when limit > 0.
func (c *EDGARClient) Listings(info *CompanyInfo, forms []filing.FormType, limit int) []Listing {
	recent := info.Filings.Recent
	out := make([]Listing, 0)

	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.PrimaryDocument) {
			break
		}
		if len(forms) > 0 && !hasForm(forms, recent.Form[i]) {
			continue
		}

		// Archive path: /Archives/edgar/data/{cik}/{accession-no-dashes}/{document}
		accession := recent.AccessionNumber[i]
		url := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.archiveURL,
			strings.TrimLeft(info.CIK, "0"), strings.ReplaceAll(accession, "-", ""), recent.PrimaryDocument[i])

		out = append(out, Listing{
			AccessionNumber: accession,
			Form:            recent.Form[i],
			FilingDate:      at(recent.FilingDate, i),
			ReportDate:      at(recent.ReportDate, i),
			URL:             url,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FetchDocument downloads a filing document. The caller closes the body.
func (c *EDGARClient) FetchDocument(ctx context.Context, url string) (io.ReadCloser, error) {
	return c.get(ctx, url, "text/html")
}

func (c *EDGARClient) get(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

func hasForm(forms []filing.FormType, raw string) bool {
	form, _ := filing.ParseFormType(raw)
	for _, f := range forms {
		if f == form {
			return true
		}
	}
	return false
}

func at(xs []string, i int) string {
	if i < len(xs) {
		return xs[i]
	}
	return ""
}
