package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli"

	"filing_analyzer/pkg/core/analysis"
	"filing_analyzer/pkg/core/config"
	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/ingest"
	"filing_analyzer/pkg/core/report"
	"filing_analyzer/pkg/core/search"
	"filing_analyzer/pkg/core/store"
)

// app bundles what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	repo   store.Repository
	engine *analysis.Engine
}

var filterFlags = []cli.Flag{
	cli.StringFlag{Name: "form", Usage: "comma separated form types (10-K,10-Q,8-K)"},
	cli.StringFlag{Name: "from", Usage: "first filing date, inclusive"},
	cli.StringFlag{Name: "to", Usage: "last filing date, inclusive"},
}

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "analyzer"
	cliApp.Usage = "financial and text analysis of one company's filings"
	cliApp.Commands = []cli.Command{
		{
			Name:   "report",
			Usage:  "render the full analysis report",
			Flags:  append(filterFlags, formatFlag("markdown, html or json"), outFlag(), keywordsFlag()),
			Action: runReport,
		},
		{
			Name:      "search",
			Usage:     "search filing text for a phrase",
			ArgsUsage: "<query>",
			Flags: append(filterFlags,
				cli.BoolFlag{Name: "case-sensitive"},
				cli.BoolFlag{Name: "whole-word"},
				cli.IntFlag{Name: "limit", Value: 20, Usage: "matches to print, 0 for all"},
			),
			Action: runSearch,
		},
		{
			Name:  "keywords",
			Usage: "keyword mention trends",
			Flags: []cli.Flag{
				keywordsFlag(),
				cli.StringFlag{Name: "group", Usage: "keyword group: biotech, pipeline, risk or partnership"},
				cli.StringFlag{Name: "granularity", Value: string(search.GranularityYear), Usage: "year, quarter or period"},
				cli.BoolFlag{Name: "by-category", Usage: "aggregate per keyword category"},
				cli.BoolFlag{Name: "summary", Usage: "rank filings by group mentions instead"},
				formatFlag("text, json or csv"),
			},
			Action: runKeywords,
		},
		{
			Name:   "health",
			Usage:  "print the financial health score",
			Flags:  append(filterFlags, formatFlag("text or json")),
			Action: runHealth,
		},
		{
			Name:  "export",
			Usage: "export the metrics series and keyword trends as CSV",
			Flags: append(filterFlags,
				cli.StringFlag{Name: "metrics", Value: "metrics.csv", Usage: "metrics CSV path"},
				cli.StringFlag{Name: "keywords-out", Value: "keyword_trends.csv", Usage: "keyword trend CSV path"},
				keywordsFlag(),
			),
			Action: runExport,
		},
		{
			Name:      "ingest",
			Usage:     "parse a raw filing document and add it to the store",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "id", Usage: "filing id (accession number)"},
				cli.StringFlag{Name: "form", Value: "10-K"},
				cli.StringFlag{Name: "filed", Usage: "filing date"},
				cli.StringFlag{Name: "period-of-report", Usage: "period end date"},
				cli.StringFlag{Name: "fiscal-period", Usage: "fiscal period label, e.g. Q2 2023"},
			},
			Action: runIngest,
		},
		{
			Name:      "fetch",
			Usage:     "download filings from SEC EDGAR into the store",
			ArgsUsage: "<cik>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "form", Value: "10-K,10-Q,8-K", Usage: "comma separated form types"},
				cli.IntFlag{Name: "limit", Value: 20, Usage: "most recent filings to fetch, 0 for all"},
			},
			Action: runFetch,
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

func formatFlag(usage string) cli.Flag { return cli.StringFlag{Name: "format", Usage: usage} }
func outFlag() cli.Flag                { return cli.StringFlag{Name: "out", Usage: "output file (default stdout)"} }
func keywordsFlag() cli.Flag {
	return cli.StringFlag{Name: "keywords", Usage: "comma separated keywords (default biotech list)"}
}

// setup loads the configuration and opens the store.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(os.Stderr)

	scoring, err := cfg.Scoring()
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring config: %w", err)
	}
	searcher, err := search.NewEngine(cfg.SearchOptions())
	if err != nil {
		return nil, err
	}
	repo, err := store.Open(ctx, cfg.DatabaseURL, cfg.FilingsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open filing store: %w", err)
	}

	engine := analysis.NewEngine(repo, scoring, searcher, logger)
	engine.Company = cfg.CompanyName
	engine.Ticker = cfg.CompanyTicker
	return &app{cfg: cfg, logger: logger, repo: repo, engine: engine}, nil
}

func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, a)
}

func filterOf(c *cli.Context) (filing.Filter, error) {
	return filing.ParseFilter(splitList(c.String("form")), c.String("from"), c.String("to"))
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

func output(c *cli.Context) (io.Writer, func() error, error) {
	path := c.String("out")
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// COMMANDS
// =============================================================================

func runReport(c *cli.Context) error {
	return withApp(func(ctx context.Context, a *app) error {
		filter, err := filterOf(c)
		if err != nil {
			return err
		}
		rep, err := report.Generate(ctx, a.engine, filter, splitList(c.String("keywords")), search.GranularityYear)
		if err != nil {
			return err
		}

		w, closeOut, err := output(c)
		if err != nil {
			return err
		}
		defer closeOut()

		switch c.String("format") {
		case "", "markdown", "md":
			_, err = io.WriteString(w, report.Markdown(rep))
		case "html":
			var html string
			if html, err = report.HTML(rep); err == nil {
				_, err = io.WriteString(w, html)
			}
		case "json":
			err = printJSON(w, rep)
		default:
			err = fmt.Errorf("%w: unknown format %q", filing.ErrInvalidConfiguration, c.String("format"))
		}
		if err == nil {
			a.logger.Info("report written", "run_id", rep.ID)
		}
		return err
	})
}

func runSearch(c *cli.Context) error {
	query := strings.Join(c.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: a search query is required", filing.ErrInvalidConfiguration)
	}
	return withApp(func(ctx context.Context, a *app) error {
		filter, err := filterOf(c)
		if err != nil {
			return err
		}

		opts := a.cfg.SearchOptions()
		opts.CaseSensitive = c.Bool("case-sensitive")
		opts.WholeWord = c.Bool("whole-word")
		searcher, err := search.NewEngine(opts)
		if err != nil {
			return err
		}
		records, err := a.engine.Records(ctx, filter)
		if err != nil {
			return err
		}
		matches, err := searcher.Search(records, query, filter)
		if err != nil {
			return err
		}

		fmt.Printf("%d match(es) for %q\n\n", len(matches), query)
		for i, m := range matches {
			if limit := c.Int("limit"); limit > 0 && i == limit {
				fmt.Printf("... %d more\n", len(matches)-limit)
				break
			}
			fmt.Printf("[%s] %s %s · %s · %s\n", m.FilingDate.Format("2006-01-02"), m.Form, m.FilingID, m.Section, m.Category)
			fmt.Printf("    ...%s...\n\n", strings.Join(strings.Fields(m.Context()), " "))
		}
		return nil
	})
}

func runKeywords(c *cli.Context) error {
	return withApp(func(ctx context.Context, a *app) error {
		keywords := splitList(c.String("keywords"))
		group := c.String("group")

		if c.Bool("summary") {
			if group == "" {
				group = search.GroupBiotech
			}
			summary, err := a.engine.GroupSummary(ctx, group, filing.Filter{})
			if err != nil {
				return err
			}
			if c.String("format") == "json" {
				return printJSON(os.Stdout, summary)
			}
			for _, fm := range summary {
				fmt.Printf("%-24s %-5s %s  mentions=%d score=%d  %s\n", fm.FilingID, fm.Form,
					fm.FilingDate.Format("2006-01-02"), fm.Mentions, fm.Score, strings.Join(fm.Keywords, ", "))
			}
			return nil
		}

		if group != "" {
			kws, err := search.KeywordGroup(group)
			if err != nil {
				return err
			}
			keywords = append(keywords, kws...)
		}
		if len(keywords) == 0 {
			keywords = append(keywords, search.BiotechKeywords...)
		}
		g, err := search.ParseGranularity(c.String("granularity"))
		if err != nil {
			return err
		}

		var trends []search.KeywordTrend
		if c.Bool("by-category") {
			trends, err = a.engine.CategoryTrends(ctx, keywords, g)
		} else {
			trends, err = a.engine.KeywordTrends(ctx, keywords, g)
		}
		if err != nil {
			return err
		}

		switch c.String("format") {
		case "json":
			return printJSON(os.Stdout, trends)
		case "csv":
			return report.WriteKeywordTrendsCSV(os.Stdout, trends)
		}
		for _, kt := range trends {
			var parts []string
			for _, p := range kt.Points {
				parts = append(parts, fmt.Sprintf("%s=%d", p.Bucket, p.Mentions))
			}
			fmt.Printf("%-24s %-22s total=%-5d %s\n", kt.Key, kt.Category, kt.Total, strings.Join(parts, " "))
		}
		return nil
	})
}

func runHealth(c *cli.Context) error {
	return withApp(func(ctx context.Context, a *app) error {
		filter, err := filterOf(c)
		if err != nil {
			return err
		}
		an, err := a.engine.Analyze(ctx, filter)
		if err != nil {
			return err
		}
		s := an.Health
		if c.String("format") == "json" {
			return printJSON(os.Stdout, s)
		}
		if s.Overall == nil {
			fmt.Println("Health score: insufficient data")
			return nil
		}
		fmt.Printf("Health score %.1f (grade %s) as of %s\n", *s.Overall, s.Grade, s.AsOf)
		for _, name := range health.Components {
			comp, ok := s.Components[name]
			if !ok {
				continue
			}
			if !comp.Computed {
				fmt.Printf("  %-18s n/a\n", comp.Component)
				continue
			}
			fmt.Printf("  %-18s %6.1f  input=%.2f  weight=%.2f\n", comp.Component, comp.Score, *comp.Input, comp.EffectiveWeight)
		}
		return nil
	})
}

func runExport(c *cli.Context) error {
	return withApp(func(ctx context.Context, a *app) error {
		filter, err := filterOf(c)
		if err != nil {
			return err
		}
		an, err := a.engine.Analyze(ctx, filter)
		if err != nil {
			return err
		}
		if err := writeFile(c.String("metrics"), func(w io.Writer) error {
			return report.WriteMetricsCSV(w, an.Series)
		}); err != nil {
			return err
		}

		keywords := splitList(c.String("keywords"))
		if len(keywords) == 0 {
			keywords = append(keywords, search.BiotechKeywords...)
		}
		trends, err := a.engine.KeywordTrends(ctx, keywords, search.GranularityYear)
		if err != nil {
			return err
		}
		if err := writeFile(c.String("keywords-out"), func(w io.Writer) error {
			return report.WriteKeywordTrendsCSV(w, trends)
		}); err != nil {
			return err
		}
		a.logger.Info("export complete", "periods", len(an.Series), "keywords", len(trends))
		return nil
	})
}

func runIngest(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("%w: a filing document is required", filing.ErrInvalidConfiguration)
	}
	return withApp(func(ctx context.Context, a *app) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		meta := ingest.Metadata{
			ID:             c.String("id"),
			Form:           c.String("form"),
			FilingDate:     c.String("filed"),
			PeriodOfReport: c.String("period-of-report"),
			FiscalPeriod:   c.String("fiscal-period"),
		}
		rec, err := ingest.NewParser().Parse(meta, f)
		if err != nil {
			return err
		}
		if err := a.repo.SaveFiling(ctx, rec); err != nil {
			return err
		}
		a.logger.Info("filing ingested", "filing_id", rec.ID, "form", rec.Form,
			"sections", len(rec.Sections), "fields", len(rec.Fields))
		return nil
	})
}

func runFetch(c *cli.Context) error {
	cik := c.Args().First()
	if cik == "" {
		return fmt.Errorf("%w: a CIK is required", filing.ErrInvalidConfiguration)
	}
	filter, err := filing.ParseFilter(splitList(c.String("form")), "", "")
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		client := ingest.NewEDGARClient(ingest.WithUserAgent(a.cfg.SECUserAgent))
		fetcher := ingest.NewFetcher(client, ingest.NewParser(), a.repo, a.logger)
		res, err := fetcher.Fetch(ctx, cik, filter.FormTypes, c.Int("limit"))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d listed, %d saved, %d skipped\n", res.Company, res.Listed, len(res.Saved), len(res.Failed))
		return nil
	})
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
