// Package nuforc scrapes the monthly report tables published by the
// National UFO Reporting Center.
package nuforc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

const (
	// DefaultIndexURL lists one link per month, newest first.
	DefaultIndexURL = "http://www.nuforc.org/webreports/ndxevent.html"

	// DefaultMonths is how many monthly pages are fetched.
	DefaultMonths = 12

	userAgent = "sightings-etl/1.0 (+https://github.com/couchcryptid/sightings-etl)"
)

// Config controls what the scraper fetches.
type Config struct {
	IndexURL string
	// BaseURL resolves the index links. Defaults to IndexURL.
	BaseURL string
	Months  int
	Timeout time.Duration
}

// Scraper walks the event index and extracts report rows.
type Scraper struct {
	client   *http.Client
	indexURL string
	base     *url.URL
	months   int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewScraper creates a scraper. Zero Config fields take the package defaults.
func NewScraper(cfg Config, logger *slog.Logger, metrics *observability.Metrics) (*Scraper, error) {
	if cfg.IndexURL == "" {
		cfg.IndexURL = DefaultIndexURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = cfg.IndexURL
	}
	if cfg.Months <= 0 {
		cfg.Months = DefaultMonths
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &headerRoundTripper{
				transport: http.DefaultTransport,
				headers:   map[string]string{"User-Agent": userAgent},
			},
		},
		indexURL: cfg.IndexURL,
		base:     base,
		months:   cfg.Months,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Scrape fetches the index and the most recent monthly pages and returns
// every report row found, in page order.
func (s *Scraper) Scrape(ctx context.Context) ([]domain.RawSighting, error) {
	links, err := s.MonthlyPages(ctx)
	if err != nil {
		return nil, err
	}

	var all []domain.RawSighting
	for _, link := range links {
		rows, err := s.ScrapePage(ctx, link.URL)
		if err != nil {
			return nil, fmt.Errorf("scrape %s: %w", link.Month.Format("01/2006"), err)
		}
		all = append(all, rows...)
	}
	return all, nil
}

// MonthlyPages returns the first Months month links of the index.
func (s *Scraper) MonthlyPages(ctx context.Context) ([]MonthLink, error) {
	doc, err := s.fetch(ctx, s.indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	links := parseIndexLinks(doc, s.base, s.months)
	s.logger.Info("found monthly pages", "index", s.indexURL, "pages", len(links))
	return links, nil
}

// ScrapePage returns the report rows of one monthly page.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) ([]domain.RawSighting, error) {
	s.logger.Info("processing", "url", pageURL)
	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	rows := parseReportRows(doc)
	s.metrics.PagesScraped.Inc()
	s.metrics.RowsScraped.Add(float64(len(rows)))
	s.logger.Debug("page rows", "url", pageURL, "rows", len(rows))
	return rows, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	r, err := asReader(resp)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}
