package nuforc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

const indexPage = `<html><body>
<table>
<tr><th>Month</th><th>Count</th></tr>
<tr><td><a href="ndxe201506.html">06/2015</a></td><td>2</td></tr>
<tr><td><a href="ndxe201505.html">05/2015</a></td><td>1</td></tr>
<tr><td><a href="ndxe201504.html">04/2015</a></td><td>0</td></tr>
</table>
<a href="ndxshape.html">Shape</a>
<a href="index.html">Home</a>
</body></html>`

const junePage = `<html><body>
<table>
<thead><tr><th>Date / Time</th><th>City</th><th>State</th><th>Shape</th><th>Duration</th><th>Summary</th><th>Posted</th></tr></thead>
<tbody>
<tr><td><a href="/webreports/120/S120361.html">6/30/15 23:50</a></td><td>Austin</td><td>TX</td><td>Fireball</td><td>45 minutes</td><td>Orange ball of light</td><td>7/3/15</td></tr>
<tr><td>6/29/15</td><td>Toronto</td><td>ON</td><td></td><td>30s</td><td>Flash</td><td>7/3/15</td></tr>
<tr><td>not a date</td><td>Nowhere</td><td>XX</td><td>Disk</td><td>a while</td><td></td><td></td></tr>
<tr><td>short row</td></tr>
</tbody>
</table>
</body></html>`

const mayPage = `<html><body><table>
<tr><th>Date / Time</th></tr>
<tr><td>5/1/15 21:00</td><td>Paris</td><td>IDF</td><td>Light</td><td>2 hours</td><td></td><td></td></tr>
</table></body></html>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newNUFORCServer(t *testing.T, seenAgents *[]string) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/webreports/ndxevent.html":   indexPage,
		"/webreports/ndxe201506.html": junePage,
		"/webreports/ndxe201505.html": mayPage,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seenAgents != nil {
			*seenAgents = append(*seenAgents, r.Header.Get("User-Agent"))
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScraper_Scrape(t *testing.T) {
	var agents []string
	srv := newNUFORCServer(t, &agents)
	metrics := observability.NewMetricsForTesting()

	s, err := NewScraper(Config{IndexURL: srv.URL + "/webreports/ndxevent.html", Months: 2}, discardLogger(), metrics)
	require.NoError(t, err)

	rows, err := s.Scrape(context.Background())
	require.NoError(t, err)

	want := []domain.RawSighting{
		{DateStr: "2015-06-30 23:50:00", City: "Austin", State: "TX", Shape: "Fireball", Duration: "45 minutes"},
		{DateStr: "2015-06-29 00:00:00", City: "Toronto", State: "ON", Shape: "", Duration: "30s"},
		{DateStr: "", City: "Nowhere", State: "XX", Shape: "Disk", Duration: "a while"},
		{DateStr: "2015-05-01 21:00:00", City: "Paris", State: "IDF", Shape: "Light", Duration: "2 hours"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Scrape() mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.PagesScraped), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.RowsScraped), 0)
	require.NotEmpty(t, agents)
	for _, a := range agents {
		assert.Equal(t, userAgent, a)
	}
}

func TestScraper_MonthlyPagesLimitAndOrder(t *testing.T) {
	srv := newNUFORCServer(t, nil)

	s, err := NewScraper(Config{IndexURL: srv.URL + "/webreports/ndxevent.html", Months: 12}, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)

	links, err := s.MonthlyPages(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 3, "non-month links are skipped")

	assert.Equal(t, srv.URL+"/webreports/ndxe201506.html", links[0].URL)
	assert.Equal(t, "06/2015", links[0].Month.Format("01/2006"))
	assert.Equal(t, srv.URL+"/webreports/ndxe201504.html", links[2].URL)
}

func TestScraper_BaseURLOverride(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(indexPage))
	require.NoError(t, err)
	base, err := url.Parse("http://mirror.example.org/reports/")
	require.NoError(t, err)

	links := parseIndexLinks(doc, base, 1)
	require.Len(t, links, 1)
	assert.Equal(t, "http://mirror.example.org/reports/ndxe201506.html", links[0].URL)
}

func TestScraper_MissingPageIsError(t *testing.T) {
	srv := newNUFORCServer(t, nil)

	s, err := NewScraper(Config{IndexURL: srv.URL + "/webreports/ndxevent.html", Months: 3}, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)

	_, err = s.Scrape(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "04/2015")
	assert.Contains(t, err.Error(), "404")
}

func TestParseReportRows_DecodesLegacyCharset(t *testing.T) {
	// "Montréal" encoded as windows-1252.
	body := "<table><tr><td>1/2/15</td><td>Montr\xe9al</td><td>QC</td><td>Light</td><td>5 min</td></tr></table>"
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=windows-1252"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	r, err := asReader(resp)
	require.NoError(t, err)
	doc, err := html.Parse(r)
	require.NoError(t, err)

	rows := parseReportRows(doc)
	require.Len(t, rows, 1)
	assert.Equal(t, "Montréal", rows[0].City)
}

func TestNodeText_CollapsesWhitespace(t *testing.T) {
	doc, err := html.Parse(strings.NewReader("<p>  Orange\n  ball <b>of</b>\tlight </p>"))
	require.NoError(t, err)
	assert.Equal(t, "Orange ball of light", nodeText(doc))
}
