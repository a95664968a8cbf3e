package nuforc

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// monthLinkLayout matches the index link text, e.g. "06/2015" or "6/2015".
const monthLinkLayout = "1/2006"

// reportColumns is the minimum number of cells in a report row:
// date, city, state, shape, duration.
const reportColumns = 5

// MonthLink is one entry of the event index.
type MonthLink struct {
	Month time.Time
	URL   string
}

// asReader decodes an HTML response body into UTF-8.
func asReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	return r, nil
}

// walk calls fn for n and every descendant in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// nodeText returns the text content of n with whitespace runs collapsed.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

// parseIndexLinks returns the links whose text is a month ("06/2015"), in
// page order, at most limit of them. hrefs are resolved against base.
func parseIndexLinks(doc *html.Node, base *url.URL, limit int) []MonthLink {
	var links []MonthLink
	walk(doc, func(n *html.Node) {
		if limit > 0 && len(links) >= limit {
			return
		}
		if !isElement(n, atom.A) {
			return
		}
		month, err := time.Parse(monthLinkLayout, nodeText(n))
		if err != nil {
			return
		}
		href, err := url.Parse(strings.TrimSpace(attr(n, "href")))
		if err != nil || href.String() == "" {
			return
		}
		links = append(links, MonthLink{Month: month, URL: base.ResolveReference(href).String()})
	})
	return links
}

// parseReportRows extracts one RawSighting per table row that has data
// cells. Header rows (th only) and short rows are skipped. Dates are
// rewritten to domain.StartLayout, or left empty when they do not parse.
func parseReportRows(doc *html.Node) []domain.RawSighting {
	var rows []domain.RawSighting
	walk(doc, func(n *html.Node) {
		if !isElement(n, atom.Tr) {
			return
		}
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c, atom.Td) {
				cells = append(cells, nodeText(c))
			}
		}
		if len(cells) < reportColumns {
			return
		}

		var dateStr string
		if t, ok := domain.StandardizeReportDate(cells[0]); ok {
			dateStr = t.Format(domain.StartLayout)
		}
		rows = append(rows, domain.RawSighting{
			DateStr:  dateStr,
			City:     cells[1],
			State:    cells[2],
			Shape:    cells[3],
			Duration: cells[4],
		})
	})
	return rows
}
