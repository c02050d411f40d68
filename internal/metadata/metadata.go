// Package metadata reads a web page's title, description and preview image.
//
// The page is fetched once, converted to UTF-8 from whatever charset it
// declares, and parsed with goquery. Open Graph tags win over plain HTML
// where both exist, because sites tune them for link previews.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout = 10 * time.Second
	maxPageBytes   = 2 << 20
	userAgent      = "Mozilla/5.0 (compatible; linkstash/1.0)"
)

// ErrNotHTML is returned when the URL does not serve an HTML page.
var ErrNotHTML = errors.New("metadata: not an HTML page")

// Metadata is what could be extracted from a page. Fields are empty when the
// page does not provide them.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Empty reports whether nothing was found.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Description == "" && m.Image == ""
}

// HTTPFetcher downloads pages over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests give up after timeout
// (DefaultTimeout when zero).
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads rawURL and extracts its metadata.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata: building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Metadata{}, fmt.Errorf("metadata: fetching %s: status %d", rawURL, resp.StatusCode)
	}

	ctype := resp.Header.Get("Content-Type")
	if ctype != "" && !strings.Contains(ctype, "html") {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotHTML, ctype)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), ctype)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata: decoding %s: %w", rawURL, err)
	}

	return Parse(body, resp.Request.URL)
}

// Parse extracts metadata from an HTML document. base resolves relative
// image URLs and may be nil.
//
// Title:       og:title, then <title>, then the first <h1>
// Description: meta description, then og:description
// Image:       og:image, then twitter:image
func Parse(r io.Reader, base *url.URL) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata: parsing html: %w", err)
	}

	m := Metadata{
		Title: firstNonEmpty(
			metaContent(doc, "property", "og:title"),
			doc.Find("title").First().Text(),
			doc.Find("h1").First().Text(),
		),
		Description: firstNonEmpty(
			metaContent(doc, "name", "description"),
			metaContent(doc, "property", "og:description"),
		),
	}

	image := firstNonEmpty(
		metaContent(doc, "property", "og:image"),
		metaContent(doc, "name", "twitter:image"),
	)
	m.Image = resolveImage(image, base)
	return m, nil
}

func metaContent(doc *goquery.Document, attr, value string) string {
	content, _ := doc.Find(fmt.Sprintf("meta[%s=%q]", attr, value)).First().Attr("content")
	return content
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			return v
		}
	}
	return ""
}

// resolveImage makes image absolute against base and drops anything that is
// not http(s).
func resolveImage(image string, base *url.URL) string {
	if image == "" {
		return ""
	}
	u, err := url.Parse(image)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
