// Package linkmeta fetches the title and icon of a web page for bookmarks.
package linkmeta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; MyAccountBot/1.0)"
	maxPageBytes = 1 << 20
	maxIconBytes = 256 << 10
)

// ErrNoTitle is returned when the page has no usable <title>.
var ErrNoTitle = errors.New("page has no title")

// Fetcher retrieves page metadata over HTTP.
type Fetcher struct {
	client *http.Client
	// iconBase overrides the scheme and host icons are fetched from. Tests only.
	iconBase string
}

// New returns a Fetcher whose requests time out after timeout.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
	}
}

// Title returns the whitespace-collapsed content of the page's <title>.
func (f *Fetcher) Title(ctx context.Context, pageURL string) (string, error) {
	body, _, err := f.get(ctx, pageURL, maxPageBytes)
	if err != nil {
		return "", err
	}
	title := ParseTitle(body)
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

// Icon downloads the site icon of pageURL. It returns the image bytes and a
// file extension ("ico" or "png").
func (f *Fetcher) Icon(ctx context.Context, pageURL string) ([]byte, string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, "", fmt.Errorf("invalid url %q", pageURL)
	}
	base := "https://" + u.Host
	if f.iconBase != "" {
		base = f.iconBase
	}
	var errs []error
	for _, p := range []string{"/favicon.ico", "/apple-touch-icon.png", "/apple-touch-icon-precomposed.png"} {
		data, _, err := f.get(ctx, base+p, maxIconBytes)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		mt := mimetype.Detect(data)
		switch {
		case mt.Is("image/png"):
			return data, "png", nil
		case mt.Is("image/x-icon"), mt.Is("image/vnd.microsoft.icon"):
			return data, "ico", nil
		default:
			errs = append(errs, fmt.Errorf("%s: not an icon (%s)", p, mt.String()))
		}
	}
	return nil, "", fmt.Errorf("no icon for %s: %w", u.Host, errors.Join(errs...))
}

func (f *Fetcher) get(ctx context.Context, u string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", u, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// ParseTitle returns the text of the first <title> element of an HTML
// document, or "" when there is none.
func ParseTitle(doc []byte) string {
	z := html.NewTokenizer(strings.NewReader(string(doc)))
	inTitle := false
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapse(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && string(name) == "title" {
				return collapse(b.String())
			}
		case html.TextToken:
			if inTitle {
				b.Write(z.Text())
			}
		case html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
