package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
)

// The center's site rejects bare clients, so requests carry a browser UA.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/81.0.4044.138 Safari/537.36"

// ErrFetch wraps any network or parse failure. Callers must treat it as "no
// data this tick", never as "inventory sufficient".
var ErrFetch = errors.New("inventory fetch failed")

// Client fetches and parses the donor center's public inventory page.
type Client struct {
	http *http.Client
	url  string
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		url:  url,
	}
}

// Fetch downloads the page and extracts the eight per-slot status values.
func (c *Client) Fetch(ctx context.Context) (domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return snapshotFromDoc(doc)
}

// snapshotFromDoc reads the h4 entries in page order: I..IV positive first,
// then I..IV negative. Fewer entries than slots means the layout changed and
// the whole fetch is rejected.
func snapshotFromDoc(doc *goquery.Document) (domain.Snapshot, error) {
	var values []string
	doc.Find("h4").Each(func(_ int, sel *goquery.Selection) {
		values = append(values, strings.TrimSpace(sel.Text()))
	})

	keys := domain.AllKeys()
	if len(values) < len(keys) {
		return nil, fmt.Errorf("%w: got %d h4 entries, want %d", ErrFetch, len(values), len(keys))
	}

	snap := make(domain.Snapshot, len(keys))
	for i, k := range keys {
		snap[k] = normalizeStatus(values[i])
	}
	return snap, nil
}

// normalizeStatus folds the page's wording into the evaluator's vocabulary.
// Only «достатньо» means stocked; unrecognized wording passes through
// lowercased and reads as a shortage.
func normalizeStatus(s string) domain.Status {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "достатньо", "достатня кількість", string(domain.StatusSufficient):
		return domain.StatusSufficient
	}
	return domain.Status(s)
}
