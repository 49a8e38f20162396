package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxPages mirrors the server's page bound.
const maxPages = 1000

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: %d %s", ErrStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(body, v)
}

func (c *client) health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/healthz", &body); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, body.Status)
	}
	return nil
}

// walk fetches every page of one ranking in one order.
func (c *client) walk(ctx context.Context, t Target, sort string) ([]Meta, []Item, error) {
	var (
		metas []Meta
		items []Item
	)
	for page := 1; page <= maxPages; page++ {
		var p rankingPage
		if err := c.get(ctx, withQuery(t.Path(), sort, page), &p); err != nil {
			return nil, nil, err
		}
		metas = append(metas, p.Meta)
		items = append(items, p.Data...)
		if page >= p.Meta.TotalPages {
			break
		}
	}
	return metas, items, nil
}

func withQuery(path, sort string, page int) string {
	q := url.Values{}
	q.Set("sort", sort)
	q.Set("page", strconv.Itoa(page))
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path + "&" + q.Encode()
	}
	return path + "?" + q.Encode()
}
