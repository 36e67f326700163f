package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/hotstate/store"
)

// Client is a store.Store talking to a Handler.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a Client for the server at baseURL. A nil hc uses a
// client with a 10s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) url(slot string) string {
	return c.base + "/snapshots/" + url.PathEscape(slot)
}

func (c *Client) Save(ctx context.Context, slot string, blob []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(slot), bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("httpstore: save: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req, "save")
	return err
}

func (c *Client) Load(ctx context.Context, slot string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(slot), nil)
	if err != nil {
		return nil, fmt.Errorf("httpstore: load: %w", err)
	}
	return c.do(req, "load")
}

func (c *Client) Clear(ctx context.Context, slot string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url(slot), nil)
	if err != nil {
		return fmt.Errorf("httpstore: clear: %w", err)
	}
	_, err = c.do(req, "clear")
	return err
}

func (c *Client) Slots(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/snapshots", nil)
	if err != nil {
		return nil, fmt.Errorf("httpstore: slots: %w", err)
	}
	body, err := c.do(req, "slots")
	if err != nil {
		return nil, err
	}
	var out struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("httpstore: slots: decode: %w", err)
	}
	return out.Slots, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpstore: %s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpstore: %s: read body: %w", op, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound && op == "load":
		return nil, store.ErrNotFound
	case resp.StatusCode >= 300:
		var e struct {
			Error string `json:"error"`
		}
		json.Unmarshal(body, &e)
		return nil, fmt.Errorf("httpstore: %s: HTTP %d: %s", op, resp.StatusCode, e.Error)
	}
	return body, nil
}
