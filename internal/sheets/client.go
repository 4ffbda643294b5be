// Package sheets talks to the spreadsheet-backed table API that stores
// questions and answers. Every call is a GET with action/table/data parameters
// and the reply is JSON, sometimes wrapped as JSONP.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultRequestDelay = time.Second
	DefaultTimeout      = 30 * time.Second
)

// jsonpPrefix is what the API emits when no callback name is supplied.
const jsonpPrefix = "undefined("

// Row is one table row. Every value is rendered as a string.
type Row map[string]string

// Config configures a Client.
type Config struct {
	URL string

	// RequestDelay is waited before every call. Zero disables it.
	RequestDelay time.Duration
	Timeout      time.Duration
}

// Client reads and inserts table rows.
type Client struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	logger     *slog.Logger
}

// NewClient creates a client for the API at cfg.URL.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("table api url not set")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid table api url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		delay:      cfg.RequestDelay,
		logger:     logger,
	}, nil
}

// Read returns every row of table in the order the API lists them.
func (c *Client) Read(ctx context.Context, table string) ([]Row, error) {
	body, err := c.call(ctx, url.Values{
		"action": {"read"},
		"table":  {table},
	})
	if err != nil {
		return nil, err
	}

	data := body.Get("data")
	rows := make([]Row, 0, len(data.Array()))
	for _, item := range data.Array() {
		if !item.IsObject() {
			c.logger.Debug("Skipping non-object row", "table", table, "row", item.Raw)
			continue
		}
		row := Row{}
		item.ForEach(func(key, value gjson.Result) bool {
			row[key.String()] = value.String()
			return true
		})
		rows = append(rows, row)
	}
	return rows, nil
}

// Insert appends one row to table. row is encoded as JSON without HTML escaping.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(row); err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	_, err := c.call(ctx, url.Values{
		"action": {"insert"},
		"table":  {table},
		"data":   {strings.TrimSuffix(buf.String(), "\n")},
	})
	return err
}

// call performs one throttled request and validates the success flag.
func (c *Client) call(ctx context.Context, params url.Values) (gjson.Result, error) {
	if err := c.wait(ctx); err != nil {
		return gjson.Result{}, err
	}

	c.logger.Debug("Table API request", "action", params.Get("action"), "table", params.Get("table"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	q := req.URL.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	c.logger.Debug("Table API response", "status", resp.StatusCode, "body", preview(raw, 200))

	return parse(raw)
}

// parse unwraps JSONP and checks the success flag.
func parse(raw []byte) (gjson.Result, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return gjson.Result{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if strings.HasPrefix(text, jsonpPrefix) && strings.HasSuffix(text, ")") {
		text = text[len(jsonpPrefix) : len(text)-1]
	}
	if !gjson.Valid(text) {
		return gjson.Result{}, fmt.Errorf("%w: not json: %s", ErrMalformedResponse, preview([]byte(text), 200))
	}

	body := gjson.Parse(text)
	success := body.Get("success")
	if !success.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: no success flag", ErrMalformedResponse)
	}
	if !success.Bool() {
		reason := body.Get("data.error").String()
		if reason == "" {
			reason = body.Get("error").String()
		}
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	return body, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func preview(b []byte, n int) string {
	r := []rune(string(b))
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
