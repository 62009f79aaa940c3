package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 30 * time.Second

// DefaultMaxRows is the max-rows setting of a hosted project: no response
// carries more rows, whatever the Range header asks for.
const DefaultMaxRows = 1000

var (
	_ table.Querier   = (*Client)(nil)
	_ table.RowCapper = (*Client)(nil)
)

// ErrNotConfigured is returned when the endpoint URL or key is missing.
var ErrNotConfigured = errors.New("postgrest: url and api key are required")

// APIError is a non-2xx response from the endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest: %d: %s", e.Status, e.Message)
}

// Client reads tables through the PostgREST interface of a hosted
// (Supabase) project.
type Client struct {
	baseURL string
	apiKey  string
	maxRows int
	http    *http.Client
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithMaxRows overrides DefaultMaxRows for a self-hosted endpoint.
func WithMaxRows(n int) Option {
	return func(c *Client) { c.maxRows = n }
}

// New creates a client for the project at baseURL (e.g.
// https://xyz.supabase.co) authenticated with apiKey.
func New(baseURL, apiKey string, log zerolog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("postgrest: parse url: %w", err)
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		maxRows: DefaultMaxRows,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     log.With().Str("component", "postgrest").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// MaxRows implements table.RowCapper.
func (c *Client) MaxRows() int {
	return c.maxRows
}

// Select issues GET /rest/v1/{table} with the query encoded as PostgREST
// filter parameters and the row window in the Range header.
func (c *Client) Select(ctx context.Context, tbl string, q table.Query) (json.RawMessage, error) {
	if err := table.ValidateIdent(tbl); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/"+tbl+"?"+Params(q).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("postgrest: build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if q.HasRange {
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", q.From, q.To))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postgrest: %s: %w", tbl, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("postgrest: read %s body: %w", tbl, err)
	}

	c.log.Debug().
		Str("table", tbl).
		Int("status", resp.StatusCode).
		Int("from", q.From).
		Int("to", q.To).
		Dur("duration", time.Since(start)).
		Msg("select")

	// A window that starts past the last row is "not satisfiable": that is an
	// empty page, not a failure.
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		return json.RawMessage("[]"), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return json.RawMessage(body), nil
}

// Params encodes q as PostgREST query parameters.
func Params(q table.Query) url.Values {
	v := url.Values{}
	v.Set("select", "*")
	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+f.Value)
	}
	if q.ILike != nil {
		v.Add(q.ILike.Column, "ilike.*"+q.ILike.Value+"*")
	}
	var order []string
	if q.OrderBy != "" {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		order = append(order, q.OrderBy+"."+dir)
	}
	for _, c := range q.Ties {
		order = append(order, c+".asc")
	}
	if len(order) > 0 {
		v.Set("order", strings.Join(order, ","))
	}
	return v
}

func decodeError(status int, body []byte) error {
	var pe struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &pe); err == nil && pe.Message != "" {
		msg := pe.Message
		if pe.Details != "" {
			msg += " (" + pe.Details + ")"
		}
		return &APIError{Status: status, Code: pe.Code, Message: msg}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}
