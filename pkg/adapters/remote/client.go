// Package remote talks to the remote authority over HTTP+JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/quotesync/pkg/core"
)

// Dialect selects how remote payloads map onto records.
type Dialect string

const (
	// DialectRecords expects {id, text, category, updatedAt} objects.
	DialectRecords Dialect = "records"
	// DialectPosts reads jsonplaceholder-style posts: title becomes the
	// text, every record gets the fixed category and the client clock.
	DialectPosts Dialect = "posts"
)

// ProvisionalPrefix marks ids synthesised locally because the server sent none.
const ProvisionalPrefix = "local-"

const (
	defaultTimeout      = 10 * time.Second
	defaultPostsLimit   = 5
	defaultMaxBodyBytes = 4 << 20
	defaultPostCategory = "Mock API"
)

// Config holds the configuration for the HTTP client.
type Config struct {
	BaseURL string
	Path    string // records endpoint; defaults to "/records", or "/posts" for DialectPosts
	Dialect Dialect
	Timeout time.Duration
	// Limit bounds the snapshot size. Zero means unbounded (5 for DialectPosts).
	Limit int
	// Category is assigned to every record in DialectPosts.
	Category string
	// MaxBodyBytes caps a response body; a larger one is a decode error.
	// Defaults to 4 MiB.
	MaxBodyBytes int64
	HTTPClient   *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// Client implements core.Remote.
type Client struct {
	endpoint   string
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new remote client.
func NewClient(config Config) *Client {
	if config.Dialect == "" {
		config.Dialect = DialectRecords
	}
	if config.Path == "" {
		config.Path = "/records"
		if config.Dialect == DialectPosts {
			config.Path = "/posts"
		}
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.Dialect == DialectPosts {
		if config.Limit == 0 {
			config.Limit = defaultPostsLimit
		}
		if config.Category == "" {
			config.Category = defaultPostCategory
		}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		endpoint:   strings.TrimRight(config.BaseURL, "/") + "/" + strings.TrimLeft(config.Path, "/"),
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// wireRecord accepts both dialects; unknown fields are ignored.
type wireRecord struct {
	ID        any          `json:"id"`
	Text      *string      `json:"text"`
	Title     *string      `json:"title"`
	Category  *string      `json:"category"`
	UpdatedAt *json.Number `json:"updatedAt"`
}

// FetchSnapshot retrieves the records known to the remote side.
//
// A payload that is not a JSON array fails with core.ErrDecode. Elements
// that cannot be mapped to a valid record are skipped with a warning and
// the rest of the snapshot is returned.
func (c *Client) FetchSnapshot(ctx context.Context) ([]core.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", core.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	// Unmarshal accepts null into a slice; only a literal array is a snapshot.
	if trimmed := bytes.TrimLeft(body, " \t\r\n"); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: snapshot is not an array", core.ErrDecode)
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, fmt.Errorf("%w: snapshot is not an array: %v", core.ErrDecode, err)
	}

	now := c.config.Now().UnixMilli()
	records := make([]core.Record, 0, len(elements))
	for i, raw := range elements {
		if c.config.Limit > 0 && len(records) >= c.config.Limit {
			break
		}
		r, err := c.mapElement(raw, now)
		if err != nil {
			c.logger.Warn("skipping remote element", "index", i, "error", err)
			continue
		}
		records = append(records, r)
	}

	c.logger.Debug("snapshot fetched", "endpoint", c.endpoint, "elements", len(elements), "records", len(records))
	return records, nil
}

func (c *Client) mapElement(raw json.RawMessage, now int64) (core.Record, error) {
	w, err := decodeWire(raw)
	if err != nil {
		return core.Record{}, err
	}

	id, err := canonicalID(w.ID)
	if err != nil {
		return core.Record{}, err
	}

	r := core.Record{ID: id}
	switch c.config.Dialect {
	case DialectPosts:
		r.Text = deref(w.Title)
		r.Category = c.config.Category
		r.UpdatedAt = now
	default:
		r.Text = deref(w.Text)
		r.Category = deref(w.Category)
		if w.UpdatedAt != nil {
			ts, err := w.UpdatedAt.Int64()
			if err != nil {
				return core.Record{}, fmt.Errorf("%w: updatedAt %q: %v", core.ErrDecode, w.UpdatedAt.String(), err)
			}
			r.UpdatedAt = ts
		}
	}

	if err := r.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("%w: %v", core.ErrDecode, err)
	}
	return r, nil
}

// Submit posts a draft and returns the record confirmed by the server.
//
// If the response carries no id, a provisional one is synthesised. That is
// a best-effort mode: it may collide with an id the server assigns later.
func (c *Client) Submit(ctx context.Context, d core.Draft) (core.Record, error) {
	if err := d.Validate(); err != nil {
		return core.Record{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(d)
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to marshal draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: failed to create request: %v", core.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return core.Record{}, err
	}

	w, err := decodeWire(body)
	if err != nil {
		return core.Record{}, err
	}

	r := core.Record{
		Text:      d.Text,
		Category:  d.Category,
		UpdatedAt: c.config.Now().UnixMilli(),
	}
	if w.ID == nil {
		r.ID = ProvisionalPrefix + uuid.NewString()
		c.logger.Warn("server returned no id, using provisional identity", "id", r.ID)
	} else if r.ID, err = canonicalID(w.ID); err != nil {
		return core.Record{}, err
	}

	if c.config.Dialect == DialectRecords {
		if v := deref(w.Text); v != "" {
			r.Text = v
		}
		if v := deref(w.Category); v != "" {
			r.Category = v
		}
		if w.UpdatedAt != nil {
			if ts, err := w.UpdatedAt.Int64(); err == nil {
				r.UpdatedAt = ts
			}
		}
	}

	c.logger.Debug("record submitted", "id", r.ID)
	return r, nil
}

// do executes the request and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", core.ErrNetwork, req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", core.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := body
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, fmt.Errorf("%w: %s %s returned %d: %s", core.ErrNetwork, req.Method, req.URL, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", core.ErrDecode, c.config.MaxBodyBytes)
	}
	return body, nil
}

func decodeWire(raw []byte) (wireRecord, error) {
	var w wireRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return wireRecord{}, fmt.Errorf("%w: %v", core.ErrDecode, err)
	}
	return w, nil
}

// canonicalID maps string or numeric ids to their string form.
func canonicalID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("%w: empty id", core.ErrDecode)
		}
		return id, nil
	case json.Number:
		return id.String(), nil
	case nil:
		return "", fmt.Errorf("%w: missing id", core.ErrDecode)
	default:
		return "", fmt.Errorf("%w: unsupported id type %T", core.ErrDecode, v)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ core.Remote = (*Client)(nil)
