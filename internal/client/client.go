// Package client builds and executes typed REST queries against the
// backend: schema fetch, listings with filters/sort/pagination, single-row
// reads keyed by primary key, and create/update/delete with encoded record
// bodies. Transport and API error shapes are translated into the errs
// taxonomy; nothing here retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/filter"
	"github.com/koustreak/restadmin/internal/logger"
	"github.com/koustreak/restadmin/internal/record"
	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

// Client talks to one backend host. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
	auth *AuthCell
	log  *logger.Logger

	// schema is set by FetchSchema and read-only afterwards; it types
	// select projections and lazily validates foreign-key references.
	schema *schema.Schema
}

// New creates a Client for the backend at host. auth supplies the bearer
// credential at request time; log may be nil.
func New(host string, auth *AuthCell, log *logger.Logger) (*Client, error) {
	base, err := url.Parse(host)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errs.Wrap(errs.ErrKindTransport, fmt.Sprintf("invalid host %q", host), err)
	}
	if log == nil {
		log = logger.Nop()
	}
	if auth == nil {
		auth = NewAuthCell("")
	}
	return &Client{
		base: base,
		http: &http.Client{},
		auth: auth,
		log:  log,
	}, nil
}

// SetToken replaces the ambient credential. This is the hook the external
// auth collaborator calls after a login.
func (c *Client) SetToken(token string) { c.auth.Set(token) }

// Schema returns the decoded schema, or nil before FetchSchema.
func (c *Client) Schema() *schema.Schema { return c.schema }

// ListParams shapes a FetchMany listing.
type ListParams struct {
	Filters    []filter.Filter
	OrderBy    string // column to sort by; "" for backend default order
	Descending bool
	Limit      int // 0 means no explicit limit
	Offset     int
}

// FetchSchema fetches and decodes the API description document from the
// host root. It is called once at startup; failure here is fatal to the
// application.
func (c *Client) FetchSchema(ctx context.Context, ov schema.Overrides) (*schema.Schema, error) {
	body, err := c.do(ctx, http.MethodGet, "", "", nil, nil)
	if err != nil {
		return nil, err
	}
	s, err := schema.Decode(body, ov)
	if err != nil {
		return nil, err
	}
	c.schema = s
	return s, nil
}

// FetchMany runs a listing query with the given filters, sort, and
// pagination, decoding every row into a Record.
func (c *Client) FetchMany(ctx context.Context, def *schema.TableDefinition, p ListParams) ([]*record.Record, error) {
	sel, err := buildSelect(def, c.schema)
	if err != nil {
		return nil, err
	}
	parts := []string{sel}
	if rendered := filter.RenderAll(p.Filters); rendered != "" {
		parts = append(parts, rendered)
	}
	if p.OrderBy != "" {
		dir := "asc"
		if p.Descending {
			dir = "desc"
		}
		parts = append(parts, "order="+p.OrderBy+"."+dir)
	}
	if p.Limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		parts = append(parts, "offset="+strconv.Itoa(p.Offset))
	}

	body, err := c.do(ctx, http.MethodGet, def.Name, strings.Join(parts, "&"), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(def, body)
}

// FetchOne selects a single row by primary key. The table must have a
// discoverable primary-key column.
func (c *Client) FetchOne(ctx context.Context, def *schema.TableDefinition, pk value.PK) (*record.Record, error) {
	pkName, err := primaryKeyName(def)
	if err != nil {
		return nil, err
	}
	sel, err := buildSelect(def, c.schema)
	if err != nil {
		return nil, err
	}
	query := sel + "&" + pkName + "=eq." + url.QueryEscape(pk.String()) + "&limit=2"

	body, err := c.do(ctx, http.MethodGet, def.Name, query, nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(def, body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.ErrKindNotFound,
			fmt.Sprintf("table %q has no row with %s=%s", def.Name, pkName, pk.String()))
	}
	return rows[0], nil
}

// Create inserts the encoded record and returns the created row as the
// backend stored it (server-assigned key and defaults included).
func (c *Client) Create(ctx context.Context, def *schema.TableDefinition, r *record.Record) (*record.Record, error) {
	body, err := c.do(ctx, http.MethodPost, def.Name, "", r.Encode(), writePrefs)
	if err != nil {
		return nil, err
	}
	return decodeWrittenRow(def, body)
}

// Update patches the row identified by pk with the encoded record and
// returns the row as stored. Both the endpoint and the record are keyed by
// the table's primary key.
func (c *Client) Update(ctx context.Context, def *schema.TableDefinition, pk value.PK, r *record.Record) (*record.Record, error) {
	pkName, err := primaryKeyName(def)
	if err != nil {
		return nil, err
	}
	query := pkName + "=eq." + url.QueryEscape(pk.String())
	body, err := c.do(ctx, http.MethodPatch, def.Name, query, r.Encode(), writePrefs)
	if err != nil {
		return nil, err
	}
	return decodeWrittenRow(def, body)
}

// Delete removes the record's row. The key must be resolvable from the
// record itself — a partially loaded record without its key cannot be
// deleted.
func (c *Client) Delete(ctx context.Context, def *schema.TableDefinition, r *record.Record) error {
	pk, ok := r.PrimaryKey()
	if !ok {
		return errs.New(errs.ErrKindSchema,
			fmt.Sprintf("record of table %q carries no primary key", def.Name))
	}
	pkName, err := primaryKeyName(def)
	if err != nil {
		return err
	}
	query := pkName + "=eq." + url.QueryEscape(pk.String())
	_, err = c.do(ctx, http.MethodDelete, def.Name, query, nil, nil)
	return err
}

// writePrefs asks the backend to echo the written row back, so the caller
// sees server-assigned keys and defaults without a follow-up read.
var writePrefs = map[string]string{"Prefer": "return=representation"}

// do issues one request. The bearer credential is read from the auth cell
// at this moment; its absence fails the operation before any network I/O.
func (c *Client) do(ctx context.Context, method, table, rawQuery string, body any, headers map[string]string) ([]byte, error) {
	token, ok := c.auth.Token()
	if !ok {
		return nil, errs.New(errs.ErrKindAuth, "no credential available")
	}

	u := *c.base
	if table != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + table
	}
	u.RawQuery = rawQuery

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindDecode, "failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, "failed to read response", err)
	}
	c.log.Request(method, u.String(), resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		return nil, mapAPIError(resp.StatusCode, payload)
	}
	return payload, nil
}

func primaryKeyName(def *schema.TableDefinition) (string, error) {
	name, ok := def.PrimaryKeyName()
	if !ok {
		return "", errs.New(errs.ErrKindSchema,
			fmt.Sprintf("table %q has no primary key", def.Name))
	}
	return name, nil
}

func decodeRows(def *schema.TableDefinition, body []byte) ([]*record.Record, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode,
			fmt.Sprintf("table %q: response is not a JSON array", def.Name), err)
	}
	out := make([]*record.Record, 0, len(rows))
	for _, raw := range rows {
		r, err := record.Decode(def, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// decodeWrittenRow handles write responses, which arrive either as a bare
// object or as a one-element array depending on the backend's preference
// handling.
func decodeWrittenRow(def *schema.TableDefinition, body []byte) (*record.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		rows, err := decodeRows(def, trimmed)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errs.New(errs.ErrKindDecode,
				fmt.Sprintf("table %q: write returned no rows", def.Name))
		}
		return rows[0], nil
	}
	return record.Decode(def, trimmed)
}
