package postgrest

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

	"hisabkitab/backend/internal/mirror"
)

// Client talks to a Supabase project's PostgREST endpoint (/rest/v1).
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func NewClient(httpClient *http.Client, projectURL string, apiKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(projectURL), "/") + "/rest/v1",
		apiKey:     strings.TrimSpace(apiKey),
	}
}

func (c *Client) Available() bool {
	return c != nil && c.apiKey != "" && c.baseURL != "/rest/v1"
}

func (c *Client) Select(ctx context.Context, table string, filter mirror.Filter) ([]json.RawMessage, error) {
	if !mirror.ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table %q", table)
	}
	q := url.Values{}
	q.Set("select", "*")
	if filter.CompanyID != nil {
		q.Set("company_id", "eq."+strconv.FormatInt(*filter.CompanyID, 10))
	}
	if filter.ID != nil {
		q.Set("id", "eq."+strconv.FormatInt(*filter.ID, 10))
	}
	if filter.OrderBy != "" && mirror.ValidIdentifier(filter.OrderBy) {
		dir := "asc"
		if filter.Desc {
			dir = "desc"
		}
		q.Set("order", filter.OrderBy+"."+dir)
	}

	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/"+table+"?"+q.Encode(), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Insert(ctx context.Context, table string, row map[string]any) (json.RawMessage, error) {
	if !mirror.ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table %q", table)
	}
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/"+table, row, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &mirror.APIError{Status: http.StatusOK, Message: "insert returned no rows"}
	}
	return rows[0], nil
}

func (c *Client) Update(ctx context.Context, table string, id int64, patch map[string]any) (json.RawMessage, error) {
	if !mirror.ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table %q", table)
	}
	var rows []json.RawMessage
	path := "/" + table + "?id=eq." + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPatch, path, patch, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &mirror.APIError{Status: http.StatusNotFound, Message: "no row matched"}
	}
	return rows[0], nil
}

func (c *Client) Delete(ctx context.Context, table string, id int64) error {
	if !mirror.ValidIdentifier(table) {
		return fmt.Errorf("invalid table %q", table)
	}
	return c.do(ctx, http.MethodDelete, "/"+table+"?id=eq."+strconv.FormatInt(id, 10), nil, nil)
}

// Ping asks PostgREST for its OpenAPI root, which needs no table grant.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodHead, "/", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if !c.Available() {
		return mirror.ErrUnavailable
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent || method == http.MethodHead {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	msg := strings.TrimSpace(eb.Message)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &mirror.APIError{Status: resp.StatusCode, Code: eb.Code, Message: msg}
}
