// Package transport speaks the spreadsheet API's HTTP surface: range
// reads, row appends, row overwrites, structural row deletes, and workbook
// metadata. Each operation is one HTTP call with the bearer token attached;
// failures carry the upstream status and body for the caller to classify.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/frotaops/sheetgate/internal/model"
)

// DefaultBaseURL is the spreadsheet API root.
const DefaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// rateLimitBackoff is the fixed pause before the single read retry on a
// rate-limit response.
const rateLimitBackoff = 1200 * time.Millisecond

// TokenSource supplies a valid bearer token per call.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// SheetInfo is one sheet's metadata: display name and the internal numeric
// id structural operations address.
type SheetInfo struct {
	ID    int64
	Title string
}

// Client is the raw spreadsheet API client for one workbook.
type Client struct {
	workbookID string
	tokens     TokenSource
	baseURL    string
	httpClient *http.Client
	sleep      func(time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a transport for the given workbook.
func NewClient(workbookID string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		workbookID: workbookID,
		tokens:     tokens,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadRange fetches a rectangular region as a string grid. An empty range
// yields an empty grid, not an error. A rate-limited response is retried
// exactly once after a fixed backoff; every other failure propagates
// immediately.
func (c *Client) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	u := fmt.Sprintf("%s/%s/values/%s", c.baseURL, c.workbookID, url.PathEscape(rng))

	body, err := c.do(ctx, http.MethodGet, "values.get", u, nil)
	if err != nil {
		te, ok := model.AsTransport(err)
		if !ok || !te.RateLimited() {
			return nil, err
		}
		c.sleep(rateLimitBackoff)
		body, err = c.do(ctx, http.MethodGet, "values.get", u, nil)
		if err != nil {
			return nil, err
		}
	}

	var payload struct {
		Values [][]interface{} `json:"values"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode values.get response: %w", err)
	}
	grid := make([][]string, len(payload.Values))
	for i, row := range payload.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellString(cell)
		}
		grid[i] = cells
	}
	return grid, nil
}

// AppendRow appends one row of values after the last populated row of the
// range's sheet.
func (c *Client) AppendRow(ctx context.Context, rng string, values []string) error {
	u := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS",
		c.baseURL, c.workbookID, url.PathEscape(rng))
	payload := map[string]interface{}{
		"values": [][]string{values},
	}
	_, err := c.do(ctx, http.MethodPost, "values.append", u, payload)
	return err
}

// OverwriteRow writes values over the exact cells addressed by rng.
func (c *Client) OverwriteRow(ctx context.Context, rng string, values []string) error {
	u := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED",
		c.baseURL, c.workbookID, url.PathEscape(rng))
	payload := map[string]interface{}{
		"values": [][]string{values},
	}
	_, err := c.do(ctx, http.MethodPut, "values.update", u, payload)
	return err
}

// DeleteRows issues a structural delete of rows [startIndex, endIndex)
// on the sheet with the given internal id. Indices are 0-based per the
// structural batch-update API.
func (c *Client) DeleteRows(ctx context.Context, sheetID int64, startIndex, endIndex int) error {
	u := fmt.Sprintf("%s/%s:batchUpdate", c.baseURL, c.workbookID)
	payload := map[string]interface{}{
		"requests": []map[string]interface{}{
			{
				"deleteDimension": map[string]interface{}{
					"range": map[string]interface{}{
						"sheetId":    sheetID,
						"dimension":  "ROWS",
						"startIndex": startIndex,
						"endIndex":   endIndex,
					},
				},
			},
		},
	}
	_, err := c.do(ctx, http.MethodPost, "batchUpdate", u, payload)
	return err
}

// Metadata fetches the workbook's sheet list in tab order.
func (c *Client) Metadata(ctx context.Context) ([]SheetInfo, error) {
	u := fmt.Sprintf("%s/%s?fields=sheets.properties", c.baseURL, c.workbookID)

	body, err := c.do(ctx, http.MethodGet, "spreadsheets.get", u, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Sheets []struct {
			Properties struct {
				SheetID int64  `json:"sheetId"`
				Title   string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode spreadsheets.get response: %w", err)
	}
	infos := make([]SheetInfo, len(payload.Sheets))
	for i, s := range payload.Sheets {
		infos[i] = SheetInfo{ID: s.Properties.SheetID, Title: s.Properties.Title}
	}
	return infos, nil
}

// do executes one authenticated call and returns the response body, or a
// TransportError for any non-2xx status.
func (c *Client) do(ctx context.Context, method, op, u string, payload interface{}) ([]byte, error) {
	tok, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.TransportError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// cellString renders one cell value as text. The values API returns JSON
// numbers and booleans for unformatted cells; the protocol is string-typed.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		// Trim the ".0" JSON decoding adds to integral numbers.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
