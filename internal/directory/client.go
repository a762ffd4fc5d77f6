package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultTimeout bounds every request to the directory API.
	DefaultTimeout = 30 * time.Second
)

// Client interfaces with the remote physician directory API. Credentials
// are static and encoded into every request; there is no token refresh
// flow. The client performs no retries: retry policy belongs to the
// import orchestrator's caller.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a directory API client with basic-auth credentials.
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Pager is the pagination metadata attached to search responses.
// Pages are zero-indexed.
type Pager struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

type searchResponse struct {
	Rows  []Record `json:"rows"`
	Pager Pager    `json:"pager"`
}

type listResponse struct {
	Rows []Record `json:"rows"`
}

// Search fetches one page of physician records matching filters.
func (c *Client) Search(ctx context.Context, filters map[string]string, page int) ([]Record, Pager, error) {
	q := url.Values{}
	for key, value := range filters {
		q.Set(key, value)
	}
	q.Set("page", strconv.Itoa(page))

	var resp searchResponse
	if err := c.getJSON(ctx, "/search", q, &resp); err != nil {
		return nil, Pager{}, err
	}
	return resp.Rows, resp.Pager, nil
}

// SearchAll repeatedly calls Search, concatenating rows until the last
// page is reached or maxPages pages have been fetched. The returned
// pager describes the concatenated set as a single page.
func (c *Client) SearchAll(ctx context.Context, filters map[string]string, maxPages int) ([]Record, Pager, error) {
	var all []Record
	var last Pager

	for page := 0; ; page++ {
		rows, pager, err := c.Search(ctx, filters, page)
		if err != nil {
			return nil, Pager{}, err
		}
		all = append(all, rows...)
		last = pager

		if pager.CurrentPage >= pager.TotalPages-1 {
			break
		}
		if maxPages > 0 && page+1 >= maxPages {
			break
		}
	}

	synthesized := Pager{
		CurrentPage:  0,
		TotalPages:   1,
		TotalItems:   last.TotalItems,
		ItemsPerPage: len(all),
	}
	return all, synthesized, nil
}

// Get fetches a single physician record by its provider key.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := c.getJSON(ctx, "/providers/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Languages fetches the directory's language reference list.
func (c *Client) Languages(ctx context.Context) ([]Record, error) {
	return c.getList(ctx, "/languages")
}

// Hospitals fetches the directory's hospital reference list.
func (c *Client) Hospitals(ctx context.Context) ([]Record, error) {
	return c.getList(ctx, "/hospitals")
}

// Networks fetches the directory's insurance network reference list.
func (c *Client) Networks(ctx context.Context) ([]Record, error) {
	return c.getList(ctx, "/networks")
}

// TestConnection issues a minimal-cost request as a connectivity probe,
// falling back to the languages endpoint if search is unavailable.
func (c *Client) TestConnection(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "1")
	var resp searchResponse
	if err := c.getJSON(ctx, "/search", q, &resp); err == nil {
		return nil
	} else if errors.Is(err, ErrInvalidCredentials) {
		return err
	}
	_, err := c.Languages(ctx)
	return err
}

func (c *Client) getList(ctx context.Context, path string) ([]Record, error) {
	var resp listResponse
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}
