package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const searchPath = "/api/policies/v1/search"

type policyClient struct {
	baseURL string
	actor   string
	http    *http.Client
}

func newClient() *policyClient {
	return &policyClient{
		baseURL: strings.TrimRight(serverURL, "/"),
		actor:   actor,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// policyItem mirrors one policy in the search response.
type policyItem struct {
	ID             int64    `json:"id"`
	PolicyNumber   string   `json:"policyNumber"`
	CustomerName   string   `json:"customerName"`
	Premium        float64  `json:"premium"`
	IssueDate      string   `json:"issueDate"`
	CoverageAmount *float64 `json:"coverageAmount,omitempty"`
}

// searchResponse mirrors the server's search response.
type searchResponse struct {
	Query    string       `json:"query"`
	Policies []policyItem `json:"policies"`
	Size     int          `json:"size"`
}

// search calls the search endpoint with query.
func (c *policyClient) search(ctx context.Context, query string) (*searchResponse, error) {
	var resp searchResponse
	if err := c.getJSON(ctx, searchPath+"?q="+url.QueryEscape(query), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// getJSON performs a GET request and decodes the response.
func (c *policyClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.actor != "" {
		req.Header.Set("X-Remote-User", c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
