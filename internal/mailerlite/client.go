package mailerlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the MailerLite connect API root.
const DefaultBaseURL = "https://connect.mailerlite.com/api"

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailerlite: %s (status %d)", e.Message, e.StatusCode)
}

// IsRateLimited reports whether err is an API rate-limit (429) response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// Client is a MailerLite API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an API client. An empty baseURL selects the production
// API; tests point it at a local server.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListSent fetches one page of the sent-campaign listing, newest first.
// An empty slice means the listing is exhausted.
func (c *Client) ListSent(ctx context.Context, page int) ([]Campaign, error) {
	query := url.Values{}
	query.Set("filter[status]", "sent")
	query.Set("page", strconv.Itoa(page))

	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, "/campaigns?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("list sent campaigns page %d: %w", page, err)
	}

	campaigns := make([]Campaign, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var campaign Campaign
		if err := json.Unmarshal(raw, &campaign); err != nil {
			return nil, fmt.Errorf("decode campaign on page %d: %w", page, err)
		}
		campaign.Raw = raw
		campaigns = append(campaigns, campaign)
	}
	return campaigns, nil
}

// GetCampaign fetches full campaign detail, including content, by source
// identifier.
func (c *Client) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, "/campaigns/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}

	var campaign Campaign
	if err := json.Unmarshal(resp.Data, &campaign); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	campaign.Raw = resp.Data
	return &campaign, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiMessage(body, resp.Status),
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// apiMessage pulls the error message out of an API error body, falling back
// to the HTTP status line.
func apiMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return status
}
