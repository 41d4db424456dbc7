package poapapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the production Moments API endpoint.
const DefaultBaseURL = "https://moments.poap.tech"

// Config configures the Moments API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// UploadClient performs the raw PUT to signed URLs. It carries no API key and
	// no client-level timeout unless the caller sets one.
	UploadClient *http.Client
}

// SignedURL is a one-time upload endpoint and the key of the object it stores.
type SignedURL struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// CreateMomentInput is the payload of the moment creation call.
type CreateMomentInput struct {
	DropID      int64    `json:"dropId"`
	TokenID     *int64   `json:"tokenId,omitempty"`
	Author      string   `json:"author"`
	Description string   `json:"description,omitempty"`
	MediaKeys   []string `json:"mediaKeys"`
}

// Moment is the record returned by the creation call.
type Moment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	CreatedOn time.Time `json:"createdOn"`
	DropID    int64     `json:"dropId"`
	TokenID   *int64    `json:"tokenId,omitempty"`
	MediaKeys []string  `json:"mediaKeys,omitempty"`
}

// APIError is returned for any non-success response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// Client talks to the Moments API.
type Client struct {
	rest   *resty.Client
	upload *http.Client
}

// New constructs a Client from the given configuration.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		rc.SetHeader("x-api-key", cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	upload := cfg.UploadClient
	if upload == nil {
		upload = &http.Client{}
	}

	return &Client{rest: rc, upload: upload}
}

// GetSignedURL asks the API for a one-time media upload ticket.
func (c *Client) GetSignedURL(ctx context.Context) (SignedURL, error) {
	var out SignedURL
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/moments/media-upload-url")
	if err != nil {
		return SignedURL{}, fmt.Errorf("request signed url: %w", err)
	}
	if resp.IsError() {
		return SignedURL{}, newAPIError(resp)
	}
	if out.URL == "" || out.Key == "" {
		return SignedURL{}, fmt.Errorf("request signed url: incomplete response")
	}
	return out, nil
}

// CreateMoment creates the moment record.
func (c *Client) CreateMoment(ctx context.Context, input CreateMomentInput) (Moment, error) {
	if input.MediaKeys == nil {
		input.MediaKeys = []string{}
	}

	var out Moment
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(input).
		SetResult(&out).
		Post("/moments")
	if err != nil {
		return Moment{}, fmt.Errorf("create moment: %w", err)
	}
	if resp.IsError() {
		return Moment{}, newAPIError(resp)
	}
	return out, nil
}

func newAPIError(resp *resty.Response) *APIError {
	return &APIError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       string(resp.Body()),
	}
}
