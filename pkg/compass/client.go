package compass

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultEndpoint is the public Compass GraphQL endpoint.
const DefaultEndpoint = "https://public.compass.poap.tech/v1/graphql"

// Config configures the Compass client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client executes GraphQL queries against Compass.
type Client struct {
	rest     *resty.Client
	endpoint string
}

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

type request struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// New constructs a Client.
func New(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	rc := resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		rc.SetHeader("x-api-key", cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	return &Client{rest: rc, endpoint: endpoint}
}

// Request runs query with variables and decodes the data field into out.
func (c *Client) Request(ctx context.Context, query string, variables any, out any) error {
	var body response
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(request{Query: query, Variables: variables}).
		SetResult(&body).
		SetError(&body).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("compass request: %w", err)
	}

	if len(body.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range body.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if resp.IsError() {
		return fmt.Errorf("compass request: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out == nil || len(body.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return fmt.Errorf("decode compass data: %w", err)
	}
	return nil
}
