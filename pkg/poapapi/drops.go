package poapapi

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultDropsBaseURL is the production POAP Drops API endpoint.
const DefaultDropsBaseURL = "https://api.poap.tech"

// DateLayout is the date format the Drops API accepts.
const DateLayout = "01-02-2006"

// FormatDate renders t the way the Drops API expects.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DropsConfig configures the Drops API client.
type DropsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CreateDropInput describes a new drop. Dates use DateLayout.
type CreateDropInput struct {
	Name            string
	Description     string
	City            string
	Country         string
	StartDate       string
	EndDate         string
	ExpiryDate      string
	EventURL        string
	VirtualEvent    bool
	Image           []byte
	Filename        string
	ContentType     string
	SecretCode      string
	EventTemplateID *int64
	Email           string
	RequestedCodes  *int
	PrivateEvent    *bool
}

// UpdateDropInput is the JSON payload of a drop update.
type UpdateDropInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Country         string `json:"country"`
	City            string `json:"city"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	ExpiryDate      string `json:"expiry_date"`
	EventURL        string `json:"event_url"`
	VirtualEvent    bool   `json:"virtual_event"`
	PrivateEvent    *bool  `json:"private_event,omitempty"`
	EventTemplateID *int64 `json:"event_template_id,omitempty"`
	SecretCode      string `json:"secret_code"`
}

// Drop is the record returned by the Drops API.
type Drop struct {
	ID              int64  `json:"id"`
	FancyID         string `json:"fancy_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	City            string `json:"city"`
	Country         string `json:"country"`
	EventURL        string `json:"event_url"`
	ImageURL        string `json:"image_url"`
	Year            int    `json:"year"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	ExpiryDate      string `json:"expiry_date"`
	VirtualEvent    bool   `json:"virtual_event"`
	PrivateEvent    bool   `json:"private_event"`
	EventTemplateID *int64 `json:"event_template_id,omitempty"`
}

// DropsClient talks to the Drops API.
type DropsClient struct {
	rest *resty.Client
}

// NewDropsClient constructs a DropsClient from the given configuration.
func NewDropsClient(cfg DropsConfig) *DropsClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultDropsBaseURL
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		rc.SetHeader("x-api-key", cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	return &DropsClient{rest: rc}
}

// CreateDrop uploads the drop artwork and its details as one multipart form.
func (c *DropsClient) CreateDrop(ctx context.Context, input CreateDropInput) (Drop, error) {
	if len(input.Image) == 0 {
		return Drop{}, fmt.Errorf("create drop: image is required")
	}
	filename := input.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var out Drop
	resp, err := c.rest.R().
		SetContext(ctx).
		SetMultipartField("image", filename, contentType, bytes.NewReader(input.Image)).
		SetFormData(createDropForm(input)).
		SetResult(&out).
		Post("/events")
	if err != nil {
		return Drop{}, fmt.Errorf("create drop: %w", err)
	}
	if resp.IsError() {
		return Drop{}, newAPIError(resp)
	}
	return out, nil
}

// UpdateDrop replaces the editable details of a drop.
func (c *DropsClient) UpdateDrop(ctx context.Context, input UpdateDropInput) (Drop, error) {
	var out Drop
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(input).
		SetResult(&out).
		Put("/events")
	if err != nil {
		return Drop{}, fmt.Errorf("update drop: %w", err)
	}
	if resp.IsError() {
		return Drop{}, newAPIError(resp)
	}
	return out, nil
}

func createDropForm(in CreateDropInput) map[string]string {
	form := map[string]string{
		"name":          in.Name,
		"description":   in.Description,
		"city":          in.City,
		"country":       in.Country,
		"start_date":    in.StartDate,
		"end_date":      in.EndDate,
		"expiry_date":   in.ExpiryDate,
		"event_url":     in.EventURL,
		"virtual_event": strconv.FormatBool(in.VirtualEvent),
		"secret_code":   in.SecretCode,
		"email":         in.Email,
	}
	if in.EventTemplateID != nil {
		form["event_template_id"] = strconv.FormatInt(*in.EventTemplateID, 10)
	}
	if in.RequestedCodes != nil {
		form["requested_codes"] = strconv.Itoa(*in.RequestedCodes)
	}
	if in.PrivateEvent != nil {
		form["private_event"] = strconv.FormatBool(*in.PrivateEvent)
	}
	return form
}
