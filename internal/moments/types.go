package moments

import (
	"strconv"
	"strings"
	"time"
)

// Media is a single binary payload attached to a moment.
type Media struct {
	Payload  []byte
	MimeType string
}

// CreateMomentRequest captures everything needed to create a moment.
type CreateMomentRequest struct {
	DropID      int64
	TokenID     *int64
	Author      string
	Description string
	Media       []Media

	// OnStep is optional.
	OnStep StepReporter
	// OnUploadProgress is called concurrently from the per-media uploads.
	OnUploadProgress func(index int, fraction float64)
}

// Ticket is a one-time upload endpoint plus the key of the object it will store.
type Ticket struct {
	URL string
	Key string
}

// Moment is the record created by the remote system.
type Moment struct {
	ID        string
	Author    string
	CreatedOn time.Time
	DropID    int64
	TokenID   *int64
	MediaKeys []string
}

// Validate checks the request before any network call is made.
func (r CreateMomentRequest) Validate() error {
	if r.DropID <= 0 {
		return &ValidationError{Field: "dropId", Reason: "must be a positive integer"}
	}
	if r.TokenID != nil && *r.TokenID <= 0 {
		return &ValidationError{Field: "tokenId", Reason: "must be a positive integer when set"}
	}
	if strings.TrimSpace(r.Author) == "" {
		return &ValidationError{Field: "author", Reason: "is required"}
	}
	for i, m := range r.Media {
		if len(m.Payload) == 0 {
			return &ValidationError{Field: mediaField(i, "payload"), Reason: "must not be empty"}
		}
		if strings.TrimSpace(m.MimeType) == "" {
			return &ValidationError{Field: mediaField(i, "mimeType"), Reason: "is required"}
		}
	}
	return nil
}

func mediaField(i int, name string) string {
	return "media[" + strconv.Itoa(i) + "]." + name
}
