package moments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/your-org/moments/pkg/poapapi"
)

// MomentsAPI is the remote API consumed by the orchestrator.
type MomentsAPI interface {
	GetSignedURL(ctx context.Context) (poapapi.SignedURL, error)
	UploadFile(ctx context.Context, payload []byte, url, mimeType string, onProgress func(float64)) error
	CreateMoment(ctx context.Context, input poapapi.CreateMomentInput) (poapapi.Moment, error)
}

// MediaUploader obtains single-use upload tickets and transfers payloads to them.
type MediaUploader interface {
	RequestTicket(ctx context.Context, mimeType string) (Ticket, error)
	Upload(ctx context.Context, payload []byte, url, mimeType string, onProgress func(float64)) error
}

// BinaryUploader transfers a payload to a pre-authorized URL.
type BinaryUploader interface {
	UploadFile(ctx context.Context, payload []byte, url, mimeType string, onProgress func(float64)) error
}

// APIUploader issues tickets and uploads through the Moments API.
type APIUploader struct {
	api MomentsAPI
}

// NewAPIUploader constructs an APIUploader.
func NewAPIUploader(api MomentsAPI) *APIUploader {
	return &APIUploader{api: api}
}

func (u *APIUploader) RequestTicket(ctx context.Context, _ string) (Ticket, error) {
	signed, err := u.api.GetSignedURL(ctx)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{URL: signed.URL, Key: signed.Key}, nil
}

func (u *APIUploader) Upload(ctx context.Context, payload []byte, url, mimeType string, onProgress func(float64)) error {
	return u.api.UploadFile(ctx, payload, url, mimeType, onProgress)
}

// Presigner returns a time-limited PUT URL for an object key.
type Presigner interface {
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
}

// PresignedUploader issues tickets against a self-hosted bucket. Keys are
// date-prefixed and unique per ticket.
type PresignedUploader struct {
	presigner Presigner
	transfer  BinaryUploader
	expires   time.Duration
	prefix    string
	now       func() time.Time
}

// NewPresignedUploader constructs a PresignedUploader.
func NewPresignedUploader(presigner Presigner, transfer BinaryUploader, expires time.Duration, prefix string) *PresignedUploader {
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	return &PresignedUploader{
		presigner: presigner,
		transfer:  transfer,
		expires:   expires,
		prefix:    strings.Trim(prefix, "/"),
		now:       time.Now,
	}
}

func (u *PresignedUploader) RequestTicket(ctx context.Context, mimeType string) (Ticket, error) {
	key := u.objectKey(mimeType)
	url, err := u.presigner.PresignPut(ctx, key, u.expires)
	if err != nil {
		return Ticket{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return Ticket{URL: url, Key: key}, nil
}

func (u *PresignedUploader) Upload(ctx context.Context, payload []byte, url, mimeType string, onProgress func(float64)) error {
	return u.transfer.UploadFile(ctx, payload, url, mimeType, onProgress)
}

func (u *PresignedUploader) objectKey(mimeType string) string {
	key := fmt.Sprintf("%s/%s%s", u.now().UTC().Format("2006/01/02"), uuid.NewString(), extensionFor(mimeType))
	if u.prefix != "" {
		key = u.prefix + "/" + key
	}
	return key
}

func extensionFor(mimeType string) string {
	m := mimetype.Lookup(mimeType)
	if m == nil {
		return ""
	}
	return m.Extension()
}
