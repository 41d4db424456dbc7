package poapapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 4 << 10

// UploadFile PUTs payload to a signed URL, reporting the completed fraction
// as the body is consumed by the transport.
func (c *Client) UploadFile(ctx context.Context, payload []byte, url, mimeType string, onProgress func(float64)) error {
	if len(payload) == 0 {
		return fmt.Errorf("upload file: empty payload")
	}

	body := &progressReader{
		r:          bytes.NewReader(payload),
		total:      int64(len(payload)),
		onProgress: onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = int64(len(payload))
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.upload.Do(req)
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     http.MethodPut,
			URL:        redactQuery(url),
			StatusCode: resp.StatusCode,
			Body:       string(msg),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.onProgress != nil {
			p.onProgress(float64(p.read) / float64(p.total))
		}
	}
	return n, err
}

// redactQuery strips the signature from a presigned URL before it is logged.
func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
