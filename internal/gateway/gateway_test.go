package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/moments/internal/moments"
	"github.com/your-org/moments/internal/poaps"
	"github.com/your-org/moments/pkg/poapapi"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeAPI struct {
	mu        sync.Mutex
	tickets   int
	mimeTypes []string
	created   []poapapi.CreateMomentInput
	uploadErr error
}

func (f *fakeAPI) GetSignedURL(ctx context.Context) (poapapi.SignedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets++
	key := fmt.Sprintf("key-%d", f.tickets)
	return poapapi.SignedURL{URL: "https://upload.test/" + key, Key: key}, nil
}

func (f *fakeAPI) UploadFile(ctx context.Context, payload []byte, url, mimeType string, onProgress func(float64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mimeTypes = append(f.mimeTypes, mimeType)
	onProgress(1)
	return f.uploadErr
}

func (f *fakeAPI) CreateMoment(ctx context.Context, input poapapi.CreateMomentInput) (poapapi.Moment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	return poapapi.Moment{
		ID:        "moment-1",
		Author:    input.Author,
		CreatedOn: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		DropID:    input.DropID,
		TokenID:   input.TokenID,
	}, nil
}

type published struct {
	key       string
	eventType string
	event     any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
	closed bool
	// block, when set, holds every publish until it is closed.
	block chan struct{}
}

func (f *fakePublisher) PublishJSON(ctx context.Context, key, eventType string, event any) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{key: key, eventType: eventType, event: event})
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.eventType)
	}
	return out
}

type fakeFetcher struct {
	input poaps.FetchInput
	page  poaps.Page[poaps.POAP]
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, input poaps.FetchInput) (poaps.Page[poaps.POAP], error) {
	f.input = input
	return f.page, f.err
}

type fixture struct {
	api       *fakeAPI
	publisher *fakePublisher
	fetcher   *fakeFetcher
	service   *Service
	handler   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	f := &fixture{api: &fakeAPI{}, publisher: &fakePublisher{}, fetcher: &fakeFetcher{}}
	orchestrator := moments.NewOrchestrator(moments.Params{
		Uploader: moments.NewAPIUploader(f.api),
		Creator:  f.api,
		Logger:   log,
	})
	f.service = NewService(Params{
		Creator:   orchestrator,
		Poaps:     f.fetcher,
		Publisher: f.publisher,
		Logger:    log,
	})
	f.handler = NewHTTPHandler(f.service, log, Limits{
		MaxSizeBytes:  1 << 20,
		FormMemBytes:  1 << 20,
		MaxMediaItems: 2,
	}).Router()
	return f
}

type part struct {
	name        string
	contentType string
	body        []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files []part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, p.name))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/moments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateMoment_Success(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, map[string]string{
		"drop_id":     "420",
		"token_id":    "69",
		"author":      "0x7CE5368171cC3D988157d7dab3D313d7bd43de3e",
		"description": "gm",
	}, []part{
		{name: "a.png", contentType: "application/octet-stream", body: pngHeader},
		{name: "b.jpg", contentType: "image/jpeg", body: []byte("jpeg bytes")},
	})

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp momentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "moment-1", resp.ID)
	assert.Equal(t, int64(420), resp.DropID)
	require.NotNil(t, resp.TokenID)
	assert.Equal(t, int64(69), *resp.TokenID)
	assert.Len(t, resp.MediaKeys, 2)

	assert.ElementsMatch(t, []string{"image/png", "image/jpeg"}, f.api.mimeTypes)
	require.Len(t, f.api.created, 1)
	assert.Equal(t, "gm", f.api.created[0].Description)

	f.service.flush()
	assert.Equal(t, []string{
		EventMomentStep, EventMomentStep, EventMomentStep, EventMomentStep, EventMomentCreated,
	}, f.publisher.types())

	runID := f.publisher.events[0].key
	for _, e := range f.publisher.events {
		assert.Equal(t, runID, e.key)
	}
	created := f.publisher.events[4].event.(MomentCreatedEvent)
	assert.Equal(t, "moment-1", created.MomentID)
	assert.Equal(t, resp.MediaKeys, created.MediaKeys)
}

func TestCreateMoment_NoMedia(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, map[string]string{"drop_id": "1", "author": "0xabc"}, nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"media_keys":[]`)
	assert.Zero(t, f.api.tickets)
}

func TestCreateMoment_ValidationError(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, map[string]string{"drop_id": "1"}, nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "author")
	f.service.flush()
	assert.Equal(t, []string{EventMomentFailed}, f.publisher.types())
}

func TestCreateMoment_BadForm(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		files  []part
	}{
		{name: "drop id missing", fields: map[string]string{"author": "0xabc"}},
		{name: "drop id not a number", fields: map[string]string{"drop_id": "abc", "author": "0xabc"}},
		{name: "token id not a number", fields: map[string]string{"drop_id": "1", "token_id": "x", "author": "0xabc"}},
		{name: "too many media", fields: map[string]string{"drop_id": "1", "author": "0xabc"}, files: []part{
			{name: "1.png", contentType: "image/png", body: pngHeader},
			{name: "2.png", contentType: "image/png", body: pngHeader},
			{name: "3.png", contentType: "image/png", body: pngHeader},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, multipartRequest(t, tt.fields, tt.files))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, f.api.created)
		})
	}
}

func TestCreateMoment_MissingDropIDIsValidationError(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, map[string]string{"author": "0xabc"}, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid moment request: dropId must be a positive integer", body["error"])

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, multipartRequest(t, map[string]string{"drop_id": "abc", "author": "0xabc"}, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid moment request: dropId must be a positive integer", body["error"])
}

func TestCreateMoment_SlowBrokerDoesNotBlockRun(t *testing.T) {
	f := newFixture(t)
	f.publisher.block = make(chan struct{})
	req := multipartRequest(t, map[string]string{"drop_id": "1", "author": "0xabc"}, []part{
		{name: "a.png", contentType: "image/png", body: pngHeader},
	})

	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		done <- rec.Code
	}()

	select {
	case code := <-done:
		assert.Equal(t, http.StatusCreated, code)
	case <-time.After(2 * time.Second):
		t.Fatal("request blocked on event publishing")
	}
	assert.Empty(t, f.publisher.types())

	close(f.publisher.block)
	f.service.flush()
	assert.Equal(t, []string{
		EventMomentStep, EventMomentStep, EventMomentStep, EventMomentStep, EventMomentCreated,
	}, f.publisher.types())
}

func TestCreateMoment_UploadFailure(t *testing.T) {
	f := newFixture(t)
	f.api.uploadErr = errors.New("403 from bucket")
	req := multipartRequest(t, map[string]string{"drop_id": "1", "author": "0xabc"}, []part{
		{name: "a.png", contentType: "image/png", body: pngHeader},
	})

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, f.api.created)

	f.service.flush()
	types := f.publisher.types()
	require.Equal(t, []string{EventMomentStep, EventMomentFailed}, types)
	failed := f.publisher.events[1].event.(MomentFailedEvent)
	assert.Equal(t, "upload", failed.Reason)
}

func TestCreateMoment_PublishFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	req := multipartRequest(t, map[string]string{"drop_id": "1", "author": "0xabc"}, nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListPoaps(t *testing.T) {
	f := newFixture(t)
	next := 20
	f.fetcher.page = poaps.Page[poaps.POAP]{
		Items:      []poaps.POAP{{ID: 7, DropID: 14, Chain: "gnosis", CollectorAddress: "0xabc"}},
		NextCursor: &next,
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/drops/14/poaps?limit=1&offset=19&chain=gnosis", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, int64(14), f.fetcher.input.DropID)
	assert.Equal(t, 1, f.fetcher.input.Limit)
	assert.Equal(t, 19, f.fetcher.input.Offset)
	assert.Equal(t, "gnosis", f.fetcher.input.Chain)

	var body struct {
		Items      []poapResponse `json:"items"`
		NextCursor *int           `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, int64(7), body.Items[0].ID)
	require.NotNil(t, body.NextCursor)
	assert.Equal(t, 20, *body.NextCursor)
}

func TestListPoaps_BadInput(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{
		"/api/v1/drops/abc/poaps",
		"/api/v1/drops/0/poaps",
		"/api/v1/drops/1/poaps?limit=1000",
		"/api/v1/drops/1/poaps?offset=-1",
	} {
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestListPoaps_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("compass down")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/drops/1/poaps", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestService_Close(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.Close())
	assert.True(t, f.publisher.closed)

	assert.NoError(t, NewService(Params{}).Close())
}
