package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/moments/internal/moments"
	"github.com/your-org/moments/internal/poaps"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Limits bound what a single creation request may carry.
type Limits struct {
	MaxSizeBytes  int64
	FormMemBytes  int64
	MaxMediaItems int
}

// HTTPHandler exposes REST endpoints for the moments gateway.
type HTTPHandler struct {
	service *Service
	logger  *zap.Logger
	limits  Limits
	router  chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, logger *zap.Logger, limits Limits) *HTTPHandler {
	h := &HTTPHandler{
		service: service,
		logger:  logger,
		limits:  limits,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/moments", h.handleCreateMoment)
		r.Get("/drops/{dropID}/poaps", h.handleListPoaps)
	})

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type momentResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	CreatedOn time.Time `json:"created_on"`
	DropID    int64     `json:"drop_id"`
	TokenID   *int64    `json:"token_id,omitempty"`
	MediaKeys []string  `json:"media_keys"`
}

func (h *HTTPHandler) handleCreateMoment(w http.ResponseWriter, r *http.Request) {
	if h.limits.MaxSizeBytes > 0 {
		if r.ContentLength > h.limits.MaxSizeBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxSizeBytes)
	}

	if err := r.ParseMultipartForm(h.limits.FormMemBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	req, err := h.parseCreateRequest(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	moment, err := h.service.CreateMoment(r.Context(), req)
	if err != nil {
		status, msg := statusFor(err)
		h.logger.Error("create moment failed", zap.Int("status", status), zap.Error(err))
		writeError(w, status, msg)
		return
	}

	keys := moment.MediaKeys
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusCreated, momentResponse{
		ID:        moment.ID,
		Author:    moment.Author,
		CreatedOn: moment.CreatedOn,
		DropID:    moment.DropID,
		TokenID:   moment.TokenID,
		MediaKeys: keys,
	})
}

func (h *HTTPHandler) parseCreateRequest(form *multipart.Form) (moments.CreateMomentRequest, error) {
	value := func(key string) string {
		values := form.Value[key]
		if len(values) == 0 {
			return ""
		}
		return strings.TrimSpace(values[len(values)-1])
	}

	req := moments.CreateMomentRequest{
		Author:      value("author"),
		Description: value("description"),
	}
	// An absent drop_id stays zero and is rejected by Validate.
	if raw := value("drop_id"); raw != "" {
		dropID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return moments.CreateMomentRequest{}, &moments.ValidationError{Field: "dropId", Reason: "must be a positive integer"}
		}
		req.DropID = dropID
	}
	if raw := value("token_id"); raw != "" {
		tokenID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return moments.CreateMomentRequest{}, &moments.ValidationError{Field: "tokenId", Reason: "must be a positive integer when set"}
		}
		req.TokenID = &tokenID
	}

	files := form.File["media"]
	if h.limits.MaxMediaItems > 0 && len(files) > h.limits.MaxMediaItems {
		return moments.CreateMomentRequest{}, fmt.Errorf("at most %d media files allowed", h.limits.MaxMediaItems)
	}
	for _, fh := range files {
		media, err := readMedia(fh)
		if err != nil {
			return moments.CreateMomentRequest{}, err
		}
		req.Media = append(req.Media, media)
	}
	return req, nil
}

func readMedia(fh *multipart.FileHeader) (moments.Media, error) {
	f, err := fh.Open()
	if err != nil {
		return moments.Media{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return moments.Media{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(payload).String()
	}
	return moments.Media{Payload: payload, MimeType: contentType}, nil
}

type poapResponse struct {
	ID               int64     `json:"id"`
	Chain            string    `json:"chain"`
	CollectorAddress string    `json:"collector_address"`
	DropID           int64     `json:"drop_id"`
	MintedOn         time.Time `json:"minted_on"`
	TransferCount    int       `json:"transfer_count"`
	DropName         string    `json:"drop_name,omitempty"`
}

func (h *HTTPHandler) handleListPoaps(w http.ResponseWriter, r *http.Request) {
	dropID, err := strconv.ParseInt(chi.URLParam(r, "dropID"), 10, 64)
	if err != nil || dropID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid drop id")
		return
	}

	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	page, err := h.service.ListPoaps(r.Context(), poaps.FetchInput{
		Limit:            limit,
		Offset:           offset,
		DropID:           dropID,
		CollectorAddress: r.URL.Query().Get("collector"),
		Chain:            r.URL.Query().Get("chain"),
	})
	if err != nil {
		h.logger.Error("list poaps failed", zap.Int64("drop_id", dropID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "poap lookup failed")
		return
	}

	items := make([]poapResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, poapResponse{
			ID:               p.ID,
			Chain:            p.Chain,
			CollectorAddress: p.CollectorAddress,
			DropID:           p.DropID,
			MintedOn:         p.MintedOn,
			TransferCount:    p.TransferCount,
			DropName:         p.DropName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"next_cursor": page.NextCursor,
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func statusFor(err error) (int, string) {
	var (
		validationErr *moments.ValidationError
		ticketErr     *moments.TicketError
		uploadErr     *moments.UploadError
		creationErr   *moments.RemoteCreationError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &ticketErr):
		return http.StatusBadGateway, "media upload ticket refused"
	case errors.As(err, &uploadErr):
		return http.StatusBadGateway, "media upload failed"
	case errors.As(err, &creationErr):
		return http.StatusBadGateway, "moment creation rejected"
	default:
		return http.StatusInternalServerError, "create moment failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
