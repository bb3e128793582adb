package pipeline

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/capture"
	"github.com/your-org/marketvid/internal/catalog"
	"github.com/your-org/marketvid/internal/media"
	"github.com/your-org/marketvid/internal/mediacheck"
	"github.com/your-org/marketvid/internal/stagecache"
	"github.com/your-org/marketvid/internal/uploads"
)

// HTTPHandler exposes REST endpoints for the pipeline service.
type HTTPHandler struct {
	service      *Service
	caches       *stagecache.Manager
	logger       *zap.Logger
	maxSizeBytes int64
	formMemBytes int64
	router       chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, caches *stagecache.Manager, logger *zap.Logger, maxSizeBytes, formMemBytes int64) *HTTPHandler {
	h := &HTTPHandler{
		service:      service,
		caches:       caches,
		logger:       logger,
		maxSizeBytes: maxSizeBytes,
		formMemBytes: formMemBytes,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", h.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.handleListProducts)
		r.Post("/products", h.handleCreateProduct)
		r.Get("/products/{id}", h.handleGetProduct)
		r.Post("/products/{id}/video", h.handleAttachVideo)
		r.Get("/categories", h.handleListCategories)

		r.Get("/caches", h.handleListCaches)
		r.Delete("/caches", h.handleEvictAllCaches)
		r.Delete("/caches/{name}", h.handleEvictCache)
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

type videoOutcomeResponse struct {
	Attached bool   `json:"attached"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func outcomeResponse(outcome *VideoOutcome) videoOutcomeResponse {
	resp := videoOutcomeResponse{
		Attached: outcome.Attached,
		URL:      outcome.VideoURL,
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	return resp
}

func (h *HTTPHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 && r.ContentLength > h.maxSizeBytes*2 {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	draft, err := draftFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.videoFromForm(r)
	if err != nil {
		h.writeCauseError(w, err)
		return
	}

	product, outcome, err := h.service.CreateProduct(r.Context(), draft, video)
	if err != nil {
		h.writeCauseError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"product": product,
		"video":   outcomeResponse(outcome),
	})
}

func (h *HTTPHandler) handleAttachVideo(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 && r.ContentLength > h.maxSizeBytes*2 {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	video, err := h.videoFromForm(r)
	if err != nil {
		h.writeCauseError(w, err)
		return
	}
	if video == nil {
		writeError(w, http.StatusBadRequest, "video file is required")
		return
	}

	productID := chi.URLParam(r, "id")
	outcome, err := h.service.AttachVideo(r.Context(), productID, video)
	if err != nil {
		h.writeCauseError(w, err)
		return
	}
	if outcome.Err != nil {
		h.writeCauseError(w, outcome.Err)
		return
	}

	writeJSON(w, http.StatusOK, outcomeResponse(outcome))
}

func (h *HTTPHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *HTTPHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeCauseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.logger.Error("list categories", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *HTTPHandler) handleListCaches(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.caches.Sizes()
	if err != nil {
		h.logger.Error("list caches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to inspect caches")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"caches": sizes})
}

func (h *HTTPHandler) handleEvictCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.caches.Evict(name); err != nil {
		if errors.Is(err, stagecache.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("evict cache", zap.String("cache", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to evict cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleEvictAllCaches(w http.ResponseWriter, r *http.Request) {
	if err := h.caches.EvictAll(); err != nil {
		h.logger.Error("evict caches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to evict caches")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func draftFromForm(r *http.Request) (catalog.Product, error) {
	form := r.MultipartForm.Value
	title := firstValue(form, "title")
	if title == "" {
		return catalog.Product{}, errors.New("title is required")
	}
	priceRaw := firstValue(form, "price")
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return catalog.Product{}, errors.New("price must be a number")
	}

	return catalog.Product{
		Title:       title,
		Description: firstValue(form, "description"),
		Price:       price,
		CategoryID:  firstValue(form, "category_id"),
		Condition:   firstValue(form, "condition"),
		Location:    firstValue(form, "location"),
		Images:      form["images"],
	}, nil
}

// videoFromForm returns nil when no video part was supplied.
func (h *HTTPHandler) videoFromForm(r *http.Request) (*media.Asset, error) {
	file, header, err := r.FormFile("video")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	return capture.FromFile(header.Filename, contentType, file)
}

// writeCauseError maps the pipeline error taxonomy onto status codes, always
// surfacing a message that distinguishes the cause.
func (h *HTTPHandler) writeCauseError(w http.ResponseWriter, err error) {
	var tooLarge *mediacheck.TooLargeError
	var tooLong *mediacheck.TooLongError

	switch {
	case errors.Is(err, capture.ErrNotAVideo):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, tooLarge.Error())
	case errors.As(err, &tooLong):
		writeError(w, http.StatusUnprocessableEntity, tooLong.Error())
	case errors.Is(err, mediacheck.ErrUnreadableMedia):
		writeError(w, http.StatusUnprocessableEntity, "could not read video metadata; the file may be corrupt")
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, uploads.ErrUploadRejected):
		writeError(w, http.StatusBadGateway, "video storage rejected the upload")
	case errors.Is(err, uploads.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "video storage is unreachable; the product is unchanged")
	case errors.Is(err, catalog.ErrSchemaNotReady):
		writeError(w, http.StatusServiceUnavailable, "the catalog is still provisioning video support; try again shortly")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func firstValue(form map[string][]string, key string) string {
	values := form[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
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
