package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/marketvid/internal/catalog"
	"github.com/your-org/marketvid/internal/mediacheck"
	"github.com/your-org/marketvid/internal/stagecache"
	"github.com/your-org/marketvid/internal/uploads"
)

func newTestHandler(t *testing.T, h *harness) *HTTPHandler {
	t.Helper()
	caches, err := stagecache.NewManager(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	_, err = caches.Dir("transcode-work")
	require.NoError(t, err)
	return NewHTTPHandler(h.service, caches, zap.NewNop(), 50<<20, 10<<20)
}

type formInput struct {
	fields    map[string]string
	fileName  string
	fileType  string
	fileBytes []byte
}

func multipartRequest(t *testing.T, method, target string, form formInput) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range form.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if form.fileName != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="video"; filename="`+form.fileName+`"`)
		hdr.Set("Content-Type", form.fileType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(form.fileBytes)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, newHarness(t))

	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateProductWithoutVideoReturns201(t *testing.T) {
	h := newHarness(t)
	handler := newTestHandler(t, h)

	req := multipartRequest(t, http.MethodPost, "/api/v1/products", formInput{
		fields: map[string]string{"title": "Lamp", "price": "40"},
	})
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Product struct {
			ID    string  `json:"id"`
			Title string  `json:"title"`
			Price float64 `json:"price"`
		} `json:"product"`
		Video videoOutcomeResponse `json:"video"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Product.ID)
	assert.Equal(t, "Lamp", resp.Product.Title)
	assert.False(t, resp.Video.Attached)
}

func TestCreateProductWithVideoAttaches(t *testing.T) {
	h := newHarness(t)
	handler := newTestHandler(t, h)

	req := multipartRequest(t, http.MethodPost, "/api/v1/products", formInput{
		fields:    map[string]string{"title": "Bike", "price": "120"},
		fileName:  "clip.webm",
		fileType:  "video/webm",
		fileBytes: []byte("raw capture"),
	})
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Video videoOutcomeResponse `json:"video"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Video.Attached)
	assert.NotEmpty(t, resp.Video.URL)
}

func TestCreateProductMissingTitle(t *testing.T) {
	handler := newTestHandler(t, newHarness(t))

	req := multipartRequest(t, http.MethodPost, "/api/v1/products", formInput{
		fields: map[string]string{"price": "40"},
	})
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title is required")
}

func TestCreateProductNonVideoFile(t *testing.T) {
	handler := newTestHandler(t, newHarness(t))

	req := multipartRequest(t, http.MethodPost, "/api/v1/products", formInput{
		fields:    map[string]string{"title": "Lamp", "price": "40"},
		fileName:  "photo.png",
		fileType:  "image/png",
		fileBytes: []byte("not a video"),
	})
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestErrorTaxonomyMapping(t *testing.T) {
	cases := []struct {
		name       string
		configure  func(h *harness)
		wantStatus int
	}{
		{
			name: "too long",
			configure: func(h *harness) {
				h.withValidator(fakeValidator{err: &mediacheck.TooLongError{DurationSeconds: 20, MaxSeconds: 15}})
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "too large",
			configure: func(h *harness) {
				h.withValidator(fakeValidator{err: &mediacheck.TooLargeError{SizeBytes: 80 << 20, MaxSizeBytes: 50 << 20}})
			},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name: "unreadable",
			configure: func(h *harness) {
				h.withValidator(fakeValidator{err: mediacheck.ErrUnreadableMedia})
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			tc.configure(h)
			handler := newTestHandler(t, h)

			req := multipartRequest(t, http.MethodPost, "/api/v1/products", formInput{
				fields:    map[string]string{"title": "X", "price": "1"},
				fileName:  "clip.webm",
				fileType:  "video/webm",
				fileBytes: []byte("raw"),
			})
			rec := httptest.NewRecorder()
			handler.Router().ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestAttachVideoStorageUnavailableReturns503(t *testing.T) {
	h := newHarness(t)
	h.uploader.err = uploads.ErrStorageUnavailable
	handler := newTestHandler(t, h)

	p, _, err := h.service.CreateProduct(context.Background(), catalog.Product{Title: "Desk", Price: 60}, nil)
	require.NoError(t, err)

	req := multipartRequest(t, http.MethodPost, "/api/v1/products/"+p.ID+"/video", formInput{
		fileName:  "clip.webm",
		fileType:  "video/webm",
		fileBytes: []byte("raw"),
	})
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unchanged")
}

func TestAttachVideoUnknownProductReturns404(t *testing.T) {
	handler := newTestHandler(t, newHarness(t))

	req := multipartRequest(t, http.MethodPost, "/api/v1/products/missing-id/video", formInput{
		fileName:  "clip.webm",
		fileType:  "video/webm",
		fileBytes: []byte("raw"),
	})
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachVideoRequiresFile(t *testing.T) {
	handler := newTestHandler(t, newHarness(t))

	req := multipartRequest(t, http.MethodPost, "/api/v1/products/some-id/video", formInput{
		fields: map[string]string{"noise": "1"},
	})
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "video file is required")
}

func TestOversizedPayloadRejectedBeforeParsing(t *testing.T) {
	h := newHarness(t)
	caches, err := stagecache.NewManager(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	handler := NewHTTPHandler(h.service, caches, zap.NewNop(), 16, 1024)

	big := formInput{
		fields:    map[string]string{"title": "X", "price": "1"},
		fileName:  "clip.webm",
		fileType:  "video/webm",
		fileBytes: make([]byte, 256),
	}

	for _, target := range []string{
		"/api/v1/products",
		"/api/v1/products/some-id/video",
	} {
		req := multipartRequest(t, http.MethodPost, target, big)
		require.Greater(t, req.ContentLength, int64(32), "declared length must exceed twice the limit")

		rec := httptest.NewRecorder()
		handler.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, target)
	}
}

func TestCacheEndpoints(t *testing.T) {
	handler := newTestHandler(t, newHarness(t))

	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/caches", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Caches map[string]int64 `json:"caches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Caches, "transcode-work")

	rec = httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/caches/transcode-work", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/caches", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
