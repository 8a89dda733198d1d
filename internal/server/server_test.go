package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arran4/chat2png"
	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/config"
	"github.com/arran4/chat2png/internal/metrics"
	"github.com/arran4/chat2png/internal/preview"
	"github.com/arran4/chat2png/internal/store"
	apperrors "github.com/arran4/chat2png/pkg/errors"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r, err := chat2png.NewRenderer(chat2png.Options{
		Backend: "serialize",
		Scale:   1,
		Badge:   preview.DefaultBadge,
		Now:     func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	return New(cfg, r, st, metrics.New()).Router()
}

func do(router http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var resp struct {
		Code apperrors.ErrorCode `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Code
}

func TestHealth(t *testing.T) {
	w := do(newTestServer(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateExport(t *testing.T) {
	router := newTestServer(t)
	w := do(router, http.MethodPost, "/api/v1/exports?mode=full", chat.New())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chat-full-whatsapp-dark-2024-01-15.png")

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dy())
}

func TestCreateExportValidation(t *testing.T) {
	router := newTestServer(t)

	w := do(router, http.MethodPost, "/api/v1/exports?mode=poster", chat.New())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeValidation, errorCode(t, w))

	bad := chat.New()
	bad.Platform = "telegram"
	w = do(router, http.MethodPost, "/api/v1/exports", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeValidation, errorCode(t, w))
}

func TestConversationLifecycle(t *testing.T) {
	router := newTestServer(t)

	w := do(router, http.MethodPost, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, chat.DefaultContactName, rec.Conversation.ContactName)
	base := "/api/v1/conversations/" + rec.ID

	w = do(router, http.MethodGet, "/api/v1/conversations", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), rec.ID)

	conv := rec.Conversation
	conv.ContactName = "Marta"
	conv.Platform = chat.Messenger
	w = do(router, http.MethodPut, base, conv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, base+"/preview.html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), preview.AttrRoot)
	assert.Contains(t, w.Body.String(), "Marta")
	assert.Contains(t, w.Body.String(), preview.DefaultBadge)

	w = do(router, http.MethodPost, base+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chat-messenger-dark-2024-01-15.png")

	w = do(router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrCodeNotFound, errorCode(t, w))
}

func upload(router http.Handler, data []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "avatar.png")
	_, _ = fw.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadMedia(t *testing.T) {
	router := newTestServer(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	w := upload(router, buf.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"data_url":"data:image/png;base64,`)

	w = upload(router, []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrCodeMediaType, errorCode(t, w))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestServer(t)
	do(router, http.MethodGet, "/health", nil)
	do(router, http.MethodPost, "/api/v1/exports?mode=poster", chat.New())

	w := do(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `chat2png_http_requests_total{method="GET",route="/health",status="200"} 1`), body)
	assert.True(t, strings.Contains(body, `route="/api/v1/exports",status="400"} 1`), body)
}
