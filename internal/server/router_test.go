package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abduss/imgbed/internal/config"
	"github.com/abduss/imgbed/internal/gallery"
	"github.com/abduss/imgbed/internal/logger"
	"github.com/abduss/imgbed/internal/upload"
)

func newTestRouter(t *testing.T, access config.AccessConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := gallery.NewStore(gallery.NewMemoryBackend())
	router, err := NewRouter(Dependencies{
		Config: config.Config{
			Access:  access,
			Metrics: config.MetricsConfig{PrometheusPath: "/metrics"},
			Upload:  config.UploadConfig{MaxFileSize: 1 << 20, CompressBudget: 1 << 20, CompressThreshold: 1 << 20},
		},
		Logger:         zap.NewNop(),
		GalleryService: store,
		UploadService:  upload.NewService(config.UploadConfig{MaxFileSize: 1 << 20}, upload.Dependencies{Gallery: store}),
	})
	require.NoError(t, err)
	return router
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, config.AccessConfig{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "ok", decode(t, rr)["status"], path)
		assert.NotEmpty(t, rr.Header().Get(logger.CorrelationIDHeader), path)
	}
}

func TestGalleryMountedUnderAPI(t *testing.T) {
	router := newTestRouter(t, config.AccessConfig{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["success"])
}

func TestWhitelistGuardsAPI(t *testing.T) {
	router := newTestRouter(t, config.AccessConfig{WhitelistEnabled: true, Whitelist: []string{"10.0.0.0/8"}})

	req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, false, decode(t, rr)["success"])

	req = httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// health stays reachable outside the whitelist
	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPanicRecoveredAsJSON(t *testing.T) {
	router := newTestRouter(t, config.AccessConfig{})
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "internal server error", body["message"])
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, config.AccessConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	req.Header.Set("Origin", "https://other.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoutesAnswerJSON(t *testing.T) {
	router := newTestRouter(t, config.AccessConfig{})

	cases := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodPost, "/api/gallery", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/upload", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rr.Code, tc.path)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json", tc.path)
		assert.Equal(t, false, decode(t, rr)["success"], tc.path)
	}
}

func TestBadTrustedProxies(t *testing.T) {
	_, err := NewRouter(Dependencies{Config: config.Config{Access: config.AccessConfig{TrustedProxies: []string{"not-an-ip"}}}})
	assert.Error(t, err)
}
