package gallery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(store *Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), store, zap.NewNop())
	return r
}

func do(t *testing.T, r http.Handler, req *http.Request) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return rr.Code, body
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/manage", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestManageRejectsNonPost(t *testing.T) {
	r := newRouter(NewStore(NewMemoryBackend()))

	status, body := do(t, r, httptest.NewRequest(http.MethodGet, "/api/manage", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestManageMissingAndUnknownAction(t *testing.T) {
	backend := NewMemoryBackend(record("a", "x"))
	r := newRouter(NewStore(backend))

	status, body := do(t, r, jsonRequest(`{}`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing action", body["message"])

	status, body = do(t, r, jsonRequest(`not json`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing action", body["message"])

	status, body = do(t, r, jsonRequest(`{"action":"purge"}`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "unknown action", body["message"])

	records, _ := backend.Load(context.Background())
	assert.Len(t, records, 1)
}

func TestManageDeleteJSON(t *testing.T) {
	r := newRouter(NewStore(NewMemoryBackend(record("a", "x"), record("b", "x"))))

	status, body := do(t, r, jsonRequest(`{"action":"delete","id":"a"}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["removed"])
	assert.Equal(t, float64(1), body["total"])

	status, body = do(t, r, jsonRequest(`{"action":"delete","id":"a"}`))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}

func TestManageSetCategoryForm(t *testing.T) {
	r := newRouter(NewStore(NewMemoryBackend(record("a", "x"))))

	form := url.Values{"action": {"setCategory"}, "id": {"a"}, "category": {"Travel"}}
	req := httptest.NewRequest(http.MethodPost, "/api/manage", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body := do(t, r, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a", body["id"])
	assert.Equal(t, "Travel", body["category"])
}

func TestManageBulkActions(t *testing.T) {
	r := newRouter(NewStore(NewMemoryBackend(record("a", "Cats"), record("b", "Cats"), record("c", "Dogs"))))

	status, body := do(t, r, jsonRequest(`{"action":"renameCategory","from":"Cats","to":"Pets"}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["updated"])

	status, body = do(t, r, jsonRequest(`{"action":"renameCategory","from":"Cats","to":"Pets"}`))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])

	status, _ = do(t, r, jsonRequest(`{"action":"renameCategory","from":"","to":"Pets"}`))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, r, jsonRequest(`{"action":"deleteCategory","name":"Pets"}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["moved"])
	assert.Equal(t, DefaultCategory, body["to"])
}

func TestGalleryListing(t *testing.T) {
	r := newRouter(NewStore(NewMemoryBackend(record("a", "Cats"), record("b", "Dogs"), record("c", "Cats"))))

	status, body := do(t, r, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["gallery"], 3)

	cats, ok := body["categories"].([]any)
	require.True(t, ok)
	first := cats[0].(map[string]any)
	assert.Equal(t, "Cats", first["name"])
	assert.Equal(t, float64(2), first["count"])
}
