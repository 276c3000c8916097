package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/codectx/internal/config"
	"github.com/contextlab/codectx/internal/embedder"
	"github.com/contextlab/codectx/internal/project"
	"github.com/contextlab/codectx/internal/retriever"
)

func newTestServer(t *testing.T, apiKey string) (*Server, string) {
	t.Helper()

	cfg := config.Default()
	cfg.Embedder.UseCache = false
	cfg.Index.Dir = t.TempDir()
	cfg.API.APIKey = apiKey

	provider, err := embedder.NewLocalProvider()
	require.NoError(t, err)
	svc, err := embedder.NewServiceWith(cfg.Embedder, provider)
	require.NoError(t, err)
	ret, err := retriever.NewWith(cfg, svc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ret.Close() })

	reg, err := project.Open(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	root := t.TempDir()
	src := `package demo

// Greet returns a greeting for a name.
func Greet(name string) string {
	return "hello " + name
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "demo.go"), []byte(src), 0644))

	return NewServer(ret, reg, cfg.API), root
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestIndexThenQuery(t *testing.T) {
	srv, root := newTestServer(t, "")
	h := srv.Router()

	rec := postJSON(t, h, "/v1/index", map[string]interface{}{"root": root}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var indexResp struct {
		Data retriever.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &indexResp))
	assert.Equal(t, 1, indexResp.Data.FilesScanned)
	assert.Greater(t, indexResp.Data.Chunks, 0)

	rec = postJSON(t, h, "/v1/query", map[string]interface{}{"query": "greeting"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var queryResp struct {
		Data queryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queryResp))
	assert.NotEmpty(t, queryResp.Data.Results)
	assert.Contains(t, queryResp.Data.Formatted, "Greet")
}

func TestQueryBeforeIndex(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := postJSON(t, srv.Router(), "/v1/query", map[string]interface{}{"query": "anything"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueryValidation(t *testing.T) {
	srv, _ := newTestServer(t, "")
	h := srv.Router()

	rec := postJSON(t, h, "/v1/query", map[string]interface{}{"query": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/v1/query", map[string]interface{}{"qqq": "typo"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestIndexByProjectName(t *testing.T) {
	srv, root := newTestServer(t, "")
	h := srv.Router()

	_, err := srv.registry.Set(context.Background(), "demo", root, "")
	require.NoError(t, err)

	rec := postJSON(t, h, "/v1/index", map[string]interface{}{"project": "demo"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, h, "/v1/index", map[string]interface{}{"project": "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, h, "/v1/index", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	srv, root := newTestServer(t, "")
	h := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data statusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Ready)
	assert.Equal(t, "local", resp.Data.Provider)

	postJSON(t, h, "/v1/index", map[string]interface{}{"root": root}, nil)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Ready)
	assert.Greater(t, resp.Data.Chunks, 0)
}

func TestAPIKeyAuth(t *testing.T) {
	srv, _ := newTestServer(t, "sekret")
	h := srv.Router()

	// Health stays open.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/v1/query", map[string]interface{}{"query": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h, "/v1/query", map[string]interface{}{"query": "x"},
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h, "/v1/query", map[string]interface{}{"query": "x"},
		map[string]string{"Authorization": "Bearer sekret"})
	assert.Equal(t, http.StatusConflict, rec.Code, "authorized but no index yet")
}
