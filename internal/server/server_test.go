package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todoapp/internal/backendtest"
	"todoapp/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexHTML = `<!doctype html><html><body><div id="app"></div></body></html>`

func newPublicDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexHTML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte(`console.log("todo")`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte(strings.Repeat("body { margin: 0; }\n", 200)), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "index.html"), []byte("docs page"), 0o644))
	return dir
}

func newTestServer(t *testing.T, backendURL string) *EdgeServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig()
	cfg.BackendURL = backendURL
	cfg.PublicDir = newPublicDir(t)

	srv, err := NewEdgeServer(cfg, logging.Discard())
	require.NoError(t, err)
	return srv
}

// serve gives the request a cancellable context, as net/http does. The
// reverse proxy relies on it instead of CloseNotify, which the recorder lacks.
func serve(srv *EdgeServer, req *http.Request) *httptest.ResponseRecorder {
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req.WithContext(ctx))
	return w
}

type echoResponse struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   string            `json:"query"`
	Host    string            `json:"host"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func TestNewEdgeServer(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want struct {
			err bool
		}
	}{
		{
			name: "default config",
			cfg:  DefaultConfig(),
		},
		{
			name: "nil config",
			cfg:  nil,
			want: struct {
				err bool
			}{err: true},
		},
		{
			name: "backend without scheme",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.BackendURL = "localhost:5000"
				return cfg
			}(),
			want: struct {
				err bool
			}{err: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewEdgeServer(tt.cfg, logging.Discard())
			if tt.want.err {
				assert.Error(t, err)
				assert.Nil(t, srv)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, srv.Handler())
			assert.Equal(t, "0.0.0.0:3000", srv.httpSrv.Addr)
		})
	}
}

func TestProxyForwardsRequests(t *testing.T) {
	backend := backendtest.New()
	defer backend.Close()
	srv := newTestServer(t, backend.Server.URL)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   struct {
			method string
			path   string
			query  string
			body   string
		}
	}{
		{
			name:   "get with query",
			method: http.MethodGet,
			target: "/api/echo/items?limit=5",
			want: struct {
				method string
				path   string
				query  string
				body   string
			}{method: http.MethodGet, path: "/api/echo/items", query: "limit=5"},
		},
		{
			name:   "post with body",
			method: http.MethodPost,
			target: "/api/echo/todos",
			body:   `{"text":"Buy milk","priority":"high"}`,
			want: struct {
				method string
				path   string
				query  string
				body   string
			}{method: http.MethodPost, path: "/api/echo/todos", body: `{"text":"Buy milk","priority":"high"}`},
		},
		{
			name:   "patch keeps method",
			method: http.MethodPatch,
			target: "/api/echo/todos/toggle/3",
			want: struct {
				method string
				path   string
				query  string
				body   string
			}{method: http.MethodPatch, path: "/api/echo/todos/toggle/3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Custom", "kept")

			w := serve(srv, req)

			require.Equal(t, http.StatusOK, w.Code)
			var echo echoResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &echo))
			assert.Equal(t, tt.want.method, echo.Method)
			assert.Equal(t, tt.want.path, echo.Path)
			assert.Equal(t, tt.want.query, echo.Query)
			assert.Equal(t, tt.want.body, echo.Body)
			assert.Equal(t, "kept", echo.Headers["x-custom"])
			assert.Equal(t, "application/json", echo.Headers["content-type"])
			assert.NotEmpty(t, echo.Headers["x-request-id"])
			assert.NotEmpty(t, echo.Headers["x-forwarded-for"])
			assert.Equal(t, strings.TrimPrefix(backend.Server.URL, "http://"), echo.Host)
		})
	}
}

func TestProxyStripsPrefix(t *testing.T) {
	backend := backendtest.New()
	defer backend.Close()

	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig()
	cfg.BackendURL = backend.Server.URL + "/api"
	cfg.StripAPIPrefix = true
	cfg.PublicDir = newPublicDir(t)
	srv, err := NewEdgeServer(cfg, logging.Discard())
	require.NoError(t, err)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/echo/x", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var echo echoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &echo))
	assert.Equal(t, "/api/echo/x", echo.Path)
}

func TestProxyTodoAPI(t *testing.T) {
	backend := backendtest.New()
	defer backend.Close()
	srv := newTestServer(t, backend.Server.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/todos", strings.NewReader(`{"text":"Buy milk","priority":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(srv, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"text":"Buy milk"`)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = serve(srv, httptest.NewRequest(http.MethodPatch, "/api/todos/toggle/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProxyBackendUnavailable(t *testing.T) {
	backend := backendtest.New()
	url := backend.Server.URL
	backend.Close()
	srv := newTestServer(t, url)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := serve(srv, httptest.NewRequest(method, "/api/todos", nil))

			assert.Equal(t, http.StatusBadGateway, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"error":"Backend service unavailable"}`, w.Body.String())
		})
	}
}

func TestProxyDecompressesGzipBodies(t *testing.T) {
	backend := backendtest.New()
	defer backend.Close()
	srv := newTestServer(t, backend.Server.URL)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte(`{"text":"zipped"}`))
	require.NoError(t, gz.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/echo/todos", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	w := serve(srv, req)

	require.Equal(t, http.StatusOK, w.Code)
	var echo echoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &echo))
	assert.Equal(t, `{"text":"zipped"}`, echo.Body)
	assert.Empty(t, echo.Headers["content-encoding"])
}

func TestStaticAndSPAFallback(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	tests := []struct {
		name   string
		method string
		target string
		want   struct {
			statusCode  int
			body        string
			contentType string
		}
	}{
		{
			name:   "root serves entry document",
			method: http.MethodGet,
			target: "/",
			want: struct {
				statusCode  int
				body        string
				contentType string
			}{statusCode: http.StatusOK, body: indexHTML, contentType: "text/html"},
		},
		{
			name:   "static file",
			method: http.MethodGet,
			target: "/app.js",
			want: struct {
				statusCode  int
				body        string
				contentType string
			}{statusCode: http.StatusOK, body: `console.log("todo")`, contentType: "javascript"},
		},
		{
			name:   "directory index",
			method: http.MethodGet,
			target: "/docs/",
			want: struct {
				statusCode  int
				body        string
				contentType string
			}{statusCode: http.StatusOK, body: "docs page", contentType: "text/html"},
		},
		{
			name:   "client side route",
			method: http.MethodGet,
			target: "/todos/completed",
			want: struct {
				statusCode  int
				body        string
				contentType string
			}{statusCode: http.StatusOK, body: indexHTML, contentType: "text/html"},
		},
		{
			name:   "traversal stays inside public dir",
			method: http.MethodGet,
			target: "/../../etc/passwd",
			want: struct {
				statusCode  int
				body        string
				contentType string
			}{statusCode: http.StatusOK, body: indexHTML, contentType: "text/html"},
		},
		{
			name:   "post to unmatched path",
			method: http.MethodPost,
			target: "/todos/completed",
			want: struct {
				statusCode  int
				body        string
				contentType string
			}{statusCode: http.StatusNotFound, body: `{"error":"resource not found"}`, contentType: "application/json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(srv, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.want.statusCode, w.Code)
			assert.Equal(t, tt.want.body, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), tt.want.contentType)
		})
	}
}

func TestStaticGzip(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/styles.css", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(srv, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Contains(t, w.Header().Get("Vary"), "Accept-Encoding")

	gr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("body { margin: 0; }\n", 200), string(body))
}

func TestHealthAndMethods(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = serve(srv, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, w.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = serve(srv, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryReturnsGenericError(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")
	engine, ok := srv.Handler().(*gin.Engine)
	require.True(t, ok)
	engine.GET("/boom", func(*gin.Context) { panic("kaboom") })

	tests := []struct {
		name           string
		acceptEncoding string
	}{
		{name: "plain client"},
		{name: "gzip client", acceptEncoding: "gzip, deflate, br"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/boom", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := serve(srv, req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
		})
	}
}

func TestProxyBareAPIPrefix(t *testing.T) {
	backend := backendtest.New()
	defer backend.Close()
	srv := newTestServer(t, backend.Server.URL)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			before := backend.Requests()

			w := serve(srv, httptest.NewRequest(method, "/api", nil))

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Empty(t, w.Header().Get("Location"))
			assert.Equal(t, before+1, backend.Requests())
		})
	}
}

func TestStaticEntryByName(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/index.html", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.Equal(t, indexHTML, w.Body.String())
}

func TestIndexMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig()
	cfg.PublicDir = t.TempDir()
	srv, err := NewEdgeServer(cfg, logging.Discard())
	require.NoError(t, err)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
