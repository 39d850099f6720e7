package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"todoapp/internal/domain/errors"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const backendUnavailableBody = `{"error":"` + backendUnavailableMessage + `"}`

// newAPIProxy forwards requests to cfg.BackendURL keeping method, body,
// headers and path. The Host header is rewritten to the backend.
func newAPIProxy(cfg *Config, logger *log.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(cfg.BackendURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidBackendURL, cfg.BackendURL)
	}
	prefix := cfg.APIPrefix
	strip := cfg.StripAPIPrefix

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if strip {
				pr.Out.URL.Path = stripPrefix(pr.Out.URL.Path, prefix)
				pr.Out.URL.RawPath = stripPrefix(pr.Out.URL.RawPath, prefix)
			}
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("backend request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", r.Header.Get(RequestIDHeader),
				"err", err,
			)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, backendUnavailableBody)
		},
	}, nil
}

func stripPrefix(p, prefix string) string {
	if p == "" {
		return p
	}
	trimmed := strings.TrimPrefix(p, prefix)
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

func (s *EdgeServer) proxyAPI(ctx *gin.Context) {
	s.proxy.ServeHTTP(ctx.Writer, ctx.Request)
}
