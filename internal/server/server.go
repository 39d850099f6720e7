package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httputil"
	"time"

	"todoapp/internal/domain/errors"
	"todoapp/internal/domain/models"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const (
	backendUnavailableMessage = "Backend service unavailable"
	internalErrorMessage      = "Internal server error"
)

// EdgeServer serves the public directory, proxies the API prefix to the
// backend and falls back to the SPA entry document.
type EdgeServer struct {
	httpSrv *http.Server
	cfg     *Config
	logger  *log.Logger
	proxy   *httputil.ReverseProxy
}

func NewEdgeServer(cfg *Config, logger *log.Logger) (*EdgeServer, error) {
	if cfg == nil {
		return nil, errors.ErrInternalServer
	}
	if logger == nil {
		logger = log.Default()
	}

	proxy, err := newAPIProxy(cfg, logger)
	if err != nil {
		return nil, err
	}

	srv := &EdgeServer{
		httpSrv: &http.Server{
			Addr:              cfg.ListenAddr(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:    cfg,
		logger: logger,
		proxy:  proxy,
	}
	srv.configRoutes()

	return srv, nil
}

// Start blocks until the server stops. A graceful Shutdown returns nil.
func (s *EdgeServer) Start() error {
	if s.httpSrv == nil {
		return errors.ErrInternalServer
	}

	s.logger.Info("edge server listening",
		"addr", s.httpSrv.Addr,
		"backend", s.cfg.BackendURL,
		"api_prefix", s.cfg.APIPrefix,
		"public", s.cfg.PublicDir,
	)
	err := s.httpSrv.ListenAndServe()
	if stderrors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *EdgeServer) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *EdgeServer) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *EdgeServer) configRoutes() {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(RequestID(), RequestLogger(s.logger), Recovery(s.logger))
	if s.cfg.Gzip {
		router.Use(GzipResponseCompress(s.cfg.APIPrefix))
	}

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": errors.ErrMethodNotAllowed.Error()})
	})
	router.NoRoute(s.serveStatic)

	router.GET("/healthz", s.health)

	api := router.Group(s.cfg.APIPrefix, GzipRequestDecompress())
	{
		api.Any("", s.proxyAPI)
		api.Any("/*path", s.proxyAPI)
	}

	s.httpSrv.Handler = router
}

func (s *EdgeServer) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.Health{
		Status:    "healthy",
		Timestamp: models.NewTimestamp(time.Now()),
	})
}
