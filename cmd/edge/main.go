package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoapp/internal/logging"
	"todoapp/internal/server"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// Service is the part of the edge server main drives.
type Service interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	bootLogger := logging.New(logging.DefaultOptions("edge"))

	cfg, err := server.ReadConfig(args, bootLogger)
	if err != nil {
		bootLogger.Error("invalid configuration", "err", err)
		return 2
	}

	opts := logging.DefaultOptions("edge")
	opts.Level = cfg.LogLevel
	logger := logging.New(opts)

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.NewEdgeServer(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize edge server", "err", err)
		return 1
	}

	sigChan, serverErr := StartServer(srv, logger)
	return Wait(srv, sigChan, serverErr, cfg.ShutdownTimeoutDuration(), logger)
}

// StartServer runs srv in the background. A Start error is delivered on the
// returned error channel.
func StartServer(srv Service, logger *log.Logger) (chan os.Signal, chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("edge server stopped", "err", err)
			serverErr <- err
		}
	}()
	return sigChan, serverErr
}

// Wait blocks until a signal or a server failure and returns the exit code.
func Wait(srv Service, sigChan <-chan os.Signal, serverErr <-chan error, timeout time.Duration, logger *log.Logger) int {
	select {
	case sig := <-sigChan:
		if err := HandleShutdown(srv, sig, timeout, logger); err != nil {
			return 1
		}
		logger.Info("edge server stopped")
		return 0
	case <-serverErr:
		return 1
	}
}

// HandleShutdown drains in-flight requests for at most timeout.
func HandleShutdown(srv Service, sig os.Signal, timeout time.Duration, logger *log.Logger) error {
	logger.Info("shutting down", "signal", sig.String(), "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		return err
	}
	return nil
}
