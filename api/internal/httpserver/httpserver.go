// Package httpserver runs an http.Handler until its context is cancelled, then
// shuts it down gracefully.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"areca-grader/api/internal/logger"
)

const shutdownTimeout = 30 * time.Second

// New builds a server with the request timeout applied to reads and writes. The
// write timeout gets headroom so a slow model call can still be answered.
func New(addr string, h http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + 10*time.Second,
	}
}

// Run serves srv until ctx is done. It returns nil after a clean shutdown.
func Run(ctx context.Context, srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, srv, ln)
}

func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"address": ln.Addr().String(),
			"timeout": srv.ReadTimeout,
		}).Info("Starting HTTP server")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Logger.Info("Server exited")
	return nil
}
