package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hnrobert/vanconnect/internal/logger"
)

type Config struct {
	ListenAddr string
}

type Server struct {
	cfg Config
	h   http.Handler
}

func New(cfg Config, h http.Handler) *Server {
	return &Server{cfg: cfg, h: h}
}

// Run serves until ctx is cancelled, then drains open requests.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", s.cfg.ListenAddr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
