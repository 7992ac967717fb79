package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server serves a directory of rendered preview frames.
type Server struct {
	dir  string
	addr string
	log  *zap.Logger
}

// NewServer creates an instance of a Server.
func NewServer(dir, addr string, log *zap.Logger) *Server {
	s := new(Server)
	s.dir = dir
	s.addr = addr
	s.log = log
	return s
}

// Handler returns the file server for the preview directory.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.dir)))
	return mux
}

// Serve listens until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("Unclean shutdown", zap.Error(err))
		}
	}()

	s.log.Info("Listening...", zap.String("addr", s.addr), zap.String("dir", s.dir))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
