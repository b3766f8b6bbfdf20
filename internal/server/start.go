package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// Start serves HTTP on the configured address until ctx is done or the listener
// fails. It does not shut the server down; call Shutdown for that.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.cfg.Addr(), "viewer", s.cfg.SelfURL()+ViewerPath)
		if err := s.E.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown disconnects websocket clients and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	return s.E.Shutdown(ctx)
}
