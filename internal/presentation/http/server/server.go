// Package server runs the Bernice HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/bernice-stories/bernice/internal/application/container"
	"github.com/bernice-stories/bernice/internal/presentation/http/routes"
	"github.com/bernice-stories/bernice/pkg/config"
)

// Server owns the HTTP listener. Every request context derives from a
// server-wide stream context, so SSE streams end when Stop is called
// instead of holding Shutdown open until its deadline.
type Server struct {
	httpServer    *http.Server
	container     *container.Container
	cancelStreams context.CancelFunc
}

func New(port string, container *container.Container) *Server {
	streamCtx, cancelStreams := context.WithCancel(context.Background())

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.SetupRoutes(container),
		ReadTimeout:       config.ServerReadTimeout,
		ReadHeaderTimeout: config.ServerReadTimeout,
		// Zero by default: a write deadline would cut long-lived event streams.
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
		ErrorLog:     slog.NewLogLogger(container.Logger.System().Handler(), slog.LevelWarn),
		BaseContext:  func(net.Listener) context.Context { return streamCtx },
	}

	return &Server{
		httpServer:    httpServer,
		container:     container,
		cancelStreams: cancelStreams,
	}
}

// Start listens on the configured port and serves until Stop.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Stop.
func (s *Server) Serve(l net.Listener) error {
	if config.ServerWriteTimeout > 0 && config.ServerWriteTimeout <= config.SSEHeartbeatInterval {
		s.container.Logger.System().Warn("Write timeout will close event streams before their first heartbeat",
			"writeTimeout", config.ServerWriteTimeout,
			"heartbeat", config.SSEHeartbeatInterval)
	}
	s.container.Logger.System().Info("Starting HTTP server",
		"addr", l.Addr().String(),
		"readTimeout", config.ServerReadTimeout,
		"writeTimeout", config.ServerWriteTimeout,
		"maxStreams", config.MaxStreamConnections)

	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop ends open event streams and then drains the remaining requests.
func (s *Server) Stop(ctx context.Context) error {
	s.container.Logger.Shutdown().Info("Shutting down HTTP server",
		"sseClients", s.container.Broadcaster.ConnectionCount(),
		"wsClients", s.container.Hub.ConnectionCount())
	s.cancelStreams()
	return s.httpServer.Shutdown(ctx)
}
