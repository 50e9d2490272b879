// Package server provides the HTTP endpoints of the oboji bot.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/oboji/internal/bot"
	"github.com/hyperjump/oboji/internal/config"
	"github.com/hyperjump/oboji/internal/models"
	"go.uber.org/zap"
)

// CommandLister exposes the registered commands. *bot.Router implements it.
type CommandLister interface {
	Definitions() []bot.Definition
}

// InventoryReader is the read side of the inventory store.
type InventoryReader interface {
	Items(userID string) []models.ItemCount
	Render(userID string) string
}

// Server is the HTTP server for the bot.
type Server struct {
	interactions http.Handler
	commands     CommandLister
	inventory    InventoryReader
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. interactions serves
// POST /interactions.
func NewServer(
	interactions http.Handler,
	commands CommandLister,
	inventory InventoryReader,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		interactions: interactions,
		commands:     commands,
		inventory:    inventory,
		config:       cfg,
		logger:       logger,
	}
}

// Handler returns the routed handler with middleware applied. The inventory
// route is unauthenticated and only mounted when ExposeInventory is set.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/interactions", s.interactions.ServeHTTP)
	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/commands", s.handleCommands)
		if s.config.ExposeInventory {
			r.Get("/inventory/{user}", s.handleInventory)
		}
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
