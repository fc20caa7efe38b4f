package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/DGouron/billed/internal/receipts"
	"github.com/DGouron/billed/internal/server/router"
	"github.com/DGouron/billed/internal/storage"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

type Config struct {
	serverAddr string
	secret     []byte
	log        *slog.Logger
}

type Option func(c *Config)

func WithServerAddr(addr string) Option {
	return func(c *Config) {
		c.serverAddr = addr
	}
}

func WithJWTSecretKey(secret []byte) Option {
	return func(c *Config) {
		c.secret = secret
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.log = logger
	}
}

func NewServer(store storage.Storage, vault *receipts.Vault, opts ...Option) (*Server, error) {
	cfg := &Config{
		serverAddr: "0.0.0.0:8080",
		secret:     []byte(""),
		log:        slog.New(&slog.JSONHandler{}),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := router.NewRouter(store, vault,
		router.WithLogger(cfg.log),
		router.WithSecret(cfg.secret),
	)

	srv := &http.Server{
		Addr:              cfg.serverAddr,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return &Server{
		srv: srv,
		log: cfg.log,
	}, nil
}

func (s *Server) Start() error {
	s.log.Info(fmt.Sprintf("Starting server on %s", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	return nil
}
