package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"takkeh/internal/database"
	"takkeh/internal/domain"
	"takkeh/internal/service"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (domain.Principal, error)
}

type Deps struct {
	DB       database.Service
	Tokens   TokenVerifier
	Accounts service.AccountService
	Orders   service.OrderService
	Catalog  service.CatalogService
	Social   service.SocialService
	Logger   *slog.Logger
}

type Options struct {
	Port        int
	CORSOrigins []string
	Production  bool
}

type Server struct {
	port        int
	corsOrigins []string
	production  bool

	db       database.Service
	tokens   TokenVerifier
	accounts service.AccountService
	orders   service.OrderService
	catalog  service.CatalogService
	social   service.SocialService
	logger   *slog.Logger
}

func New(opts Options, deps Deps) *Server {
	return &Server{
		port:        opts.Port,
		corsOrigins: opts.CORSOrigins,
		production:  opts.Production,
		db:          deps.DB,
		tokens:      deps.Tokens,
		accounts:    deps.Accounts,
		orders:      deps.Orders,
		catalog:     deps.Catalog,
		social:      deps.Social,
		logger:      deps.Logger.With("component", "http"),
	}
}

// HTTPServer wraps the routes in a configured *http.Server.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
