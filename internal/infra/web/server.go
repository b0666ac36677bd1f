package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

// ReportingService serves the paginated admin listings.
type ReportingService interface {
	ListCodes(ctx context.Context, filter repository.CodeFilter, page repository.Page) ([]*model.ActivationCode, int, error)
	ListBindings(ctx context.Context, filter repository.BindingFilter, page repository.Page) ([]*model.DeviceBinding, int, error)
}

// AdminActivationService covers the mutating admin operations.
type AdminActivationService interface {
	Generate(ctx context.Context, n int, planType string) ([]string, error)
	Revoke(ctx context.Context, deviceID string) error
}

// IndexService rebuilds the glyph index snapshot on demand.
type IndexService interface {
	Rebuild(ctx context.Context) error
	Count() int
}

// Limiter gates code generation per admin session.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Server is the admin HTTP surface: session login, code generation,
// listings, revocation, index reload and metrics exposition. It listens on
// its own port, never reachable through the client API.
type Server struct {
	reporting    ReportingService
	activation   AdminActivationService
	index        IndexService
	auth         *AuthManager
	limiter      Limiter
	passwordHash string
	log          *zerolog.Logger
}

func NewServer(
	reporting ReportingService,
	activation AdminActivationService,
	index IndexService,
	auth *AuthManager,
	limiter Limiter,
	passwordHash string,
	logger *zerolog.Logger,
) *Server {
	if passwordHash == "" {
		logger.Warn().Msg("admin password hash is not configured; admin login is disabled")
	}
	return &Server{
		reporting:    reporting,
		activation:   activation,
		index:        index,
		auth:         auth,
		limiter:      limiter,
		passwordHash: passwordHash,
		log:          logger,
	}
}

// Router assembles the admin routes. Everything except login sits behind
// the session middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/admin/login", s.handleLogin)
	r.Post("/admin/logout", s.handleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(s.auth.Middleware)
		pr.Get("/api/v1/admin/codes", s.handleListCodes)
		pr.Get("/api/v1/admin/bindings", s.handleListBindings)
		pr.Post("/api/v1/admin/codes/generate", s.handleGenerate)
		pr.Post("/api/v1/admin/revoke", s.handleRevoke)
		pr.Post("/api/v1/admin/index/reload", s.handleIndexReload)
		pr.Handle("/metrics", promhttp.Handler())
	})
	return r
}
