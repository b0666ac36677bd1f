package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/infra/logging"
	"glyph-dict-activation/internal/infra/metrics"
	red "glyph-dict-activation/internal/infra/redis"
	"glyph-dict-activation/internal/usecase"
)

// ActivationService is the slice of the activation use case the public API
// needs.
type ActivationService interface {
	Activate(ctx context.Context, deviceID, code string) (*model.DeviceBinding, error)
	CheckStatus(ctx context.Context, deviceID string) (model.EntitlementStatus, error)
	Guard(ctx context.Context, deviceID string) error
}

// GlyphService is the slice of the dictionary use case the public API needs.
type GlyphService interface {
	Identities(glyph string) ([]usecase.Identity, error)
	Search(searchType, query string) ([]*model.GlyphEntry, error)
}

// Limiter gates activation attempts per device.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Server is the client-facing HTTP surface: activation, status checks and
// the entitlement-gated dictionary endpoints.
type Server struct {
	activation    ActivationService
	glyphs        GlyphService
	limiter       Limiter
	activateLimit int
	log           *zerolog.Logger
}

func NewServer(activation ActivationService, glyphs GlyphService, limiter Limiter, activatePerMinute int, logger *zerolog.Logger) *Server {
	if activatePerMinute <= 0 {
		activatePerMinute = 10
	}
	return &Server{
		activation:    activation,
		glyphs:        glyphs,
		limiter:       limiter,
		activateLimit: activatePerMinute,
		log:           logger,
	}
}

// Router assembles the chi router with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Timeout(10*time.Second))

	r.Post("/activate", s.handleActivate)
	r.Post("/check_status", s.handleCheckStatus)
	r.Post("/get_identities", s.handleIdentities)
	r.Post("/advanced_search", s.handleSearch)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return r
}

type activateRequest struct {
	MachineID string `json:"machine_id"`
	Code      string `json:"code"`
}

type statusRequest struct {
	MachineID string `json:"machine_id"`
}

type identitiesRequest struct {
	MachineID string `json:"machine_id"`
	Char      string `json:"char"`
}

type searchRequest struct {
	MachineID  string `json:"machine_id"`
	SearchType string `json:"search_type"`
	Query      string `json:"query"`
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MachineID == "" || req.Code == "" {
		s.writeDomainError(w, r, domain.ErrInvalidArgument)
		return
	}
	ctx := logging.WithDeviceID(r.Context(), req.MachineID)

	allowed, err := s.limiter.Allow(ctx, red.DeviceActivateKey(req.MachineID), s.activateLimit, time.Minute)
	if err != nil {
		// The limiter is advisory; a Redis hiccup must not block redemption.
		logging.With(ctx, s.log).Warn().Err(err).Msg("rate limiter unavailable")
	} else if !allowed {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "请求过于频繁，请稍后再试")
		return
	}

	b, err := s.activation.Activate(ctx, req.MachineID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCode):
			metrics.IncActivation("invalid_code")
		case errors.Is(err, domain.ErrAlreadyBound):
			metrics.IncActivation("already_bound")
		default:
			metrics.IncActivation("fault")
		}
		s.writeDomainError(w, r, err)
		return
	}

	metrics.IncActivation("success")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "激活成功！",
		"card_type":  b.PlanType,
		"expires_at": formatUTC(b.ExpiresAt),
	})
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MachineID == "" {
		s.writeDomainError(w, r, domain.ErrInvalidArgument)
		return
	}
	ctx := logging.WithDeviceID(r.Context(), req.MachineID)

	st, err := s.activation.CheckStatus(ctx, req.MachineID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := map[string]interface{}{"status": string(st.State)}
	if st.State != model.StateUnactivated {
		resp["expires_at"] = formatUTC(st.ExpiresAt)
	}
	if st.State == model.StateActivated {
		resp["card_type"] = st.PlanType
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIdentities(w http.ResponseWriter, r *http.Request) {
	var req identitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MachineID == "" || req.Char == "" {
		s.writeDomainError(w, r, domain.ErrInvalidArgument)
		return
	}
	ctx := logging.WithDeviceID(r.Context(), req.MachineID)

	if !s.guard(ctx, w, r, req.MachineID) {
		return
	}

	metrics.IncLookup("identities")
	ids, err := s.glyphs.Identities(req.Char)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "字典中未找到 '"+req.Char+"'")
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MachineID == "" || req.SearchType == "" {
		s.writeDomainError(w, r, domain.ErrInvalidArgument)
		return
	}
	ctx := logging.WithDeviceID(r.Context(), req.MachineID)

	if !s.guard(ctx, w, r, req.MachineID) {
		return
	}

	metrics.IncLookup(req.SearchType)
	results, err := s.glyphs.Search(req.SearchType, req.Query)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if results == nil {
		results = []*model.GlyphEntry{}
	}
	writeJSON(w, http.StatusOK, results)
}

// guard applies the entitlement check and writes the rejection itself.
// Returns true when the request may proceed. Content endpoints never run
// before this passes.
func (s *Server) guard(ctx context.Context, w http.ResponseWriter, r *http.Request, deviceID string) bool {
	err := s.activation.Guard(ctx, deviceID)
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		metrics.IncGuardRejection("unauthorized")
	case errors.Is(err, domain.ErrExpired):
		metrics.IncGuardRejection("expired")
		logging.With(ctx, s.log).Warn().Msg("expired device attempted access")
	}
	s.writeDomainError(w, r, err)
	return false
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusForbidden, "invalid_code", "无效的激活码")
	case errors.Is(err, domain.ErrAlreadyBound):
		writeError(w, http.StatusConflict, "already_bound", "操作失败")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", "未经授权")
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusForbidden, "expired", "订阅已过期")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "未找到")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "bad_request", "无效请求")
	default:
		// Server fault: full detail to the log, generic message outward.
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "服务器内部错误")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"kind": kind, "message": message},
	})
}

func formatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
