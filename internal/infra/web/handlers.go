package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/ports/repository"
	"glyph-dict-activation/internal/infra/metrics"
	red "glyph-dict-activation/internal/infra/redis"
	"glyph-dict-activation/internal/infra/security"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.passwordHash == "" {
		s.log.Error().Msg("admin login attempted but no password hash is configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !security.VerifyPassword(s.passwordHash, req.Password) {
		s.log.Warn().Msg("failed admin login attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("mint admin session")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	s.log.Info().Msg("admin logged in")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// pageResponse is the common paginated listing envelope.
type pageResponse struct {
	Items   interface{} `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func parsePage(r *http.Request) repository.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return repository.Page{Number: page, PerPage: perPage}
}

type codeItem struct {
	Code      string  `json:"code"`
	CardType  string  `json:"card_type"`
	UsedBy    *string `json:"used_by"`
	CreatedAt string  `json:"created_at"`
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.CodeFilter{
		Search:     q.Get("search"),
		UnusedOnly: q.Get("unused_only") == "true",
	}
	page := parsePage(r)

	codes, total, err := s.reporting.ListCodes(r.Context(), filter, page)
	if err != nil {
		s.log.Error().Err(err).Msg("list codes")
		http.Error(w, "Failed to list codes", http.StatusInternalServerError)
		return
	}

	items := make([]codeItem, 0, len(codes))
	for _, c := range codes {
		items = append(items, codeItem{
			Code:      c.Code,
			CardType:  c.PlanType,
			UsedBy:    c.RedeemedBy,
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, pageResponse{Items: items, Total: total, Page: max(page.Number, 1), PerPage: page.PerPage})
}

type bindingItem struct {
	MachineID      string `json:"machine_id"`
	ActivationCode string `json:"activation_code"`
	CardType       string `json:"card_type"`
	ActivatedAt    string `json:"activated_at"`
	ExpiresAt      string `json:"expires_at"`
}

func (s *Server) handleListBindings(w http.ResponseWriter, r *http.Request) {
	filter := repository.BindingFilter{Search: r.URL.Query().Get("search")}
	page := parsePage(r)

	bindings, total, err := s.reporting.ListBindings(r.Context(), filter, page)
	if err != nil {
		s.log.Error().Err(err).Msg("list bindings")
		http.Error(w, "Failed to list bindings", http.StatusInternalServerError)
		return
	}

	items := make([]bindingItem, 0, len(bindings))
	for _, b := range bindings {
		items = append(items, bindingItem{
			MachineID:      b.DeviceID,
			ActivationCode: b.ActivationCode,
			CardType:       b.PlanType,
			ActivatedAt:    b.ActivatedAt.UTC().Format(time.RFC3339),
			ExpiresAt:      b.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, pageResponse{Items: items, Total: total, Page: max(page.Number, 1), PerPage: page.PerPage})
}

type generateRequest struct {
	Quantity int    `json:"quantity"`
	CardType string `json:"card_type"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	allowed, err := s.limiter.Allow(r.Context(), red.AdminGenerateKey("admin"), 10, time.Minute)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limiter unavailable")
	} else if !allowed {
		http.Error(w, "Too many generation requests", http.StatusTooManyRequests)
		return
	}

	codes, err := s.activation.Generate(r.Context(), req.Quantity, req.CardType)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrUnknownPlan) {
			http.Error(w, "Invalid quantity or card type", http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Msg("generate codes")
		http.Error(w, "Failed to generate codes", http.StatusInternalServerError)
		return
	}

	metrics.AddCodesGenerated(len(codes))
	s.log.Info().Int("quantity", len(codes)).Str("card_type", req.CardType).Msg("admin generated activation codes")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"codes":     codes,
		"card_type": req.CardType,
	})
}

type revokeRequest struct {
	MachineID string `json:"machine_id"`
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MachineID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.activation.Revoke(r.Context(), req.MachineID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
		s.log.Error().Err(err).Str("machine_id", req.MachineID).Msg("revoke authorization")
		http.Error(w, "Failed to revoke", http.StatusInternalServerError)
		return
	}

	metrics.IncRevocation()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleIndexReload(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Rebuild(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("rebuild glyph index")
		http.Error(w, "Failed to rebuild index", http.StatusInternalServerError)
		return
	}
	n := s.index.Count()
	metrics.SetGlyphIndexEntries(n)
	writeJSON(w, http.StatusOK, map[string]int{"entries": n})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
