package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"indgames/internal/auth"
	"indgames/internal/config"
	"indgames/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	Email string
}

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	auth   *auth.Verifier
	game   *game.Service
	sheets game.SheetSource
	mux    *chi.Mux
}

// New wires the router. sheetSource may be nil when no spreadsheet bridge
// is configured; the sync endpoint then reports it as unavailable.
func New(cfg config.APIConfig, logger *slog.Logger, verifier *auth.Verifier, gameSvc *game.Service, sheetSource game.SheetSource) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		auth:   verifier,
		game:   gameSvc,
		sheets: sheetSource,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(rateLimit(s.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/chapters", s.handleChapters)
		r.Get("/chapters/{id}/members", s.handleChapterMembers)
		r.Get("/scoring/leaderboard", s.handleLeaderboard)
		r.Get("/scoring/individual/{memberId}", s.handleIndividual)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/scoring/weekly", s.handleWeeklySubmit)
			r.Post("/metrics/game", s.handleGameMetrics)
			r.Post("/sheets/sync", s.handleSheetSync)
			r.Get("/audit/logs", s.handleAuditLogs)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.auth.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{Email: claims.Email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) UserContext {
	user, _ := ctx.Value(userContextKey).(UserContext)
	return user
}

// submitterIdentity prefers the verified token email for audit rows and
// falls back to the caller-supplied value when the token carries no email
// claim.
func submitterIdentity(ctx context.Context, fromBody string) string {
	if email := strings.TrimSpace(userFromContext(ctx).Email); email != "" {
		return email
	}
	return strings.TrimSpace(fromBody)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"environment": s.cfg.Environment,
		"weekNumber":  s.game.CurrentWeek(),
		"gameActive":  s.game.GameActive(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListChapters(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": out})
}

func (s *Server) handleChapterMembers(w http.ResponseWriter, r *http.Request) {
	chapterID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chapter id")
		return
	}
	out, err := s.game.ChapterMembers(r.Context(), chapterID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": out})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Leaderboard(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIndividual(w http.ResponseWriter, r *http.Request) {
	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}
	out, err := s.game.MemberDetail(r.Context(), memberID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWeeklySubmit(w http.ResponseWriter, r *http.Request) {
	var in game.WeeklySubmission
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.SubmittedBy = submitterIdentity(r.Context(), in.SubmittedBy)
	processed, err := s.game.SubmitWeekly(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"entriesProcessed": processed,
	})
}

func (s *Server) handleGameMetrics(w http.ResponseWriter, r *http.Request) {
	var in game.GameMetricsInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.SubmittedBy = submitterIdentity(r.Context(), "")
	if err := s.game.UpdateGameMetrics(r.Context(), in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSheetSync(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "sheet sync is not configured")
		return
	}
	out, err := s.game.RunSheetSync(r.Context(), s.sheets)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"rowsProcessed": out.RowsProcessed,
		"totalRows":     out.TotalRows,
		"pushed":        out.Pushed,
	})
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 100)
	out, err := s.game.AuditLogs(r.Context(), page, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// writeDomainError maps sentinel errors to status codes. Store and
// invariant failures are logged with the request id and reported as a
// generic 500 so internals never leak to callers.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		s.log.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON tolerates unknown fields: submission rows arrive with extra
// spreadsheet columns alongside the scored ones.
func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
