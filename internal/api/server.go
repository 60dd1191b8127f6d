// Package api exposes the operator action surface and the observer query
// surface over HTTP. Mutations require a Bearer session token from the auth
// gate; queries are open.
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jensholdgaard/auctionboard/internal/auction"
	"github.com/jensholdgaard/auctionboard/internal/auth"
	"github.com/jensholdgaard/auctionboard/internal/health"
	"github.com/jensholdgaard/auctionboard/internal/poll"
	"github.com/jensholdgaard/auctionboard/internal/projection"
	"github.com/jensholdgaard/auctionboard/internal/store"
)

const defaultRecentSales = 10

type contextKey string

const sessionContextKey contextKey = "session"

// Server wires the engine, gate and projector into an HTTP handler.
type Server struct {
	log       *slog.Logger
	gate      *auth.Gate
	engine    *auction.Engine
	projector *projection.Projector
	refresher *poll.Refresher
	mux       *chi.Mux
}

// New builds the router. health may be nil in tests.
func New(logger *slog.Logger, gate *auth.Gate, engine *auction.Engine, projector *projection.Projector, refresher *poll.Refresher, healthHandler *health.Handler) *Server {
	s := &Server{
		log:       logger,
		gate:      gate,
		engine:    engine,
		projector: projector,
		refresher: refresher,
		mux:       chi.NewRouter(),
	}
	s.routes(healthHandler)
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes(healthHandler *health.Handler) {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if healthHandler != nil {
		r.Get("/healthz", healthHandler.LivenessHandler())
		r.Get("/readyz", healthHandler.ReadinessHandler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		// Observer query surface: open, read-only.
		r.Get("/standings", s.handleStandings)
		r.Get("/floor", s.handleCurrentItem)
		r.Get("/sales", s.handleRecentSales)
		r.Get("/pool", s.handlePool)
		r.Get("/teams/{name}", s.handleSquad)
		r.Get("/snapshot", s.handleSnapshot)

		// Operator action surface: requires a session.
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/auth/logout", s.handleLogout)
			r.Post("/teams", s.handleRegisterTeam)
			r.Post("/items", s.handleAddItem)
			r.Delete("/items/{id}", s.handleRemoveItem)
			r.Post("/floor", s.handleBringToFloor)
			r.Post("/items/{id}/bid", s.handlePlaceBid)
			r.Post("/items/{id}/sell", s.handleFinalizeSale)
			r.Post("/items/{id}/pass", s.handlePassItem)
			r.Post("/items/{id}/unsell", s.handleReverseSale)
			r.Post("/reset", s.handleReset)
		})
	})
}

// requireSession admits requests carrying a valid Bearer token.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, err := s.gate.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return sess
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeEngineError maps a state-machine failure onto an HTTP status; the
// operator always sees the specific reason.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	switch auction.Classify(err) {
	case auction.KindValidation:
		code = http.StatusBadRequest
	case auction.KindConflict:
		code = http.StatusConflict
	case auction.KindResource:
		code = http.StatusUnprocessableEntity
	case auction.KindNotFound:
		code = http.StatusNotFound
	default:
		code = http.StatusInternalServerError
		s.log.ErrorContext(r.Context(), "operation failed", slog.Any("error", err))
	}
	writeError(w, code, err.Error())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := s.gate.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.log.ErrorContext(r.Context(), "login failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess != nil {
		s.gate.Revoke(sess.Token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Budget int    `json:"budget"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	team, err := s.engine.RegisterTeam(r.Context(), req.Name, req.Budget)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.engine.AddItem(r.Context(), req.Name, store.Category(req.Category))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBringToFloor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
		Random bool   `json:"random"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		item *store.Item
		err  error
	)
	if req.Random {
		item, err = s.engine.BringRandomToFloor(r.Context())
	} else if req.ItemID != "" {
		item, err = s.engine.BringToFloor(r.Context(), req.ItemID)
	} else {
		writeError(w, http.StatusBadRequest, "item_id or random required")
		return
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team   string `json:"team"`
		Amount int    `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.engine.PlaceBid(r.Context(), chi.URLParam(r, "id"), req.Team, req.Amount)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleFinalizeSale(w http.ResponseWriter, r *http.Request) {
	item, err := s.engine.FinalizeSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handlePassItem(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.PassItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReverseSale(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ReverseSale(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := decodeJSON(r, &req); err != nil || !req.Confirm {
		writeError(w, http.StatusBadRequest, "reset requires confirmation")
		return
	}
	if err := s.engine.Reset(r.Context()); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := s.projector.Standings(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (s *Server) handleCurrentItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.projector.CurrentItem(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"current_item": item})
}

func (s *Server) handleRecentSales(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentSales
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	sales, err := s.projector.RecentSales(r.Context(), limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.projector.Pool(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func (s *Server) handleSquad(w http.ResponseWriter, r *http.Request) {
	team, items, err := s.projector.Squad(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team, "squad": items})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.refresher != nil {
		if snap := s.refresher.Latest(); snap != nil {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	// Cache not warmed yet; fall back to a live read.
	snap, err := s.projector.SnapshotAll(r.Context(), defaultRecentSales)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
