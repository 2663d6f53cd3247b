package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
	"github.com/wricardo/xiangqi/stats"
)

// maxAnalyzeBody bounds POST /api/analyze request bodies
const maxAnalyzeBody = 16 << 10

// Connections reports the number of open peer connections
type Connections interface {
	ConnectionCount() int
}

// Server represents the inspection API and the WebSocket entry point
type Server struct {
	service service.LobbyService
	ws      http.Handler
	router  *mux.Router

	stats stats.Recorder
	rules engine.Rules
}

// Option configures a Server
type Option func(*Server)

// WithStats exposes player totals under /api/stats/{username}
func WithStats(r stats.Recorder) Option {
	return func(s *Server) { s.stats = r }
}

// WithRules sets the rules used by POST /api/analyze
func WithRules(r engine.Rules) Option {
	return func(s *Server) { s.rules = r }
}

// NewServer creates a new API server. ws serves /ws and may implement
// Connections to have its count reported by /api/status.
func NewServer(lobby service.LobbyService, ws http.Handler, opts ...Option) *Server {
	s := &Server{
		service: lobby,
		ws:      ws,
		router:  mux.NewRouter(),
		rules:   engine.DefaultRules,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/players", s.handleListPlayers).Methods("GET")

	// Games
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}/history", s.handleGetHistory).Methods("GET")

	api.HandleFunc("/analyze", s.handleAnalyze).Methods("POST")
	api.HandleFunc("/analyze", handleMethodNotAllowed)
	if s.stats != nil {
		api.HandleFunc("/stats/{username}", s.handleStats).Methods("GET")
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a service error code onto an HTTP status
func respondServiceError(w http.ResponseWriter, err error) {
	code := service.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case service.CodeGameNotFound, service.CodePlayerNotFound, service.CodeInvitationNotFound:
		status = http.StatusNotFound
	case service.CodeMalformedMessage, service.CodeIllegalMove:
		status = http.StatusBadRequest
	}
	msg := err.Error()
	var se *service.Error
	if errors.As(err, &se) {
		msg = se.Description()
	}
	respondJSON(w, status, map[string]string{"error": msg, "code": string(code)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status(r.Context())
	if c, ok := s.ws.(Connections); ok {
		st.Connections = c.ConnectionCount()
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players := s.service.Players(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(players),
		"players": players,
	})
}

// Game Handlers

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	sessions := s.service.Sessions(r.Context())
	total := len(sessions)

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "activity" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of games to return

	if sortBy != "created" {
		sortBy = "activity"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastActivity, sessions[j].LastActivity
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(sessions),
		"total": total,
		"games": sessions,
		"sort":  sortBy,
		"order": order,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Session(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "asc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.History(r.Context(), gameID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Layout []string    `json:"layout"`
	Turn   engine.Side `json:"turn"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	board, err := engine.ParseLayout(req.Layout)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	analysis, err := s.rules.Analyze(board, req.Turn)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	summary, err := s.stats.Get(r.Context(), username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"stats":    summary,
	})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
