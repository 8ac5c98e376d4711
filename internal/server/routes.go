package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/lucasmv/wordclash-backend/internal/game"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(s.corsMiddleware)

	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/session", s.CreateSessionHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/rooms/{code}", s.RoomSnapshotHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms/{code}/qr", s.RoomQRHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/stats/{userId}", s.UserStatsHandler).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.HandleWebSocket)

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  s.registry.RoomCount(),
	})
}

// CreateSessionHandler mints a guest token so the browser has a stable
// identity across reconnects.
func (s *Server) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := game.SanitizePlayerName(req.Name)
	token, userID, err := s.sessions.IssueGuestToken(name)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue guest token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not create session"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":  token,
		"userId": userID,
		"name":   name,
	})
}

// RoomSnapshotHandler returns the public room state, mainly so a join page
// can show the lobby before opening the socket.
func (s *Server) RoomSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	room, ok := s.registry.Room(code)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}

	room.Mu.Lock()
	payload := room.Payload()
	room.Mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

// RoomQRHandler renders the join link for a room as a QR PNG.
func (s *Server) RoomQRHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	room, ok := s.registry.Room(code)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}

	joinURL := s.cfg.BaseURL() + "/join/" + room.Code
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		s.log.Error().Err(err).Str("room", room.Code).Msg("failed to render join QR")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not render QR code"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// UserStatsHandler returns per-mode counters for one user. 404s when no
// database is configured.
func (s *Server) UserStatsHandler(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "stats persistence is disabled"})
		return
	}
	userID := mux.Vars(r)["userId"]
	rows, err := s.stats.FetchUserStats(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to fetch user stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not fetch stats"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "stats": rows})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
