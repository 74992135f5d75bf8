package httpapi

import (
	"net/http"

	"dpgdoc-backend-go/internal/services"

	"github.com/gorilla/websocket"
)

var metricsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 120)
	if limit > 1000 {
		limit = 1000
	}
	items, err := services.LatestMetrics(s.DB, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// MetricsSocket streams live samples to admins. Browsers cannot set an
// Authorization header on a websocket handshake, so the token rides in the
// query string instead.
func (s *Server) MetricsSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	user, err := s.resolveToken(tokenStr)
	if err != nil {
		if !mapServiceError(w, err) {
			WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		}
		return
	}
	if !user.IsAdmin() {
		WriteError(w, http.StatusForbidden, "Not enough permissions")
		return
	}

	conn, err := metricsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.MetricsHub.Add(conn)
	defer func() {
		s.MetricsHub.Remove(conn)
		_ = conn.Close()
	}()

	// Seed the client with recent history before live samples arrive.
	if history, err := services.LatestMetrics(s.DB, 60); err == nil {
		for _, sample := range history {
			if err := conn.WriteJSON(sample); err != nil {
				return
			}
		}
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
