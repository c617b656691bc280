package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 20 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// SolveEventsHandler handles GET /v1/solves/{id}/events. It upgrades to a
// WebSocket and forwards every event of that solve as a JSON message until
// the solve reaches a terminal event or the client goes away. Only solves
// posted under the caller's tenant are visible. Clients that pick their own
// solveId can subscribe before posting the solve.
func (s *Server) SolveEventsHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "events" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanSolve() {
		writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	solveID := parts[0]

	// subscribe before the handshake completes so a solve posted right after
	// the dial cannot race ahead of the subscription
	topic := eventTopic(p.Tenant, solveID)
	ch := s.Broker.Subscribe(topic)
	defer s.Broker.Unsubscribe(topic, ch)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var wmu sync.Mutex
	write := func(msgType int, v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if v == nil {
			return conn.WriteMessage(msgType, nil)
		}
		return conn.WriteJSON(v)
	}

	// Read loop: only control frames are expected; it ends when the client closes.
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); return nil })
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(websocket.TextMessage, evt); err != nil {
				s.Log.Debug("ws write failed", zap.String("solve_id", solveID), zap.Error(err))
				return
			}
			switch evt.Type {
			case EventSolveCompleted, EventSolveInfeasible, EventSolveFailed:
				wmu.Lock()
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, evt.Type), time.Now().Add(wsWriteTimeout))
				wmu.Unlock()
				return
			}
		}
	}
}
