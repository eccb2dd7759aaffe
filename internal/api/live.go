package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const liveWriteTimeout = 5 * time.Second

// handleLive streams activity events to an instructor over a websocket.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	// The server write timeout would otherwise cut long-lived feeds.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err, "request_id", RequestIDFrom(r.Context()))
		return
	}
	defer conn.CloseNow()

	events, cancel := s.hub.Subscribe()
	defer cancel()

	account := accountFrom(r.Context())
	slog.Info("live feed opened", "account_id", account.ID)

	// Instructors never send; CloseRead handles control frames and cancels
	// ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			slog.Info("live feed closed", "account_id", account.ID)
			return
		case e, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, done := context.WithTimeout(ctx, liveWriteTimeout)
			err := wsjson.Write(wctx, conn, e)
			done()
			if err != nil {
				slog.Warn("live feed write failed", "account_id", account.ID, "error", err)
				return
			}
		}
	}
}
