package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/shapedrop/internal/realtime"
	"github.com/playperu/shapedrop/internal/session"
	"github.com/playperu/shapedrop/internal/store"
)

const wsWriteTimeout = 5 * time.Second

// handleWS streams session events to a websocket viewer. The first frame
// is a snapshot of the current state. Frames from the client are ignored.
func handleWS(logger *slog.Logger, sessions *session.Controller, broker *realtime.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)

		ch := broker.Subscribe(session.Channel(id))
		defer broker.Unsubscribe(session.Channel(id), ch)

		res, err := sessions.Init(r.Context(), id, "")
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		// CloseRead discards client frames and cancels ctx when the peer leaves.
		ctx := conn.CloseRead(r.Context())

		snapshot, err := json.Marshal(session.SnapshotEvent(res.SessionState))
		if err != nil {
			logger.Error("encoding snapshot", "session", id, "error", err)
			conn.Close(websocket.StatusInternalError, "encoding snapshot")
			return
		}
		if err := writeFrame(ctx, conn, snapshot); err != nil {
			logger.Debug("websocket write failed", "session", id, "error", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case data := <-ch:
				if err := writeFrame(ctx, conn, data); err != nil {
					logger.Debug("websocket write failed", "session", id, "error", err)
					return
				}
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
