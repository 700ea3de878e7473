package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/seatbus-monitor/internal/metrics"
	"github.com/DoyleJ11/seatbus-monitor/internal/store"
	"github.com/DoyleJ11/seatbus-monitor/internal/types"
)

const (
	outboxSize   = 8
	writeTimeout = 3 * time.Second
)

// Handler streams every recorded snapshot to a viewer, starting with the
// current one. Viewers only listen; anything they send closes the socket.
func Handler(st *store.Store, originPatterns []string, log *zap.Logger, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan store.Update, outboxSize)
		clientID := uuid.NewString()

		if err := st.Subscribe(r.Context(), clientID, out); err != nil {
			conn.Close(websocket.StatusTryAgainLater, "store unavailable")
			return
		}
		defer func() { _ = st.Unsubscribe(context.Background(), clientID) }()

		m.ViewerJoined()
		defer m.ViewerLeft()
		log.Debug("viewer connected", zap.String("client_id", clientID))

		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				return

			case <-st.Done():
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return

			case u, ok := <-out:
				if !ok {
					// dropped as too slow, or the store shut down
					conn.Close(websocket.StatusGoingAway, "feed closed")
					return
				}
				msg := types.ServerMessage{Type: "Snapshot", Version: u.Version, Snapshot: &u.Snapshot}
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("encode snapshot", zap.Error(err))
					continue
				}
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err = conn.Write(wctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					log.Debug("viewer write failed", zap.String("client_id", clientID), zap.Error(err))
					return
				}
			}
		}
	}
}

// OriginPatterns turns allowed CORS origins (full URLs) into the host
// patterns the websocket handshake checks against.
func OriginPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
