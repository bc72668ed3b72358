package websocket

import (
	"net/http"

	"factory-tracker/internal/session"
	"factory-tracker/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the admin dashboard and driver app are served from other origins
		return true
	},
}

// HandleWebSocket upgrades HTTP connection to WebSocket. An optional
// ?token= session token from login puts the socket straight into that
// driver's room; everything else is joined with messages.
func HandleWebSocket(hub *Hub, tokens *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var driverID string
		if tokenString := r.URL.Query().Get("token"); tokenString != "" {
			id, err := tokens.Parse(tokenString)
			if err != nil {
				hub.log.Warn("❌ invalid token in query parameter", zap.Error(err))
				utils.RespondError(w, http.StatusUnauthorized, "invalid session token")
				return
			}
			driverID = id
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("❌ websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(hub, conn)
		if !hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		if driverID != "" {
			if err := client.JoinDriverRoom(driverID); err != nil {
				hub.log.Warn("⚠️ could not join driver room", zap.String("driver_id", driverID), zap.Error(err))
			}
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
