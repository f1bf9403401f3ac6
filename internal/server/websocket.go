package server

import (
	"bytes"
	"encoding/json"
	"image"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 16 * 1024,
	// Frames come from local capture tooling, not browsers with
	// credentials; origin checks stay permissive.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket streams frames in and token results out. Each binary
// message is one encoded image; each reply is one TokenResponse JSON
// text message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	s.logger.Debug("websocket client connected", slog.String("remote", r.RemoteAddr))

	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	if maxBytes > 0 {
		conn.SetReadLimit(maxBytes)
	}

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", slog.Any("error", err))
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		uploadSizeBytes.Observe(float64(len(payload)))

		img, _, err := image.Decode(bytes.NewReader(payload))
		if err != nil {
			frameRequestsTotal.WithLabelValues("websocket", "decode_error").Inc()
			if writeErr := s.writeJSON(conn, TokenResponse{Found: false}); writeErr != nil {
				return
			}
			continue
		}

		resp := s.processOne(img, "websocket")
		if err := s.writeJSON(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
