package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/ashureev/syncup/internal/identity"
	"github.com/coder/websocket"
)

const eventWriteTimeout = 5 * time.Second

type wsMessage struct {
	Type string `json:"type"`
}

// SetOriginPatterns restricts which origins may open the event stream.
// Full origins such as "https://app.example.com" are reduced to their host.
func (h *Handler) SetOriginPatterns(origins []string, isDev bool) {
	h.isDev = isDev
	h.originPatterns = h.originPatterns[:0]
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			h.originPatterns = append(h.originPatterns, u.Host)
			continue
		}
		h.originPatterns = append(h.originPatterns, o)
	}
}

// Events streams chat events for the caller's device over a WebSocket.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	a := h.session(r)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: h.isDev,
	})
	if err != nil {
		h.logger.Warn("Failed to accept WebSocket", "error", err, "device_id", deviceID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "device_id", deviceID)
		}
	}()

	events, unsubscribe := a.Events().Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		h.readLoop(ctx, ws, deviceID)
	}()

	h.logger.Debug("Event stream opened", "device_id", deviceID)
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Event stream closed", "device_id", deviceID)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.Touch()
			if err := writeJSON(ctx, ws, e); err != nil {
				h.logger.Debug("Failed to write event", "error", err, "device_id", deviceID)
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, deviceID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client", "device_id", deviceID)
			} else if ctx.Err() == nil {
				h.logger.Warn("WebSocket read error", "error", err, "device_id", deviceID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if err := writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				h.logger.Debug("Failed to send pong", "error", err)
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
