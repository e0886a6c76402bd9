package handler

import (
	"net/http"
	"time"

	"foodorder/internal/notifier"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxInboundSize = 512
)

// WSHandler streams order events to connected viewers. Clients only listen.
type WSHandler struct {
	hub      *notifier.Hub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewWSHandler accepts any origin when allowedOrigin is empty.
func NewWSHandler(hub *notifier.Hub, allowedOrigin string, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.serve)
}

func (h *WSHandler) serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.log.WithError(err).Debug("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	subID, frames, cancel := h.hub.Subscribe()
	defer cancel()

	log := h.log.WithField("subscriber", subID)
	log.Info("websocket connected")
	defer log.Info("websocket disconnected")

	done := make(chan struct{})
	go readUntilClosed(conn, done)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil

		case frame, ok := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return nil
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readUntilClosed discards inbound messages and keeps pong deadlines fresh.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(wsMaxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
