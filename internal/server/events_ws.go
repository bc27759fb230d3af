package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/fiis/internal/events"
)

const wsWriteTimeout = 5 * time.Second

// EventsWebSocketHandler pushes bus events to websocket clients as JSON text frames
type EventsWebSocketHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsWebSocketHandler creates a new websocket events handler
func NewEventsWebSocketHandler(eventBus *events.Bus, log zerolog.Logger) *EventsWebSocketHandler {
	return &EventsWebSocketHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws
func (h *EventsWebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so no event published after
	// the client sees the upgrade is missed
	eventChan, unsubscribe := subscribeBuffered(h.eventBus, parseTypesFilter(r.URL.Query().Get("types")), h.log)
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Same-origin policy is as open as the CORS settings
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket handshake failed")
		return
	}
	defer conn.CloseNow()

	// Incoming frames are ignored; CloseRead cancels ctx when the client goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Msg("Client connected to websocket event stream")

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Websocket client disconnected")
			return

		case event := <-eventChan:
			if err := h.write(ctx, conn, event); err != nil {
				status := websocket.CloseStatus(err)
				if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
					h.log.Warn().Err(err).Msg("Failed to write websocket event")
				}
				return
			}
		}
	}
}

func (h *EventsWebSocketHandler) write(ctx context.Context, conn *websocket.Conn, event *events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
