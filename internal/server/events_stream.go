package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fiis/internal/events"
)

const (
	streamBufferSize  = 100
	heartbeatInterval = 30 * time.Second
)

// subscribeBuffered subscribes to the requested types (all when empty) and
// forwards events into a buffered channel. Events are dropped when the
// consumer falls behind. The returned function removes every subscription.
func subscribeBuffered(bus *events.Bus, types []events.EventType, log zerolog.Logger) (<-chan *events.Event, func()) {
	if len(types) == 0 {
		types = events.AllTypes
	}

	ch := make(chan *events.Event, streamBufferSize)
	handler := func(event *events.Event) {
		select {
		case ch <- event:
		default:
			log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}

	unsubscribers := make([]func(), 0, len(types))
	for _, eventType := range types {
		unsubscribers = append(unsubscribers, bus.Subscribe(eventType, handler))
	}

	return ch, func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

// parseTypesFilter reads a comma separated ?types= list, ignoring unknown names
func parseTypesFilter(raw string) []events.EventType {
	if raw == "" {
		return nil
	}

	known := make(map[events.EventType]bool, len(events.AllTypes))
	for _, t := range events.AllTypes {
		known[t] = true
	}

	var types []events.EventType
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.ToUpper(strings.TrimSpace(part)))
		if known[t] {
			types = append(types, t)
		}
	}
	return types
}

// EventsStreamHandler streams bus events as Server-Sent Events
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan, unsubscribe := subscribeBuffered(h.eventBus, parseTypesFilter(r.URL.Query().Get("types")), h.log)
	defer unsubscribe()

	h.log.Info().Str("types", r.URL.Query().Get("types")).Msg("Client connected to event stream")

	h.send(w, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	})
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.send(w, event)
			flusher.Flush()

		case <-heartbeat.C:
			h.send(w, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) send(w http.ResponseWriter, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
