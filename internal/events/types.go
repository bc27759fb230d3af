// Package events provides in-process publication of batch progress so the
// websocket stream and logs can observe fetch runs as they happen.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	BatchStarted   EventType = "BATCH_STARTED"
	TickerFetched  EventType = "TICKER_FETCHED"
	TickerFailed   EventType = "TICKER_FAILED"
	BatchCompleted EventType = "BATCH_COMPLETED"
	FundsChanged   EventType = "FUNDS_CHANGED"
	ErrorOccurred  EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, in no particular order
var AllTypes = []EventType{
	BatchStarted,
	TickerFetched,
	TickerFailed,
	BatchCompleted,
	FundsChanged,
	ErrorOccurred,
}

// Event is one published occurrence
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data,omitempty"`
}
