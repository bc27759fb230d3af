package events

// EventData is the interface that all event data types must implement
type EventData interface {
	EventType() EventType
}

// BatchStartedData contains data for BatchStarted events
type BatchStartedData struct {
	RunID   string `json:"run_id"`
	Month   string `json:"month"`
	Tickers int    `json:"tickers"`
}

// EventType returns the event type for BatchStartedData
func (d *BatchStartedData) EventType() EventType {
	return BatchStarted
}

// TickerFetchedData contains data for TickerFetched events.
// Amounts are decimal strings.
type TickerFetchedData struct {
	RunID          string `json:"run_id"`
	Ticker         string `json:"ticker"`
	AmountPerShare string `json:"amount_per_share"`
	Total          string `json:"total"`
}

// EventType returns the event type for TickerFetchedData
func (d *TickerFetchedData) EventType() EventType {
	return TickerFetched
}

// TickerFailedData contains data for TickerFailed events
type TickerFailedData struct {
	RunID  string `json:"run_id"`
	Ticker string `json:"ticker"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// EventType returns the event type for TickerFailedData
func (d *TickerFailedData) EventType() EventType {
	return TickerFailed
}

// BatchCompletedData contains data for BatchCompleted events
type BatchCompletedData struct {
	RunID      string `json:"run_id"`
	Month      string `json:"month"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
}

// EventType returns the event type for BatchCompletedData
func (d *BatchCompletedData) EventType() EventType {
	return BatchCompleted
}

// FundsChangedData contains data for FundsChanged events
type FundsChangedData struct {
	Action  string   `json:"action"`
	Tickers []string `json:"tickers"`
}

// EventType returns the event type for FundsChangedData
func (d *FundsChangedData) EventType() EventType {
	return FundsChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
