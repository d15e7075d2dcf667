package types

// StreamDelta is one incremental fragment of model text. StreamID ties it to
// the request that produced it so hosts can drop deltas of abandoned requests.
type StreamDelta struct {
	StreamID string `json:"stream_id"`
	Text     string `json:"delta"`
}

// EventType defines the kind of event a host relays to its UI.
type EventType string

const (
	EventTypeDelta  EventType = "delta"  // EventTypeDelta carries a StreamDelta.
	EventTypeResult EventType = "result" // EventTypeResult carries the final AskResponse.
)

// Event is the envelope hosts use to forward orchestrator output.
type Event struct {
	Type     EventType    `json:"type"`
	Delta    *StreamDelta `json:"delta,omitempty"`
	Response *AskResponse `json:"response,omitempty"`
}

// NewDeltaEvent wraps a delta.
func NewDeltaEvent(d StreamDelta) *Event {
	return &Event{Type: EventTypeDelta, Delta: &d}
}

// NewResultEvent wraps a final response.
func NewResultEvent(r AskResponse) *Event {
	return &Event{Type: EventTypeResult, Response: &r}
}
