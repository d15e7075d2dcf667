package types

// AskRequest is the inbound call a host makes for one user question.
type AskRequest struct {
	// TabID identifies the browser tab the question is about.
	TabID string `json:"tab_id"`

	// Question is the literal user question.
	Question string `json:"question"`

	// History is the prior conversation for this tab. It is read, never mutated.
	History []Turn `json:"history,omitempty"`

	// IncludePage sends page metadata and body text, not only the selection.
	IncludePage bool `json:"include_page"`

	// StreamID tags every delta emitted for this request.
	StreamID string `json:"stream_id"`

	// StreamingAllowed lets the host veto streaming for this call even when
	// settings enable it.
	StreamingAllowed bool `json:"stream"`
}
