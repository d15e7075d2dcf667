package types

import "strings"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser  Role = "user"  // RoleUser marks a turn written by the person asking.
	RoleModel Role = "model" // RoleModel marks a turn produced by the language model.
)

// NormalizeRole maps free-form role names onto the two roles the generation
// endpoint accepts. "assistant" becomes model; anything unknown becomes user.
func NormalizeRole(r string) Role {
	switch strings.ToLower(strings.TrimSpace(r)) {
	case "model", "assistant":
		return RoleModel
	default:
		return RoleUser
	}
}

// Turn is one entry of a caller-owned conversation history.
// Slice order is chronological and is the order sent to the model.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// NewUserTurn creates a user turn.
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// NewModelTurn creates a model turn.
func NewModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// Part is a single text fragment of a Content entry.
type Part struct {
	Text string `json:"text"`
}

// Content is one entry of the request "contents" list in the shape the
// generation endpoint expects.
type Content struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Text concatenates all part texts.
func (c Content) Text() string {
	if len(c.Parts) == 1 {
		return c.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
