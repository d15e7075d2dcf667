// Package prompts converts conversation history, page context and a question
// into the contents list sent to the generation endpoint.
package prompts

import (
	"strings"

	"github.com/entrhq/pagechat/pkg/types"
)

// ToModelContents maps history turns 1:1 onto endpoint contents, preserving
// order. Roles are normalized to user/model.
func ToModelContents(history []types.Turn) []types.Content {
	contents := make([]types.Content, 0, len(history))
	for _, turn := range history {
		contents = append(contents, types.Content{
			Role:  types.NormalizeRole(string(turn.Role)),
			Parts: []types.Part{{Text: turn.Text}},
		})
	}
	return contents
}

// BuildUserTurn combines the instruction header, the literal question and,
// when contextChunk is non-empty, a delimited page context block.
func BuildUserTurn(question, contextChunk string) types.Content {
	var b strings.Builder
	b.WriteString(InstructionHeader)
	b.WriteString("\n\n")
	b.WriteString(QuestionLabel)
	b.WriteString("\n")
	b.WriteString(question)
	if contextChunk != "" {
		b.WriteString("\n\n")
		b.WriteString(PageContextBegin)
		b.WriteString("\n")
		b.WriteString(contextChunk)
		b.WriteString("\n")
		b.WriteString(PageContextEnd)
		b.WriteString("\n")
	}
	return types.Content{
		Role:  types.RoleUser,
		Parts: []types.Part{{Text: b.String()}},
	}
}

// BuildContents returns the history contents followed by the new user turn.
func BuildContents(history []types.Turn, question, contextChunk string) []types.Content {
	return NewBuilder().
		WithHistory(history).
		WithQuestion(question).
		WithContext(contextChunk).
		Build()
}

// Builder assembles a request's contents step by step.
type Builder struct {
	history  []types.Turn
	question string
	context  string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithHistory sets the prior conversation. The slice is only read.
func (b *Builder) WithHistory(history []types.Turn) *Builder {
	b.history = history
	return b
}

// WithQuestion sets the user question.
func (b *Builder) WithQuestion(question string) *Builder {
	b.question = question
	return b
}

// WithContext sets the composed page context.
func (b *Builder) WithContext(contextChunk string) *Builder {
	b.context = contextChunk
	return b
}

// Build returns a fresh contents slice.
func (b *Builder) Build() []types.Content {
	contents := ToModelContents(b.history)
	return append(contents, BuildUserTurn(b.question, b.context))
}
