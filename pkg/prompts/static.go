package prompts

// InstructionHeader opens every user turn sent to the model.
const InstructionHeader = "You are an assistant embedded in a browser side panel. " +
	"Use only the provided PAGE content (and selection when present) to answer precisely. " +
	"Quote and cite with short snippets when helpful. If info is not in PAGE, say so succinctly."

// Markers framing the composed page context inside the user turn.
const (
	QuestionLabel    = "USER QUESTION:"
	PageContextBegin = "PAGE CONTEXT BEGIN"
	PageContextEnd   = "PAGE CONTEXT END"
)
