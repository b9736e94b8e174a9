package schema

// ToolCall is a model-requested invocation of a named tool, carried on an
// AIMessage and echoed back via ToolMessage.ToolCallID.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}
