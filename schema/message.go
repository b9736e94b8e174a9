// Package schema defines the message, content, and tool vocabulary shared
// across the llm and optimize packages.
package schema

import "strings"

// Role identifies who authored a message in a conversation.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// Usage reports token accounting for a single generation.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CachedTokens int
}

// Message is a single turn in a conversation.
type Message interface {
	GetRole() Role
	GetContent() []ContentPart
	GetMetadata() map[string]any
	Text() string
}

func textFromParts(parts []ContentPart) string {
	var texts []string
	for _, p := range parts {
		if tp, ok := p.(TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// SystemMessage carries instructions that frame the conversation.
type SystemMessage struct {
	Parts    []ContentPart
	Metadata map[string]any
}

func NewSystemMessage(text string) *SystemMessage {
	return &SystemMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *SystemMessage) GetRole() Role                { return RoleSystem }
func (m *SystemMessage) GetContent() []ContentPart     { return m.Parts }
func (m *SystemMessage) GetMetadata() map[string]any   { return m.Metadata }
func (m *SystemMessage) Text() string                  { return textFromParts(m.Parts) }

// HumanMessage is a turn authored by the end user.
type HumanMessage struct {
	Parts    []ContentPart
	Metadata map[string]any
}

func NewHumanMessage(text string) *HumanMessage {
	return &HumanMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *HumanMessage) GetRole() Role              { return RoleHuman }
func (m *HumanMessage) GetContent() []ContentPart   { return m.Parts }
func (m *HumanMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *HumanMessage) Text() string                { return textFromParts(m.Parts) }

// AIMessage is a turn generated by a model, optionally requesting tool calls.
type AIMessage struct {
	Parts     []ContentPart
	Metadata  map[string]any
	ToolCalls []ToolCall
	Usage     Usage
	ModelID   string
}

func NewAIMessage(text string) *AIMessage {
	return &AIMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *AIMessage) GetRole() Role              { return RoleAI }
func (m *AIMessage) GetContent() []ContentPart   { return m.Parts }
func (m *AIMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *AIMessage) Text() string                { return textFromParts(m.Parts) }

// ToolMessage carries the result of a tool invocation back to the model.
type ToolMessage struct {
	Parts      []ContentPart
	Metadata   map[string]any
	ToolCallID string
}

func NewToolMessage(toolCallID, content string) *ToolMessage {
	return &ToolMessage{
		Parts:      []ContentPart{TextPart{Text: content}},
		ToolCallID: toolCallID,
	}
}

func (m *ToolMessage) GetRole() Role              { return RoleTool }
func (m *ToolMessage) GetContent() []ContentPart   { return m.Parts }
func (m *ToolMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *ToolMessage) Text() string                { return textFromParts(m.Parts) }
