// Package llm provides the LLM abstraction layer SIMBA's resilient client
// builds on. It defines the ChatModel interface that a chat backend
// implements and the functional-options type used to configure a call.
package llm

import (
	"context"

	"github.com/lookatitude/simba/schema"
)

// ChatModel is the interface a chat backend implements so SIMBA's Client
// (optimize/simba.Client) can drive it uniformly: send a batch of messages,
// get back a complete response.
type ChatModel interface {
	// Generate sends a batch of messages and returns a complete AI response.
	Generate(ctx context.Context, msgs []schema.Message, opts ...GenerateOption) (*schema.AIMessage, error)

	// ModelID returns the identifier of the underlying model (e.g. "gpt-4o").
	ModelID() string
}
