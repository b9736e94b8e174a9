package simba

import (
	"context"
	"fmt"

	"github.com/lookatitude/simba/optimize"
	"github.com/lookatitude/simba/schema"
)

// Executor renders a Program's prompt for one set of inputs, calls a
// Client, and parses the response back into structured outputs. It is the
// RunFunc every Program is bound to, and the thing SIMBA calls once per
// (example, variant) pair during trajectory collection.
type Executor struct {
	client *Client
}

// NewExecutor builds an Executor calling through client.
func NewExecutor(client *Client) *Executor {
	return &Executor{client: client}
}

// Run implements RunFunc: it validates that inputs cover every required
// input field, renders the system prompt (instruction + demos formatted as
// alternating user/assistant turns) plus a final user turn carrying
// inputs, calls the client, and parses the response through sig.Parse.
// Client errors are returned verbatim; callers time the call themselves to
// populate Trajectory.DurationMS.
func (e *Executor) Run(ctx context.Context, sig optimize.Signature, instruction string, demos []Demo, modelConfig map[string]any, inputs map[string]any) (optimize.Prediction, error) {
	for _, f := range sig.GetInputFields() {
		if !f.Required {
			continue
		}
		if _, ok := inputs[f.Name]; !ok {
			return optimize.Prediction{}, fmt.Errorf("simba: executor: missing required input field %q", f.Name)
		}
	}

	turns := make([]Turn, 0, 1+2*len(demos)+1)
	if instruction != "" {
		turns = append(turns, Turn{Role: schema.RoleSystem, Content: instruction})
	}
	for _, d := range demos {
		userText, err := sig.Render(d.Inputs)
		if err != nil {
			return optimize.Prediction{}, fmt.Errorf("simba: executor: rendering demo input: %w", err)
		}
		turns = append(turns, Turn{Role: schema.RoleHuman, Content: userText})
		turns = append(turns, Turn{Role: schema.RoleAI, Content: renderOutputs(sig, d.Outputs)})
	}

	userText, err := sig.Render(inputs)
	if err != nil {
		return optimize.Prediction{}, fmt.Errorf("simba: executor: rendering inputs: %w", err)
	}
	turns = append(turns, Turn{Role: schema.RoleHuman, Content: userText})

	text, usage, err := e.client.Request(ctx, turns, modelConfig)
	if err != nil {
		return optimize.Prediction{}, err
	}

	outputs, err := sig.Parse(text)
	if err != nil {
		return optimize.Prediction{}, fmt.Errorf("simba: executor: parsing response: %w", err)
	}

	return optimize.Prediction{
		Outputs: outputs,
		Raw:     text,
		Usage: optimize.TokenUsage{
			PromptTokens:     usage.InputTokens,
			CompletionTokens: usage.OutputTokens,
			TotalTokens:      usage.TotalTokens,
		},
	}, nil
}

// renderOutputs formats a Demo's output map as "Field: value" lines in
// signature output-field order, the inverse of BasicSignature.Parse, so a
// demo's assistant turn looks like a real model response.
func renderOutputs(sig optimize.Signature, outputs map[string]any) string {
	s := ""
	for _, f := range sig.GetOutputFields() {
		v, ok := outputs[f.Name]
		if !ok {
			continue
		}
		if s != "" {
			s += "\n"
		}
		s += fmt.Sprintf("%s: %v", f.Name, v)
	}
	return s
}
