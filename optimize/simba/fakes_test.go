package simba

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lookatitude/simba/llm"
	"github.com/lookatitude/simba/optimize"
	"github.com/lookatitude/simba/schema"
)

// fakeChatModel is a scripted llm.ChatModel used across simba's test files.
// Each call to Generate returns the next entry in responses in order,
// clamped to the last entry once exhausted, or err if set. calls counts
// invocations so tests can assert on cache/dedup behavior; lastMsgs holds
// the messages of the most recent call.
type fakeChatModel struct {
	responses []string
	err       error
	calls     int32
	lastMsgs  atomic.Value
}

func newFakeModel(responses ...string) *fakeChatModel {
	return &fakeChatModel{responses: responses}
}

func (f *fakeChatModel) Generate(ctx context.Context, msgs []schema.Message, opts ...llm.GenerateOption) (*schema.AIMessage, error) {
	n := atomic.AddInt32(&f.calls, 1)
	f.lastMsgs.Store(msgs)
	if f.err != nil {
		return nil, f.err
	}
	idx := int(n) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	if idx < 0 {
		return schema.NewAIMessage(""), nil
	}
	return schema.NewAIMessage(f.responses[idx]), nil
}

func (f *fakeChatModel) ModelID() string { return "fake-model" }

func (f *fakeChatModel) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

// fakeSignature is a trivial optimize.Signature used by executor and demo
// tests: it renders inputs as "field=value;" pairs and parses the entire
// response into a single configured output field.
type fakeSignature struct {
	inputs  []string
	outputs []string
}

func (s *fakeSignature) GetInputFields() []optimize.Field  { return namesToFields(s.inputs) }
func (s *fakeSignature) GetOutputFields() []optimize.Field { return namesToFields(s.outputs) }

func namesToFields(names []string) []optimize.Field {
	out := make([]optimize.Field, len(names))
	for i, n := range names {
		out[i] = optimize.Field{Name: n, Required: true}
	}
	return out
}

func (s *fakeSignature) Render(inputs map[string]interface{}) (string, error) {
	out := ""
	for _, k := range s.inputs {
		v, ok := inputs[k]
		if !ok {
			return "", fmt.Errorf("missing %s", k)
		}
		out += fmt.Sprintf("%s=%v;", k, v)
	}
	return out, nil
}

func (s *fakeSignature) Parse(response string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, k := range s.outputs {
		out[k] = response
	}
	return out, nil
}

// fakeMetric scores pred.Outputs[field] against example.Outputs[field]
// via exact string match, returning 1.0 on match and 0.0 otherwise.
type fakeMetric struct {
	field string
}

func (m *fakeMetric) Evaluate(example optimize.Example, pred optimize.Prediction, trace *optimize.Trace) (float64, error) {
	want := fmt.Sprintf("%v", example.Outputs[m.field])
	got := fmt.Sprintf("%v", pred.Outputs[m.field])
	if want == got {
		return 1.0, nil
	}
	return 0.0, nil
}
