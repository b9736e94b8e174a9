package simba

import (
	"fmt"
	"strings"

	"github.com/lookatitude/simba/optimize"
)

// BasicSignature renders inputs and parses outputs using a simple
// "Field: value" line format, the same convention DSPy-style text
// signatures use when no structured output mode is available.
type BasicSignature struct {
	name         string
	inputFields  []optimize.Field
	outputFields []optimize.Field
}

// NewSignature creates a BasicSignature with the given name and field lists.
func NewSignature(name string, inputFields, outputFields []optimize.Field) *BasicSignature {
	return &BasicSignature{name: name, inputFields: inputFields, outputFields: outputFields}
}

// Name returns the signature's identifier.
func (s *BasicSignature) Name() string { return s.name }

// GetInputFields implements optimize.Signature.
func (s *BasicSignature) GetInputFields() []optimize.Field { return s.inputFields }

// GetOutputFields implements optimize.Signature.
func (s *BasicSignature) GetOutputFields() []optimize.Field { return s.outputFields }

// Render implements optimize.Signature, formatting inputs as ordered
// "Field: value" lines.
func (s *BasicSignature) Render(inputs map[string]interface{}) (string, error) {
	var b strings.Builder
	for _, f := range s.inputFields {
		v, ok := inputs[f.Name]
		if !ok {
			if f.Required {
				return "", fmt.Errorf("signature %s: missing required input field %q", s.name, f.Name)
			}
			continue
		}
		fmt.Fprintf(&b, "%s: %v\n", f.Name, v)
	}
	return b.String(), nil
}

// Parse implements optimize.Signature, extracting each declared output
// field from a "Field: value" formatted response. Field headers match
// case-insensitively. A field's value runs until the next recognized field
// header or the end of the response.
func (s *BasicSignature) Parse(response string) (map[string]interface{}, error) {
	lines := strings.Split(response, "\n")

	outputs := make(map[string]interface{}, len(s.outputFields))
	var current string
	var buf []string

	flush := func() {
		if current != "" {
			outputs[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		matched := ""
		trimmed := strings.TrimSpace(line)
		for _, f := range s.outputFields {
			prefix := f.Name + ":"
			if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
				matched = f.Name
				line = trimmed[len(prefix):]
				break
			}
		}
		if matched != "" {
			flush()
			current = matched
			buf = append(buf, strings.TrimSpace(line))
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()

	if len(outputs) == 0 && len(s.outputFields) == 1 {
		// Single-output signatures accept a bare, unlabeled response.
		outputs[s.outputFields[0].Name] = strings.TrimSpace(response)
	}

	return outputs, nil
}
