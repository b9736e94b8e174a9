package simba

import "github.com/lookatitude/simba/optimize"

// Demo is a single worked input/output pair attached to a Program, shown to
// the model as an in-context example. InputKeys records which keys of the
// combined Inputs/Outputs maps came from the input side, so a Demo can be
// rendered without re-deriving that split from a Signature.
type Demo struct {
	Inputs    map[string]any
	Outputs   map[string]any
	InputKeys map[string]struct{}
	Metadata  map[string]any
}

// NewDemo builds a Demo from separate input and output maps.
func NewDemo(inputs, outputs map[string]any) Demo {
	keys := make(map[string]struct{}, len(inputs))
	for k := range inputs {
		keys[k] = struct{}{}
	}
	return Demo{Inputs: inputs, Outputs: outputs, InputKeys: keys}
}

// ToExample converts a Demo into an optimize.Example, the currency
// bootstrapping-style optimizers and metrics already understand.
func (d Demo) ToExample() optimize.Example {
	return optimize.Example{Inputs: d.Inputs, Outputs: d.Outputs, Metadata: d.Metadata}
}

// FromExample builds a Demo from an optimize.Example, splitting fields by
// the signature's declared input fields.
func FromExample(sig optimize.Signature, ex optimize.Example) Demo {
	inputs := make(map[string]any, len(sig.GetInputFields()))
	for _, f := range sig.GetInputFields() {
		if v, ok := ex.Inputs[f.Name]; ok {
			inputs[f.Name] = v
		}
	}
	d := NewDemo(inputs, ex.Outputs)
	d.Metadata = ex.Metadata
	return d
}
