package simba

import (
	"context"
	"fmt"

	"github.com/lookatitude/simba/optimize"
)

// Capability names an optional ability a Program may support.
type Capability string

const (
	// CapDemos marks that a program accepts a demo set.
	CapDemos Capability = "demos"
	// CapInstruction marks that a program accepts an instruction override.
	CapInstruction Capability = "instruction"
)

// RunFunc executes a rendered Program against a single set of inputs,
// returning the model's structured outputs. Executor.Run satisfies this
// signature as a method value, binding a Program to a resilient Client.
type RunFunc func(ctx context.Context, sig optimize.Signature, instruction string, demos []Demo, modelConfig map[string]any, inputs map[string]any) (optimize.Prediction, error)

// Program is an immutable signature + instruction + demo set bound to a
// RunFunc so it can execute itself end to end. With* methods return
// modified copies, leaving the receiver untouched so candidates can be
// forked freely during optimization.
type Program struct {
	sig         optimize.Signature
	instruction string
	demos       []Demo
	maxDemos    int
	modelConfig map[string]any
	run         RunFunc
}

// NewProgram builds a Program bound to run. maxDemos caps the demo set that
// WithAppendedDemo maintains, evicting the oldest demo once it is full; a
// non-positive value uses 4.
func NewProgram(sig optimize.Signature, instruction string, maxDemos int, run RunFunc) *Program {
	if maxDemos <= 0 {
		maxDemos = 4
	}
	return &Program{sig: sig, instruction: instruction, maxDemos: maxDemos, run: run}
}

// Run implements optimize.Program.
func (p *Program) Run(ctx context.Context, inputs map[string]interface{}) (optimize.Prediction, error) {
	if p.run == nil {
		return optimize.Prediction{}, fmt.Errorf("simba: program has no bound executor")
	}
	return p.run(ctx, p.sig, p.instruction, p.demos, p.modelConfig, inputs)
}

// WithDemos implements optimize.Program, replacing the demo set wholesale
// from a slice of optimize.Example.
func (p *Program) WithDemos(examples []optimize.Example) optimize.Program {
	demos := make([]Demo, 0, len(examples))
	for _, ex := range examples {
		demos = append(demos, FromExample(p.sig, ex))
	}
	cp := p.clone()
	cp.demos = demos
	return cp
}

// GetSignature implements optimize.Program.
func (p *Program) GetSignature() optimize.Signature { return p.sig }

// Instruction returns the program's current instruction text.
func (p *Program) Instruction() string { return p.instruction }

// Demos returns the program's current demo set.
func (p *Program) Demos() []Demo { return p.demos }

// ModelConfig returns per-program model overrides (temperature, model id, ...).
func (p *Program) ModelConfig() map[string]any { return p.modelConfig }

// MaxDemos returns the demo-set capacity enforced by WithAppendedDemo.
func (p *Program) MaxDemos() int { return p.maxDemos }

// Supports reports whether this Program natively handles a Capability.
// Native Programs support both demos and instruction overrides.
func (p *Program) Supports(cap Capability) bool {
	switch cap {
	case CapDemos, CapInstruction:
		return true
	default:
		return false
	}
}

// WithInstruction returns a copy of the program with a new instruction.
func (p *Program) WithInstruction(instruction string) *Program {
	cp := p.clone()
	cp.instruction = instruction
	return cp
}

// WithAppendedDemo returns a copy with demo appended, evicting the oldest
// demo first if the program is already at MaxDemos capacity.
func (p *Program) WithAppendedDemo(demo Demo) *Program {
	cp := p.clone()
	if len(cp.demos) >= cp.maxDemos && cp.maxDemos > 0 {
		cp.demos = append([]Demo{}, cp.demos[1:]...)
	}
	cp.demos = append(cp.demos, demo)
	return cp
}

// WithDemoSet returns a copy of the program with demos replaced directly.
func (p *Program) WithDemoSet(demos []Demo) *Program {
	cp := p.clone()
	cp.demos = demos
	return cp
}

// WithModelConfig returns a copy of the program with model config merged in.
func (p *Program) WithModelConfig(cfg map[string]any) *Program {
	cp := p.clone()
	merged := make(map[string]any, len(cp.modelConfig)+len(cfg))
	for k, v := range cp.modelConfig {
		merged[k] = v
	}
	for k, v := range cfg {
		merged[k] = v
	}
	cp.modelConfig = merged
	return cp
}

func (p *Program) clone() *Program {
	cp := *p
	cp.demos = append([]Demo{}, p.demos...)
	return &cp
}

// OptimizedProgram wraps a foreign optimize.Program that doesn't natively
// support demos or instruction overrides, letting SIMBA strategies operate
// on it uniformly via WithDemos.
type OptimizedProgram struct {
	inner       optimize.Program
	demos       []Demo
	instruction string
	method      string
	score       float64
	stats       map[string]any
}

// WrapOptimized wraps an arbitrary optimize.Program so SIMBA can attach a
// demo set and instruction to it without requiring the underlying type to
// understand either concept directly.
func WrapOptimized(inner optimize.Program, method string) *OptimizedProgram {
	return &OptimizedProgram{inner: inner, method: method, stats: map[string]any{}}
}

// Run implements optimize.Program. If the wrapped program is a native
// *Program, instruction and demos are applied directly; otherwise only
// WithDemos is available and instruction overrides are ignored.
func (o *OptimizedProgram) Run(ctx context.Context, inputs map[string]interface{}) (optimize.Prediction, error) {
	if native, ok := o.inner.(*Program); ok {
		p := native.WithInstruction(o.instruction).WithDemoSet(o.demos)
		return p.Run(ctx, inputs)
	}
	examples := make([]optimize.Example, 0, len(o.demos))
	for _, d := range o.demos {
		examples = append(examples, d.ToExample())
	}
	return o.inner.WithDemos(examples).Run(ctx, inputs)
}

// WithDemos implements optimize.Program.
func (o *OptimizedProgram) WithDemos(examples []optimize.Example) optimize.Program {
	demos := make([]Demo, 0, len(examples))
	sig := o.inner.GetSignature()
	for _, ex := range examples {
		demos = append(demos, FromExample(sig, ex))
	}
	cp := *o
	cp.demos = demos
	return &cp
}

// GetSignature implements optimize.Program.
func (o *OptimizedProgram) GetSignature() optimize.Signature { return o.inner.GetSignature() }

// Score returns the last evaluated running ledger average for this candidate.
func (o *OptimizedProgram) Score() float64 { return o.score }

// WithScore returns a copy with the candidate's running score updated.
func (o *OptimizedProgram) WithScore(score float64) *OptimizedProgram {
	cp := *o
	cp.score = score
	return &cp
}

// Method returns the name of the strategy that produced this candidate.
func (o *OptimizedProgram) Method() string { return o.method }

// Stats returns optimizer bookkeeping attached to this candidate.
func (o *OptimizedProgram) Stats() map[string]any { return o.stats }
