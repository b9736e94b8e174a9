package simba

import (
	"context"
	"testing"

	"github.com/lookatitude/simba/optimize"
)

func echoRun(ctx context.Context, sig optimize.Signature, instruction string, demos []Demo, modelConfig map[string]any, inputs map[string]any) (optimize.Prediction, error) {
	return optimize.Prediction{Outputs: inputs}, nil
}

func TestProgram_WithInstruction_DoesNotMutateReceiver(t *testing.T) {
	sig := testSignature()
	p := NewProgram(sig, "v1", 4, echoRun)

	p2 := p.WithInstruction("v2")

	if p.Instruction() != "v1" {
		t.Errorf("receiver mutated: Instruction() = %q, want v1", p.Instruction())
	}
	if p2.Instruction() != "v2" {
		t.Errorf("copy Instruction() = %q, want v2", p2.Instruction())
	}
}

func TestProgram_WithAppendedDemo_EvictsOldestAtCapacity(t *testing.T) {
	sig := testSignature()
	p := NewProgram(sig, "", 2, echoRun)

	p = p.WithAppendedDemo(NewDemo(map[string]any{"problem": "1"}, map[string]any{"answer": "1"}))
	p = p.WithAppendedDemo(NewDemo(map[string]any{"problem": "2"}, map[string]any{"answer": "2"}))
	if len(p.Demos()) != 2 {
		t.Fatalf("len(Demos()) = %d, want 2", len(p.Demos()))
	}

	p = p.WithAppendedDemo(NewDemo(map[string]any{"problem": "3"}, map[string]any{"answer": "3"}))
	if len(p.Demos()) != 2 {
		t.Fatalf("len(Demos()) = %d, want 2 (capacity enforced)", len(p.Demos()))
	}
	if p.Demos()[0].Inputs["problem"] != "2" {
		t.Errorf("oldest demo should have been evicted, got %+v", p.Demos())
	}
}

func TestProgram_Supports(t *testing.T) {
	p := NewProgram(testSignature(), "", 4, echoRun)
	if !p.Supports(CapDemos) || !p.Supports(CapInstruction) {
		t.Error("native Program should support both demos and instruction")
	}
	if p.Supports(Capability("unknown")) {
		t.Error("unknown capability should not be supported")
	}
}

func TestProgram_MaxDemos_DefaultsWhenNonPositive(t *testing.T) {
	p := NewProgram(testSignature(), "", 0, echoRun)
	if p.MaxDemos() != 4 {
		t.Errorf("MaxDemos() = %d, want default 4", p.MaxDemos())
	}
}

func TestProgram_Run_UsesBoundRunFunc(t *testing.T) {
	p := NewProgram(testSignature(), "", 4, echoRun)
	out, err := p.Run(context.Background(), map[string]interface{}{"problem": "1+1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Outputs["problem"] != "1+1" {
		t.Errorf("Run() = %+v", out)
	}
}

func TestOptimizedProgram_WrapsNativeProgram(t *testing.T) {
	inner := NewProgram(testSignature(), "base", 4, echoRun)
	wrapped := WrapOptimized(inner, "append_demo")

	examples := []optimize.Example{{Inputs: map[string]any{"problem": "9"}, Outputs: map[string]any{"answer": "9"}}}
	updated := wrapped.WithDemos(examples)

	out, err := updated.Run(context.Background(), map[string]interface{}{"problem": "5"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Outputs["problem"] != "5" {
		t.Errorf("Run() = %+v", out)
	}
	if updated.GetSignature() == nil {
		t.Error("GetSignature() returned nil")
	}
}

func TestOptimizedProgram_WithScore(t *testing.T) {
	inner := NewProgram(testSignature(), "base", 4, echoRun)
	wrapped := WrapOptimized(inner, "append_demo")
	scored := wrapped.WithScore(0.75)

	if wrapped.Score() != 0 {
		t.Errorf("receiver mutated: Score() = %v, want 0", wrapped.Score())
	}
	if scored.Score() != 0.75 {
		t.Errorf("Score() = %v, want 0.75", scored.Score())
	}
}
