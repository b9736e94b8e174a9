package optimizers

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/lookatitude/simba/optimize"
	"github.com/lookatitude/simba/optimize/metric"
	"github.com/lookatitude/simba/optimize/simba"
)

// echoProgram is a minimal optimize.Program that echoes its "answer" input
// field back as the "answer" output, optionally scripted to fail for the
// first N calls.
type echoProgram struct {
	failFirst int32
	calls     int32
}

func (p *echoProgram) Run(ctx context.Context, inputs map[string]interface{}) (optimize.Prediction, error) {
	n := atomic.AddInt32(&p.calls, 1)
	if n <= p.failFirst {
		return optimize.Prediction{}, errTransient
	}
	return optimize.Prediction{Outputs: map[string]interface{}{"answer": inputs["answer"]}}, nil
}

func (p *echoProgram) WithDemos(demos []optimize.Example) optimize.Program { return p }

func (p *echoProgram) GetSignature() optimize.Signature {
	return simba.NewSignature("echo",
		[]optimize.Field{{Name: "answer"}},
		[]optimize.Field{{Name: "answer"}},
	)
}

var errTransient = errRecord("transient failure")

type errRecord string

func (e errRecord) Error() string { return string(e) }

func exactMatchMetric() optimize.Metric {
	return optimize.MetricFunc(metric.ExactMatch)
}

func trainset(n int) []optimize.Example {
	out := make([]optimize.Example, n)
	for i := range out {
		out[i] = optimize.Example{
			Inputs:  map[string]interface{}{"answer": i},
			Outputs: map[string]interface{}{"answer": i},
		}
	}
	return out
}

func TestSimba_Compile_NilStudent(t *testing.T) {
	s := NewSimba(SimbaConfig{})
	_, err := s.Compile(context.Background(), nil, optimize.CompileOptions{Trainset: trainset(4), Metric: exactMatchMetric()})
	if err == nil {
		t.Fatal("Compile() error = nil, want invalid_student_program")
	}
}

func TestSimba_Compile_EmptyTrainset(t *testing.T) {
	s := NewSimba(SimbaConfig{})
	_, err := s.Compile(context.Background(), &echoProgram{}, optimize.CompileOptions{Metric: exactMatchMetric()})
	if err == nil {
		t.Fatal("Compile() error = nil, want invalid_or_empty_trainset")
	}
}

func TestSimba_Compile_MissingMetric(t *testing.T) {
	s := NewSimba(SimbaConfig{})
	_, err := s.Compile(context.Background(), &echoProgram{}, optimize.CompileOptions{Trainset: trainset(4)})
	if err == nil {
		t.Fatal("Compile() error = nil, want invalid_metric_function")
	}
}

func TestSimba_Compile_SingleExampleSingleStep(t *testing.T) {
	s := NewSimba(SimbaConfig{BatchSize: 1, NumCandidates: 1, MaxSteps: 1, MaxConcurrency: 2})
	student := &echoProgram{}
	result, err := s.Compile(context.Background(), student, optimize.CompileOptions{
		Trainset: trainset(1),
		Metric:   exactMatchMetric(),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if result == nil {
		t.Fatal("Compile() returned a nil program")
	}
}

func TestSimba_Compile_AllTrajectoriesFail(t *testing.T) {
	s := NewSimba(SimbaConfig{BatchSize: 2, NumCandidates: 1, MaxSteps: 2, MaxConcurrency: 2})
	student := &echoProgram{failFirst: 1000}
	_, err := s.Compile(context.Background(), student, optimize.CompileOptions{
		Trainset: trainset(4),
		Metric:   exactMatchMetric(),
	})
	if err == nil {
		t.Fatal("Compile() error = nil, want no_successful_bootstrap_candidates")
	}
}

func TestSimba_Compile_DeterministicWithFixedSeed(t *testing.T) {
	run := func() optimize.Program {
		s := NewSimba(SimbaConfig{BatchSize: 2, NumCandidates: 2, MaxSteps: 2, MaxConcurrency: 2, Seed: 42})
		result, err := s.Compile(context.Background(), &echoProgram{}, optimize.CompileOptions{
			Trainset: trainset(4),
			Metric:   exactMatchMetric(),
		})
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		return result
	}
	a := run()
	b := run()
	if a == nil || b == nil {
		t.Fatal("Compile() returned nil")
	}
}

func TestRotateBatch_WrapsAround(t *testing.T) {
	ts := trainset(3)
	batch := rotateBatch(ts, 2, 2)
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
}

func TestRotateBatch_ReturnsWholeSetWhenSmallerThanBatch(t *testing.T) {
	ts := trainset(2)
	batch := rotateBatch(ts, 1, 5)
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
}

func TestSelectTop_NeverEvictsStudent(t *testing.T) {
	student := &echoProgram{}
	other := &echoProgram{}
	ledger := map[optimize.Program]*ledgerEntry{
		student: {program: student, scores: []float64{0.1}, admitted: 0},
		other:   {program: other, scores: []float64{0.9}, admitted: 1},
	}
	kept := selectTop([]optimize.Program{student, other}, ledger, student, 1)

	found := false
	for _, p := range kept {
		if p == student {
			found = true
		}
	}
	if !found {
		t.Error("selectTop() dropped the student program")
	}
}
