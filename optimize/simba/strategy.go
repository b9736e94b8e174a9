package simba

import (
	"context"
	"math/rand"

	"github.com/lookatitude/simba/optimize"
)

// Context carries everything a Strategy needs to decide whether it applies
// and to produce a mutated candidate.
type Context struct {
	Bucket   *Bucket
	Program  optimize.Program
	Rand     *rand.Rand
	MaxDemos int
}

// Result is the outcome of a Strategy.Apply call: either a new candidate
// program, or a skip with a human-readable reason.
type Result struct {
	IsApplied bool
	Program   optimize.Program
	Reason    string
}

// Applied builds a Result for a successful mutation.
func Applied(p optimize.Program) Result {
	return Result{IsApplied: true, Program: p}
}

// Skip builds a Result for a strategy that declined to mutate, along with
// why.
func Skip(reason string) Result {
	return Result{IsApplied: false, Reason: reason}
}

// Strategy mutates a Program given a Bucket of trajectories collected for
// one example, producing a new candidate program.
type Strategy interface {
	// Name identifies the strategy, recorded on the candidates it produces.
	Name() string
	// Applicable reports whether this strategy has anything useful to do
	// given ctx, without performing any mutation.
	Applicable(ctx Context) bool
	// Apply attempts the mutation, calling out to the LM client if needed.
	Apply(ctx context.Context, sctx Context) (Result, error)
}
