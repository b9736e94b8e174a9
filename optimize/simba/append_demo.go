package simba

import (
	"context"
	"math/rand"
	"time"

	"github.com/lookatitude/simba/optimize"
)

// DefaultQualityThreshold is the minimum score a bucket's best trajectory
// must reach before AppendDemoStrategy will mint a demo from it.
const DefaultQualityThreshold = 0.7

// DefaultDemoInputFieldMaxLen bounds how long a string-valued input field
// may be before AppendDemoStrategy truncates it when minting a demo.
const DefaultDemoInputFieldMaxLen = 100_000

// AppendDemoStrategy turns a bucket's best trajectory into a new
// demonstration, evicting older demos with Poisson-distributed pruning as
// the demo set fills.
type AppendDemoStrategy struct {
	// QualityThreshold is the minimum score the bucket's best trajectory
	// must reach. Zero uses DefaultQualityThreshold.
	QualityThreshold float64
	// InputFieldMaxLen truncates string-valued input fields before they're
	// embedded in the minted demo. Zero uses DefaultDemoInputFieldMaxLen.
	InputFieldMaxLen int
}

// NewAppendDemoStrategy builds an AppendDemoStrategy with spec defaults.
func NewAppendDemoStrategy() *AppendDemoStrategy {
	return &AppendDemoStrategy{
		QualityThreshold: DefaultQualityThreshold,
		InputFieldMaxLen: DefaultDemoInputFieldMaxLen,
	}
}

// Name implements Strategy.
func (s *AppendDemoStrategy) Name() string { return "append_demo" }

// Applicable implements Strategy: the bucket's best trajectory must clear
// the quality threshold and the target program must allow at least one
// demo.
func (s *AppendDemoStrategy) Applicable(ctx Context) bool {
	if ctx.Bucket == nil || len(ctx.Bucket.Trajectories) == 0 {
		return false
	}
	if ctx.MaxDemos <= 0 {
		return false
	}
	return ctx.Bucket.Best().Score >= s.threshold()
}

// Apply implements Strategy. It never calls the LM client: minting a demo
// is a pure transformation of the best trajectory already collected.
func (s *AppendDemoStrategy) Apply(ctx context.Context, sctx Context) (Result, error) {
	if !s.Applicable(sctx) {
		return Skip("best trajectory below quality threshold"), nil
	}

	best := sctx.Bucket.Best()
	inputs := truncateFields(best.Inputs, s.maxLen())

	demo := NewDemo(inputs, best.Outputs)
	demo.Metadata = map[string]any{
		"origin_score": best.Score,
		"created_at":   nowRFC3339(),
		"strategy":     s.Name(),
	}

	rng := sctx.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	switch p := sctx.Program.(type) {
	case *Program:
		demos := evictAndPrepend(rng, p.Demos(), demo, sctx.MaxDemos)
		return Applied(p.WithDemoSet(demos)), nil
	case *OptimizedProgram:
		demos := evictAndPrepend(rng, p.demos, demo, sctx.MaxDemos)
		return Applied(p.WithDemos(demosToExamples(demos))), nil
	default:
		wrapped := WrapOptimized(sctx.Program, s.Name())
		return Applied(wrapped.WithDemos(demosToExamples([]Demo{demo}))), nil
	}
}

func (s *AppendDemoStrategy) threshold() float64 {
	if s.QualityThreshold > 0 {
		return s.QualityThreshold
	}
	return DefaultQualityThreshold
}

func (s *AppendDemoStrategy) maxLen() int {
	if s.InputFieldMaxLen > 0 {
		return s.InputFieldMaxLen
	}
	return DefaultDemoInputFieldMaxLen
}

// evictAndPrepend samples a Poisson-distributed eviction count, drops that
// many demos uniformly at random, prepends the new demo, and truncates to
// maxDemos.
func evictAndPrepend(rng *rand.Rand, existing []Demo, demo Demo, maxDemos int) []Demo {
	cp := append([]Demo{}, existing...)
	k := PoissonEvictionCount(rng, len(cp), maxDemos)
	for i := 0; i < k && len(cp) > 0; i++ {
		idx := rng.Intn(len(cp))
		cp = append(cp[:idx], cp[idx+1:]...)
	}
	cp = append([]Demo{demo}, cp...)
	if maxDemos > 0 && len(cp) > maxDemos {
		cp = cp[:maxDemos]
	}
	return cp
}

func demosToExamples(demos []Demo) []optimize.Example {
	out := make([]optimize.Example, 0, len(demos))
	for _, d := range demos {
		out = append(out, d.ToExample())
	}
	return out
}

func truncateFields(inputs map[string]any, maxLen int) map[string]any {
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		if str, ok := v.(string); ok && len(str) > maxLen {
			out[k] = str[:maxLen]
			continue
		}
		out[k] = v
	}
	return out
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
