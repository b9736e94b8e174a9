package optimizers

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/lookatitude/simba/o11y"
	"github.com/lookatitude/simba/optimize"
	"github.com/lookatitude/simba/optimize/simba"
)

// ProgressEvent is delivered to a Simba progress callback at step
// boundaries.
type ProgressEvent struct {
	Phase         string
	Step          int
	Completed     int
	Total         int
	BestScore     float64
	CorrelationID string
}

// ProgressFunc receives ProgressEvents during Compile.
type ProgressFunc func(ProgressEvent)

// SimbaConfig configures the Simba optimizer, following the same plain
// config-struct-plus-defaults convention as BootstrapFewShotConfig.
type SimbaConfig struct {
	// Teacher is an additional starting program seeded into the candidate
	// pool alongside the student. May be nil.
	Teacher optimize.Program

	BatchSize             int
	NumCandidates         int
	MaxSteps              int
	MaxDemos              int
	DemoInputFieldMaxLen  int
	Strategies            []simba.Strategy
	TemperatureSampling   float64
	TemperatureCandidates float64
	QualityThreshold      float64
	MaxConcurrency        int
	Timeout               time.Duration
	CorrelationID         string
	MinImprovement        float64
	Patience              int
	Seed                  int64

	// ModelConfigSpace lists the model-config perturbations candidate
	// variants are drawn from. Defaults to temperature in {0.1, 0.5, 0.9}.
	ModelConfigSpace []map[string]any

	Progress ProgressFunc
	Logger   *o11y.Logger
}

func (c SimbaConfig) withDefaults() SimbaConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.NumCandidates <= 0 {
		c.NumCandidates = 6
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 8
	}
	if c.MaxDemos <= 0 {
		c.MaxDemos = 4
	}
	if c.DemoInputFieldMaxLen <= 0 {
		c.DemoInputFieldMaxLen = simba.DefaultDemoInputFieldMaxLen
	}
	if c.TemperatureSampling <= 0 {
		c.TemperatureSampling = 0.2
	}
	if c.TemperatureCandidates <= 0 {
		c.TemperatureCandidates = 0.2
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = simba.DefaultQualityThreshold
	}
	if len(c.Strategies) == 0 {
		c.Strategies = []simba.Strategy{&simba.AppendDemoStrategy{
			QualityThreshold: c.QualityThreshold,
			InputFieldMaxLen: c.DemoInputFieldMaxLen,
		}}
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.CorrelationID == "" {
		c.CorrelationID = fmt.Sprintf("simba-%d", time.Now().UnixNano())
	}
	if c.MinImprovement <= 0 {
		c.MinImprovement = 0.001
	}
	if c.Patience <= 0 {
		c.Patience = 3
	}
	if len(c.ModelConfigSpace) == 0 {
		c.ModelConfigSpace = []map[string]any{
			{"temperature": 0.1},
			{"temperature": 0.5},
			{"temperature": 0.9},
		}
	}
	if c.Logger == nil {
		c.Logger = o11y.NewLogger()
	}
	return c
}

// Simba implements optimize.Optimizer with Stochastic Introspective
// Mini-Batch Ascent: mini-batch sampling, candidate sampling with softmax,
// parallel trajectory collection, bucket analysis, strategy dispatch,
// candidate evaluation, and selection.
type Simba struct {
	cfg SimbaConfig
}

func init() {
	optimize.RegisterOptimizer("simba", func(cfg optimize.OptimizerConfig) (optimize.Optimizer, error) {
		return NewSimba(SimbaConfig{}), nil
	})
}

// NewSimba builds a Simba optimizer, filling unset config fields with the
// spec's defaults.
func NewSimba(config SimbaConfig) *Simba {
	return &Simba{cfg: config.withDefaults()}
}

// ledgerEntry tracks one candidate program's admission order and the
// running sequence of per-step average scores SIMBA's selection ranks by.
type ledgerEntry struct {
	program  optimize.Program
	scores   []float64
	admitted int
}

func (e *ledgerEntry) runningAverage() float64 {
	if len(e.scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range e.scores {
		sum += s
	}
	return sum / float64(len(e.scores))
}

// Compile implements optimize.Optimizer.
func (s *Simba) Compile(ctx context.Context, student optimize.Program, opts optimize.CompileOptions) (optimize.Program, error) {
	cfg := s.cfg
	if student == nil {
		return nil, simba.NewFatalError(simba.ErrInvalidStudent, "student program is nil", nil)
	}
	if len(opts.Trainset) == 0 {
		return nil, simba.NewFatalError(simba.ErrEmptyTrainset, "trainset is empty", nil)
	}
	if opts.Metric == nil {
		return nil, simba.NewFatalError(simba.ErrInvalidMetric, "metric function is required", nil)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	ledger := map[optimize.Program]*ledgerEntry{}
	var pool []optimize.Program
	admit := func(p optimize.Program) *ledgerEntry {
		if e, ok := ledger[p]; ok {
			return e
		}
		e := &ledgerEntry{program: p, admitted: len(pool)}
		ledger[p] = e
		pool = append(pool, p)
		return e
	}
	admit(student)
	if cfg.Teacher != nil {
		admit(cfg.Teacher)
	}

	shuffled := append([]optimize.Example{}, opts.Trainset...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	var anySuccess bool
	var bestScore float64
	var stepsSinceImprovement int
	var failureErr error

	for step := 1; step <= cfg.MaxSteps; step++ {
		stepCtx, span := o11y.StartSpan(ctx, "simba.step", o11y.Attrs{
			"simba.step":           step,
			"simba.correlation_id": cfg.CorrelationID,
		})

		batch := rotateBatch(shuffled, step, cfg.BatchSize)

		variants := s.buildVariants(pool, ledger, rng, cfg)

		trajectories := s.collectTrajectories(stepCtx, batch, variants, opts.Metric, cfg)
		for _, t := range trajectories {
			if t.trajectory.Success {
				anySuccess = true
			} else if t.trajectory.Err != nil {
				failureErr = multierr.Append(failureErr, t.trajectory.Err)
			}
		}

		buckets := bucketByExample(batch, trajectories)
		sort.SliceStable(buckets, func(i, j int) bool {
			return (buckets[i].Max() - buckets[i].Avg()) > (buckets[j].Max() - buckets[j].Avg())
		})

		minted := s.mintCandidates(stepCtx, buckets, cfg, rng)

		for _, cand := range minted {
			avg := s.evaluate(stepCtx, cand, batch, opts.Metric, cfg)
			e := admit(cand)
			e.scores = append(e.scores, avg)
			o11y.Counter(stepCtx, "simba.candidates_evaluated", 1)
		}

		stepBest := 0.0
		var stepBestProgram optimize.Program
		for _, p := range pool {
			avg := ledger[p].runningAverage()
			if stepBestProgram == nil || avg > stepBest {
				stepBest = avg
				stepBestProgram = p
			}
		}

		if stepBest-bestScore > cfg.MinImprovement {
			bestScore = stepBest
			stepsSinceImprovement = 0
		} else {
			stepsSinceImprovement++
		}

		if cfg.Progress != nil {
			cfg.Progress(ProgressEvent{
				Phase:         "step",
				Step:          step,
				Completed:     step,
				Total:         cfg.MaxSteps,
				BestScore:     bestScore,
				CorrelationID: cfg.CorrelationID,
			})
		}

		pool = selectTop(pool, ledger, student, cfg.NumCandidates)

		span.SetAttributes(o11y.Attrs{"simba.step.best_score": bestScore})
		span.End()

		if stepsSinceImprovement >= cfg.Patience {
			break
		}
	}

	if !anySuccess {
		return nil, simba.NewFatalError(simba.ErrNoSuccessfulBootstr, "no successful trajectories across the entire run", failureErr)
	}

	best := student
	bestAvg := -1.0
	for _, p := range pool {
		avg := ledger[p].runningAverage()
		if avg > bestAvg {
			bestAvg = avg
			best = p
		}
	}
	return best, nil
}

// rotateBatch produces a deterministic rotation over the (already
// shuffled) training set, wrapping around.
func rotateBatch(trainset []optimize.Example, step, batchSize int) []optimize.Example {
	n := len(trainset)
	if n <= batchSize {
		return trainset
	}
	start := ((step - 1) * batchSize) % n
	out := make([]optimize.Example, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		out = append(out, trainset[(start+i)%n])
	}
	return out
}

// buildVariants selects num_candidates programs with replacement from the
// pool, weighted by
// softmax(current_scores/temperature_sampling), each perturbed with a
// model-config draw; the unperturbed baseline (the first pool entry) is
// always included.
func (s *Simba) buildVariants(pool []optimize.Program, ledger map[optimize.Program]*ledgerEntry, rng *rand.Rand, cfg SimbaConfig) []optimize.Program {
	if len(pool) == 0 {
		return nil
	}
	scores := make([]float64, len(pool))
	for i, p := range pool {
		scores[i] = ledger[p].runningAverage()
	}
	weights := simba.Softmax(scores, cfg.TemperatureSampling)

	variants := make([]optimize.Program, 0, cfg.NumCandidates)
	variants = append(variants, pool[0])

	if cfg.NumCandidates > 1 {
		picks := simba.WeightedSample(rng, weights, cfg.NumCandidates-1)
		for _, idx := range picks {
			base := pool[idx]
			space := cfg.ModelConfigSpace[rng.Intn(len(cfg.ModelConfigSpace))]
			variants = append(variants, perturb(base, space))
		}
	}
	return variants
}

// perturb applies a model-config override to native simba programs; other
// optimize.Program implementations don't expose a model-config hook, so
// they're returned unperturbed.
func perturb(p optimize.Program, cfg map[string]any) optimize.Program {
	if native, ok := p.(*simba.Program); ok {
		return native.WithModelConfig(cfg)
	}
	return p
}

type batchTrajectory struct {
	exampleIdx int
	trajectory simba.Trajectory
}

// collectTrajectories runs the Cartesian product of batch × variants,
// dispatched through bounded parallelism, each call independent; failures
// become failed trajectories and never abort the step.
func (s *Simba) collectTrajectories(ctx context.Context, batch []optimize.Example, variants []optimize.Program, metric optimize.Metric, cfg SimbaConfig) []batchTrajectory {
	total := len(batch) * len(variants)
	results := make([]batchTrajectory, total)
	sem := make(chan struct{}, cfg.MaxConcurrency)
	var wg sync.WaitGroup

	idx := 0
	for ei, ex := range batch {
		for vi, variant := range variants {
			i := idx
			idx++
			ex := ex
			variant := variant
			_ = vi
			results[i] = batchTrajectory{exampleIdx: ei}

			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()

				start := time.Now()
				pred, err := variant.Run(callCtx, ex.Inputs)
				duration := time.Since(start).Milliseconds()

				if err != nil {
					results[i].trajectory = simba.NewTrajectory(variant, ex, nil, 0, false, duration, err)
					return
				}
				score := safeScore(metric, ex, pred)
				results[i].trajectory = simba.NewTrajectory(variant, ex, pred.Outputs, score, true, duration, nil)
			}()
		}
	}
	wg.Wait()
	return results
}

func safeScore(metric optimize.Metric, ex optimize.Example, pred optimize.Prediction) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
		}
	}()
	v, err := metric.Evaluate(ex, pred, nil)
	if err != nil {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// bucketByExample groups trajectories by their originating batch example.
func bucketByExample(batch []optimize.Example, trajectories []batchTrajectory) []*simba.Bucket {
	buckets := make([]*simba.Bucket, len(batch))
	grouped := make([][]simba.Trajectory, len(batch))
	for _, bt := range trajectories {
		grouped[bt.exampleIdx] = append(grouped[bt.exampleIdx], bt.trajectory)
	}
	for i := range batch {
		buckets[i] = simba.NewBucket(grouped[i])
	}
	return buckets
}

// pickSourceProgram samples which of a bucket's candidate-variant programs
// becomes the mutation source, weighted by softmax(score/temperature)
// rather than always taking the deterministic best, so strategy sources
// vary run to run.
func pickSourceProgram(b *simba.Bucket, rng *rand.Rand, temperature float64) optimize.Program {
	scores := make([]float64, len(b.Trajectories))
	for i, t := range b.Trajectories {
		scores[i] = t.Score
	}
	weights := simba.Softmax(scores, temperature)
	picks := simba.WeightedSample(rng, weights, 1)
	return b.Trajectories[picks[0]].Program
}

// mintCandidates walks buckets highest-gap-first, and for each, tries
// strategies in order until the first Applied; continues until
// num_candidates are minted or the buckets are exhausted. No two
// strategies apply to the same bucket in one step.
func (s *Simba) mintCandidates(ctx context.Context, buckets []*simba.Bucket, cfg SimbaConfig, rng *rand.Rand) []optimize.Program {
	var minted []optimize.Program
	var stratErr error
	for _, b := range buckets {
		if len(minted) >= cfg.NumCandidates {
			break
		}
		if len(b.Trajectories) == 0 {
			continue
		}
		source := pickSourceProgram(b, rng, cfg.TemperatureCandidates)

		sctx := simba.Context{
			Bucket:   b,
			Program:  source,
			Rand:     rng,
			MaxDemos: cfg.MaxDemos,
		}

		for _, strat := range cfg.Strategies {
			if !strat.Applicable(sctx) {
				continue
			}
			result, err := strat.Apply(ctx, sctx)
			if err != nil {
				stratErr = multierr.Append(stratErr, fmt.Errorf("%s: %w", strat.Name(), err))
				continue
			}
			if result.IsApplied {
				minted = append(minted, result.Program)
				break
			}
		}
	}
	if stratErr != nil {
		cfg.Logger.Error(ctx, "simba strategies failed while minting candidates", "error", stratErr)
	}
	return minted
}

// evaluate runs a minted candidate across the same mini-batch and
// returns its mean score.
func (s *Simba) evaluate(ctx context.Context, candidate optimize.Program, batch []optimize.Example, metric optimize.Metric, cfg SimbaConfig) float64 {
	if len(batch) == 0 {
		return 0
	}
	sem := make(chan struct{}, cfg.MaxConcurrency)
	var wg sync.WaitGroup
	scores := make([]float64, len(batch))

	for i, ex := range batch {
		i := i
		ex := ex
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
			pred, err := candidate.Run(callCtx, ex.Inputs)
			if err != nil {
				scores[i] = 0
				return
			}
			scores[i] = safeScore(metric, ex, pred)
		}()
	}
	wg.Wait()

	var sum float64
	for _, sc := range scores {
		sum += sc
	}
	return sum / float64(len(scores))
}

// selectTop ranks by ledger running average, keeps the top numCandidates,
// ties broken by earliest admission. The original student is never
// evicted.
func selectTop(pool []optimize.Program, ledger map[optimize.Program]*ledgerEntry, student optimize.Program, numCandidates int) []optimize.Program {
	ranked := append([]optimize.Program{}, pool...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ei, ej := ledger[ranked[i]], ledger[ranked[j]]
		ai, aj := ei.runningAverage(), ej.runningAverage()
		if ai != aj {
			return ai > aj
		}
		return ei.admitted < ej.admitted
	})

	keep := numCandidates
	if keep < 1 {
		keep = 1
	}
	if keep > len(ranked) {
		keep = len(ranked)
	}
	kept := append([]optimize.Program{}, ranked[:keep]...)

	for _, p := range kept {
		if p == student {
			return kept
		}
	}
	kept = append(kept, student)
	return kept
}
