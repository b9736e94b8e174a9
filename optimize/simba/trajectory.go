package simba

import "github.com/lookatitude/simba/optimize"

// Trajectory records the outcome of running one Program against one
// Example: the inputs fed in, the outputs produced, the metric score, and
// whether execution succeeded.
type Trajectory struct {
	Program    optimize.Program
	Example    optimize.Example
	Inputs     map[string]any
	Outputs    map[string]any
	Score      float64
	Success    bool
	DurationMS int64
	Err        error
	Metadata   map[string]any
}

// NewTrajectory builds a Trajectory, enforcing that a failed run always
// carries a zero score regardless of what the caller passes in.
func NewTrajectory(program optimize.Program, example optimize.Example, outputs map[string]any, score float64, success bool, durationMS int64, err error) Trajectory {
	if !success {
		score = 0
	}
	return Trajectory{
		Program:    program,
		Example:    example,
		Inputs:     example.Inputs,
		Outputs:    outputs,
		Score:      score,
		Success:    success,
		DurationMS: durationMS,
		Err:        err,
	}
}
