package simba

import (
	"context"
	"fmt"
	"strings"

	"github.com/lookatitude/simba/schema"
)

// DefaultRuleTemperature is the temperature override AppendRuleStrategy
// uses when asking the LM to synthesize instruction advice.
const DefaultRuleTemperature = 0.3

// MinAdviceLen is the minimum character length advice must reach before
// AppendRuleStrategy accepts it; shorter responses are treated as no
// meaningful advice.
const MinAdviceLen = 10

// offerFeedbackInstruction is AppendRuleStrategy's internal signature:
// given a serialized program description plus the best and worst
// trajectories for a bucket, ask the model for a one-paragraph instruction
// refinement. describeProgram serializes a program's signature name,
// current instruction, and demo count rather than dumping the program
// value directly.
const offerFeedbackInstruction = `You are refining the instruction of a language-model program.
Given the program's current configuration and two example runs -- one that
succeeded and one that failed -- produce a short, concrete piece of advice
that would help the program avoid the failure next time.

Respond with only the advice text, addressed to the program as an
instruction addendum. Do not repeat the inputs or outputs verbatim.`

// AppendRuleStrategy contrasts the best and worst trajectories in a bucket
// and asks an LLM to synthesize an instruction refinement.
type AppendRuleStrategy struct {
	Client      *Client
	Temperature float64
}

// NewAppendRuleStrategy builds an AppendRuleStrategy calling through client.
func NewAppendRuleStrategy(client *Client) *AppendRuleStrategy {
	return &AppendRuleStrategy{Client: client, Temperature: DefaultRuleTemperature}
}

// Name implements Strategy.
func (s *AppendRuleStrategy) Name() string { return "append_rule" }

// Applicable implements Strategy: the bucket needs at least two
// trajectories with both a success and a failure present.
func (s *AppendRuleStrategy) Applicable(ctx Context) bool {
	if ctx.Bucket == nil || len(ctx.Bucket.Trajectories) < 2 {
		return false
	}
	var haveSuccess, haveFailure bool
	for _, t := range ctx.Bucket.Trajectories {
		if t.Success {
			haveSuccess = true
		} else {
			haveFailure = true
		}
		if haveSuccess && haveFailure {
			return true
		}
	}
	return false
}

// Apply implements Strategy. It picks the max-score successful trajectory
// and the min-score failed one, asks the client for advice via the
// internal OfferFeedback signature, and appends the advice to the source
// program's instruction.
func (s *AppendRuleStrategy) Apply(ctx context.Context, sctx Context) (Result, error) {
	if !s.Applicable(sctx) {
		return Skip("bucket lacks both a success and a failure"), nil
	}

	better, worse, ok := bestSuccessWorstFailure(sctx.Bucket)
	if !ok {
		return Skip("bucket lacks both a success and a failure"), nil
	}

	programCode := describeProgram(sctx.Program)
	turns := []Turn{
		{Role: schema.RoleSystem, Content: offerFeedbackInstruction},
		{Role: schema.RoleHuman, Content: fmt.Sprintf(
			"Program: %s\n\nBetter trajectory:\n%s\n\nWorse trajectory:\n%s",
			programCode, formatTrajectory(better), formatTrajectory(worse),
		)},
	}

	temp := s.Temperature
	if temp == 0 {
		temp = DefaultRuleTemperature
	}

	text, _, err := s.Client.Request(ctx, turns, map[string]any{"temperature": temp})
	if err != nil {
		return Result{}, err
	}

	advice := extractAdvice(text)
	if len(strings.TrimSpace(advice)) <= MinAdviceLen {
		return Skip("no meaningful advice"), nil
	}

	newInstruction := advice
	current := currentInstruction(sctx.Program)
	if current != "" {
		newInstruction = current + "\n\nAdditional guidance: " + advice
	}

	switch p := sctx.Program.(type) {
	case *Program:
		return Applied(p.WithInstruction(newInstruction)), nil
	case *OptimizedProgram:
		cp := *p
		cp.instruction = newInstruction
		return Applied(&cp), nil
	default:
		wrapped := WrapOptimized(sctx.Program, s.Name())
		wrapped.instruction = newInstruction
		return Applied(wrapped), nil
	}
}

func currentInstruction(p any) string {
	switch v := p.(type) {
	case *Program:
		return v.Instruction()
	case *OptimizedProgram:
		return v.instruction
	default:
		return ""
	}
}

func bestSuccessWorstFailure(b *Bucket) (better, worse Trajectory, ok bool) {
	var hasBetter, hasWorse bool
	for _, t := range b.Trajectories {
		if t.Success && (!hasBetter || t.Score > better.Score) {
			better, hasBetter = t, true
		}
		if !t.Success && (!hasWorse || t.Score < worse.Score) {
			worse, hasWorse = t, true
		}
	}
	return better, worse, hasBetter && hasWorse
}

func formatTrajectory(t Trajectory) string {
	errStr := ""
	if t.Err != nil {
		errStr = t.Err.Error()
	}
	return fmt.Sprintf("Input: %v Output: %v Score: %.2f Success: %v Error: %s",
		t.Inputs, t.Outputs, t.Score, t.Success, errStr)
}

// describeProgram serializes just enough of a program to ground the
// OfferFeedback prompt: its signature name, current instruction, and demo
// count, rather than a full object dump.
func describeProgram(p any) string {
	switch v := p.(type) {
	case *Program:
		return fmt.Sprintf("signature=%v instruction=%q demos=%d", v.GetSignature(), v.Instruction(), len(v.Demos()))
	case *OptimizedProgram:
		return fmt.Sprintf("signature=%v instruction=%q demos=%d (optimized wrapper)", v.GetSignature(), v.instruction, len(v.demos))
	default:
		return fmt.Sprintf("signature=%v", p)
	}
}

// extractAdvice pulls advice out of a model response, preferring a
// "main: ..." labeled line (mirroring OfferFeedback's module_advice map
// with a "main" key) and falling back to the whole trimmed response.
func extractAdvice(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "main:") {
			return strings.TrimSpace(trimmed[len("main:"):])
		}
	}
	return strings.TrimSpace(text)
}
