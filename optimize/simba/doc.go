// Package simba implements Stochastic Introspective Mini-Batch Ascent, an
// optimizer that improves a language-model program's instruction and demo
// set through iterative mini-batch sampling, trajectory collection, and
// mutation strategies.
//
// The package is organized around a small set of cooperating pieces:
//
//   - Program is an immutable signature + instruction + demo set bound to
//     an Executor so it can run itself end to end.
//   - Client is a resilient façade over an llm.ChatModel adding caching,
//     circuit breaking, bounded concurrency, and retries.
//   - Executor renders a Program's prompt for a set of inputs, calls the
//     Client, and parses the response back into structured outputs.
//   - Trajectory records the outcome of running one Program against one
//     example; Bucket groups the trajectories collected for a single
//     example across a mini-batch of candidate programs.
//   - Strategy mutates a Program given a Bucket of trajectories, producing
//     a new candidate. AppendDemoStrategy and AppendRuleStrategy are the
//     two built-in mutation strategies.
//
// The outer optimization loop lives in
// github.com/lookatitude/simba/optimize/optimizers.
package simba
