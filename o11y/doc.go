// Package o11y provides observability primitives SIMBA's outer loop and
// client wire through their calls: OpenTelemetry-based tracing and metrics
// following GenAI semantic conventions, and structured logging via slog.
//
// # Tracing
//
// Tracing is built on OpenTelemetry with GenAI semantic convention attributes
// (gen_ai.* namespace). [StartSpan] creates spans with typed attributes:
//
//	ctx, span := o11y.StartSpan(ctx, "simba.step", o11y.Attrs{
//	    "simba.step": step,
//	})
//	defer span.End()
//
// The [Span] interface wraps OTel spans with a simplified API for setting
// attributes, recording errors, and setting status codes.
//
// # Metrics
//
// Pre-registered GenAI metric instruments track token usage, operation
// duration, and estimated cost following OTel conventions:
//
//	o11y.TokenUsage(ctx, inputTokens, outputTokens)
//	o11y.OperationDuration(ctx, durationMs)
//	o11y.Cost(ctx, estimatedUSD)
//
// Generic [Counter] and [Histogram] functions allow recording custom metrics.
//
// # Logging
//
// [Logger] wraps slog.Logger with context-aware convenience methods and
// functional options for configuration:
//
//	logger := o11y.NewLogger(
//	    o11y.WithLogLevel("debug"),
//	    o11y.WithJSON(),
//	)
//	logger.Info(ctx, "step completed",
//	    "step", step,
//	    "best_score", bestScore,
//	)
//
// Loggers propagate through context via [WithLogger] and [FromContext].
package o11y
