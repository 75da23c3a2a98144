// Package trace records spans and point events emitted while chicc lowers a
// module.
//
// Spans nest: the driver opens a root span, every backend phase (layouts,
// signatures, vtables, strings, functions, assemble) opens a child, and each
// function body gets its own span at ScopeFunction. Verbosity is selected with
// a Level; events whose Scope is finer than the level allows are dropped before
// formatting.
//
//	t, _ := trace.New(trace.Config{Level: trace.LevelDetail, Mode: trace.ModeStream})
//	ctx = trace.WithTracer(ctx, t)
//	sp := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "signatures", 0)
//	defer sp.End("")
//
// Stream tracers write as events arrive, ring tracers keep the tail in memory
// for post-mortem dumps, and ModeBoth fans out to both.
package trace
