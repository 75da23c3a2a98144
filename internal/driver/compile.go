package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chic-lang/Chic-sub009/internal/backend/llvm"
	"github.com/Chic-lang/Chic-sub009/internal/diag"
	"github.com/Chic-lang/Chic-sub009/internal/observ"
	"github.com/Chic-lang/Chic-sub009/internal/trace"
)

// Options tunes one compile.
type Options struct {
	Tracer trace.Tracer
	// Timer, when set, receives the backend phase timings.
	Timer          *observ.Timer
	MaxDiagnostics int
}

// Result is the outcome of Compile. Output is nil when the module could
// not be lowered at all; otherwise it holds every function that emitted.
type Result struct {
	Output *llvm.Output
	Bag    *diag.Bag
}

// OK reports whether the module lowered without errors.
func (r *Result) OK() bool {
	return r.Output != nil && !r.Bag.HasErrors()
}

// Compile lowers in.Module under in.Config. Backend failures are returned
// as diagnostics; the error is reserved for cancellation.
func Compile(ctx context.Context, in *Inputs, opts Options) (*Result, error) {
	res := &Result{Bag: diag.NewBag(opts.MaxDiagnostics)}
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})

	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	if opts.Timer != nil {
		tracer = trace.NewMultiTracer(max(tracer.Level(), trace.LevelPhase), tracer, observ.NewPhaseCollector(opts.Timer))
	}
	root := trace.Begin(tracer, trace.ScopeDriver, "compile", trace.SpanID(ctx))
	ctx = trace.WithSpan(trace.WithTracer(ctx, tracer), root)

	target, err := in.Config.TargetDesc()
	if err != nil {
		reporter.Report(diag.NewError(diag.LayUnknownTarget, "", err.Error()))
		root.End("error")
		return res, nil
	}

	name := in.Config.Emit.ModuleName
	out, err := llvm.EmitModule(ctx, in.Module, target, llvm.Options{
		ModuleName:        name,
		Jobs:              in.Config.Emit.Jobs,
		Tracer:            tracer,
		ErasePlaceholders: in.Config.Emit.ErasePlaceholders,
	})
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		root.End("canceled")
		return nil, err
	}
	res.Output = out
	Report(reporter, out, err)
	res.Bag.Sort()

	if opts.Timer != nil && out != nil {
		appendTimingDiagnostic(res.Bag, opts.Timer.Report(), in.Path)
	}
	root.End(fmt.Sprintf("%d diagnostics", res.Bag.Len()))
	return res, nil
}
