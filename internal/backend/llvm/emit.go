package llvm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/trace"
)

// Options tunes one EmitModule run.
type Options struct {
	// ModuleName overrides the module's own name in the IR header.
	ModuleName string
	// Jobs bounds parallel function emission; <= 0 means GOMAXPROCS.
	Jobs   int
	Tracer trace.Tracer
	// ErasePlaceholders lowers unbound generic parameter names to ptr
	// instead of failing.
	ErasePlaceholders bool
}

// FunctionOutput is the result for one function body. Text is empty when
// Err is set.
type FunctionOutput struct {
	Name   string
	Symbol string
	Text   string
	Err    error
}

// Output is the lowered module.
type Output struct {
	Text      string
	Functions []FunctionOutput
	// Externs lists the symbols declared, sorted.
	Externs    []string
	Signatures *SignatureTable
}

// moduleEmitter holds the frozen tables shared by every function emitter.
// Nothing here is written once function emission starts.
type moduleEmitter struct {
	mod     *mir.Module
	target  layout.Target
	layouts *layout.Table
	mapper  *TypeMapper
	sigs    *SignatureTable
	vtables *VTableSet
	strings *stringPool
	tracer  trace.Tracer
	span    uint64
}

// EmitModule lowers mod for target. Tables are built first and frozen;
// function bodies are then emitted in parallel. A function that fails is
// left out of Text and reported in the joined error, the remaining ones are
// still emitted.
func EmitModule(ctx context.Context, mod *mir.Module, target layout.Target, opts Options) (*Output, error) {
	if mod == nil {
		return &Output{}, nil
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	root := trace.Begin(tracer, trace.ScopeDriver, "emit_module", trace.SpanID(ctx))
	defer root.End(mod.Name)

	e := &moduleEmitter{mod: mod, target: target, tracer: tracer, span: root.ID()}

	sp := trace.Begin(tracer, trace.ScopePhase, "layouts", e.span)
	layouts, err := mod.BuildLayouts(target)
	if err != nil {
		sp.End("error")
		return nil, fmt.Errorf("llvm: %w", err)
	}
	sp.WithExtra("count", strconv.Itoa(len(layouts.Names()))).End("ok")
	e.layouts = layouts
	e.mapper = NewTypeMapper(layouts, opts.ErasePlaceholders)

	sp = trace.Begin(tracer, trace.ScopePhase, "signatures", e.span)
	e.sigs = BuildSignatures(mod, e.mapper)
	sp.WithExtra("count", strconv.Itoa(len(e.sigs.names))).End(phaseDetail(len(e.sigs.failures)))

	sp = trace.Begin(tracer, trace.ScopePhase, "vtables", e.span)
	e.vtables = buildVTables(mod, e.sigs)
	sp.WithExtra("count", strconv.Itoa(len(e.vtables.ordered))).End("ok")

	sp = trace.Begin(tracer, trace.ScopePhase, "strings", e.span)
	e.strings = buildStringPool(mod)
	sp.WithExtra("count", strconv.Itoa(len(e.strings.lits))).End("ok")

	funcs, err := e.emitFunctions(ctx, opts.Jobs)
	if err != nil {
		return nil, err
	}

	sp = trace.Begin(tracer, trace.ScopePhase, "assemble", e.span)
	out := e.assemble(opts.ModuleName, funcs)
	sp.WithExtra("externs", strconv.Itoa(len(out.Externs))).End("ok")

	var errs []error
	for _, fo := range out.Functions {
		if fo.Err != nil {
			errs = append(errs, fo.Err)
		}
	}
	return out, errors.Join(errs...)
}

func phaseDetail(failures int) string {
	if failures == 0 {
		return "ok"
	}
	return fmt.Sprintf("%d failed", failures)
}

type funcResult struct {
	FunctionOutput
	externs map[string]*Signature
}

// emitFunctions lowers every body under an errgroup. Only context
// cancellation stops the group; per-function errors are recorded.
func (e *moduleEmitter) emitFunctions(ctx context.Context, jobs int) ([]funcResult, error) {
	sp := trace.Begin(e.tracer, trace.ScopePhase, "functions", e.span)
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]funcResult, len(e.mod.Funcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range e.mod.Funcs {
		i := i
		f := &e.mod.Funcs[i]
		if !f.HasBody() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.emitFunction(f, sp.ID())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		sp.End("cancelled")
		return nil, err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	sp.End(phaseDetail(failed))
	return results, nil
}

func (e *moduleEmitter) emitFunction(f *mir.Func, parent uint64) funcResult {
	sp := trace.Begin(e.tracer, trace.ScopeFunction, f.Name, parent)
	res := funcResult{FunctionOutput: FunctionOutput{Name: f.Name}}
	sig, ok := e.sigs.Lookup(f.Name)
	if !ok {
		err := e.sigs.Failure(f.Name)
		if err == nil {
			err = inFunc(f.Name, errorf(ErrMissingSignature, "no signature for `%s`", f.Name))
		}
		res.Err = err
		sp.End("error")
		return res
	}
	res.Symbol = sig.Symbol
	if sig.Dynamic != nil {
		res.Err = inFunc(f.Name, errorf(ErrInternal, "function with a body cannot bind to library %q", sig.Dynamic.Library))
		sp.End("error")
		return res
	}
	fe := newFuncEmitter(e, f, sig, sp.ID())
	text, err := fe.emit()
	if err != nil {
		res.Err = inFunc(f.Name, err)
		sp.End("error")
		return res
	}
	res.Text = text
	res.externs = fe.externs
	sp.WithExtra("blocks", strconv.Itoa(len(f.Blocks))).End("ok")
	return res
}

// assemble concatenates the module in a fixed order: header, string pool,
// FFI descriptors, vtables, declarations, bodies, FFI stubs, constructors.
func (e *moduleEmitter) assemble(name string, funcs []funcResult) *Output {
	if name == "" {
		name = e.mod.Name
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", name)
	fmt.Fprintf(&sb, "source_filename = \"%s\"\n", name)
	fmt.Fprintf(&sb, "target triple = \"%s\"\n\n", e.target.Triple())

	e.strings.emit(&sb)
	ffi := e.collectFFI()
	ffi.emitGlobals(&sb)
	e.vtables.emit(&sb)

	externs := make(map[string]*Signature)
	defined := make(map[string]struct{})
	for _, r := range funcs {
		if r.Err == nil && r.Text != "" {
			defined[r.Symbol] = struct{}{}
		}
	}
	for _, b := range ffi.bindings {
		defined[b.sig.Symbol] = struct{}{}
	}
	for _, r := range funcs {
		maps.Copy(externs, r.externs)
	}
	for _, vt := range e.vtables.ordered {
		for _, s := range vt.Slots {
			if sig, ok := e.sigs.Resolve(s.Impl); ok && s.Symbol != "" {
				externs[sig.Symbol] = sig
			}
		}
	}
	maps.Copy(externs, ffi.runtimeExterns())
	var symbols []string
	for sym := range externs {
		if _, ok := defined[sym]; !ok {
			symbols = append(symbols, sym)
		}
	}
	slices.Sort(symbols)
	for _, sym := range symbols {
		sb.WriteString(externs[sym].Decl())
		sb.WriteByte('\n')
	}
	if len(symbols) > 0 {
		sb.WriteByte('\n')
	}

	out := &Output{Externs: symbols, Signatures: e.sigs}
	for _, r := range funcs {
		if r.Name == "" {
			continue
		}
		out.Functions = append(out.Functions, r.FunctionOutput)
		if r.Err != nil {
			continue
		}
		sb.WriteString(r.Text)
		sb.WriteByte('\n')
	}
	out.Functions = append(out.Functions, ffi.failed...)
	ffi.emitStubs(&sb)
	ffi.emitCtors(&sb)
	out.Text = sb.String()
	return out
}
