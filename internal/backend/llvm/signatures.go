package llvm

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Chic-lang/Chic-sub009/internal/abi"
	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// EntrySymbol is the linker name of the program entry function.
const EntrySymbol = "__chic_program_main"

// rawSymbols keep their declared name; the runtime calls them directly.
var rawSymbols = map[string]struct{}{
	"chic_thread_invoke": {},
	"chic_thread_drop":   {},
}

// Signature is the lowered calling convention of one function. Params and
// ParamAttrs include the hidden return buffer when SretType is set; the
// per-parameter slices indexed by user parameter (RawParams, Pass, Coerce,
// Modes, ParamTypes) do not.
type Signature struct {
	Name       string
	Symbol     string
	Ret        string
	Params     []string
	ParamAttrs [][]string
	Arity      int
	Variadic   bool
	Weak       bool

	SretType  string
	SretAlign int
	// RetCoerce is set when the return travels in a coerced register shape.
	RetCoerce string
	// RawRet is the mapped representation of the semantic return type, ""
	// for unit.
	RawRet     string
	ReturnType types.Type

	RawParams  []string
	Pass       []abi.PassKind
	Coerce     []string
	Modes      []types.ParamMode
	ParamTypes []types.Type

	CABI    *abi.Signature
	Dynamic *DynamicBinding
	Func    *mir.Func
	Runtime bool
}

// DynamicBinding describes a symbol resolved from a shared library at run
// time through a descriptor global.
type DynamicBinding struct {
	Descriptor string
	LibGlobal  string
	SymGlobal  string
	Library    string
	Foreign    string
	Convention string
	Binding    mir.Binding
	Optional   bool
}

// HasSret reports whether a hidden return buffer is the first parameter.
func (s *Signature) HasSret() bool { return s.SretType != "" }

func (s *Signature) paramOffset() int {
	if s.HasSret() {
		return 1
	}
	return 0
}

// ParamRepr returns the lowered representation of user parameter i.
func (s *Signature) ParamRepr(i int) string { return s.Params[i+s.paramOffset()] }

func (s *Signature) paramAttrs(i int) []string {
	idx := i + s.paramOffset()
	if idx < len(s.ParamAttrs) {
		return s.ParamAttrs[idx]
	}
	return nil
}

func (s *Signature) passOf(i int) abi.PassKind {
	if i < len(s.Pass) {
		return s.Pass[i]
	}
	return abi.PassDirect
}

func (s *Signature) coerceOf(i int) string {
	if i < len(s.Coerce) {
		return s.Coerce[i]
	}
	return ""
}

func (s *Signature) modeOf(i int) types.ParamMode {
	if i < len(s.Modes) {
		return s.Modes[i]
	}
	return types.ModeValue
}

func (s *Signature) rawParam(i int) string {
	if i < len(s.RawParams) {
		return s.RawParams[i]
	}
	return s.ParamRepr(i)
}

// resultRepr is the representation of the value a call produces, before
// any spill back into the destination: the coerced shape, the buffer type,
// or the plain return.
func (s *Signature) resultRepr() string {
	switch {
	case s.HasSret():
		return s.SretType
	case s.Ret == "void":
		return ""
	}
	return s.Ret
}

// FnPtrType renders the function type used by variadic call syntax.
func (s *Signature) FnPtrType() string {
	params := slices.Clone(s.Params)
	if s.Variadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("%s (%s)", s.Ret, strings.Join(params, ", "))
}

func (s *Signature) renderParams(named bool) string {
	parts := make([]string, 0, len(s.Params)+1)
	for i, p := range s.Params {
		part := p
		if i < len(s.ParamAttrs) && len(s.ParamAttrs[i]) > 0 {
			part += " " + strings.Join(s.ParamAttrs[i], " ")
		}
		if named {
			part += fmt.Sprintf(" %%arg%d", i)
		}
		parts = append(parts, part)
	}
	if s.Variadic {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

// Decl renders the external declaration of the signature.
func (s *Signature) Decl() string {
	linkage := ""
	if s.Weak {
		linkage = "extern_weak "
	}
	return fmt.Sprintf("declare %s%s @%s(%s)", linkage, s.Ret, s.Symbol, s.renderParams(false))
}

// Header renders the `define` line of a function body.
func (s *Signature) Header() string {
	linkage := ""
	if s.Weak {
		linkage = "weak "
	}
	return fmt.Sprintf("define %s%s @%s(%s) {", linkage, s.Ret, s.Symbol, s.renderParams(true))
}

// SanitizeSymbol turns a qualified name into a linker-safe identifier.
// Names are NFC-normalized first so canonically equivalent spellings map to
// one symbol; path separators become `__` and any other character outside
// [A-Za-z0-9_] becomes `_`, with non-ASCII letters spelled as `uXXXX`.
func SanitizeSymbol(name string) string {
	name = norm.NFC.String(types.CanonicalPath(name))
	name = strings.ReplaceAll(name, "::", "__")
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		case r >= utf8.RuneSelf:
			fmt.Fprintf(&sb, "u%04X", r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// sigBuilder lowers declarations. It is only used before the table is
// frozen.
type sigBuilder struct {
	mapper  *TypeMapper
	target  layout.Target
	exports map[string]string
	entry   string
}

func (b *sigBuilder) symbolFor(f *mir.Func) string {
	name := types.CanonicalPath(f.Name)
	if sym, ok := b.exports[name]; ok && sym != "" {
		return sym
	}
	if f.Extern != nil && f.Extern.Alias != "" {
		return f.Extern.Alias
	}
	if b.entry != "" && name == b.entry {
		return EntrySymbol
	}
	short := types.ShortName(name)
	if _, ok := rawSymbols[short]; ok {
		return short
	}
	if f.Extern != nil && !f.HasBody() && f.Extern.Library == "" {
		return SanitizeSymbol(short)
	}
	if sym := SanitizeSymbol(name); sym != "" {
		return sym
	}
	return f.Name
}

// returnType applies the async and testcase return rewrites.
func returnType(f *mir.Func) types.Type {
	ret := f.Ret
	switch {
	case f.Async:
		inner := "()"
		if !ret.IsUnit() {
			inner = ret.CanonicalName()
		}
		return types.Named("Std::Async::Task<" + inner + ">")
	case f.Kind == mir.FuncTestcase && ret.IsUnit():
		return types.Named("int")
	}
	return ret
}

func (b *sigBuilder) build(f *mir.Func) (*Signature, error) {
	fn := f.FnType()
	fn.Ret = returnType(f)
	if f.Extern != nil && fn.Abi == types.AbiChic {
		fn.Abi = types.AbiC
		if f.Extern.Convention != "" {
			fn.Abi = f.Extern.Convention
		}
	}
	sig, err := b.lower(&fn)
	if err != nil {
		return nil, err
	}
	sig.Name = types.CanonicalPath(f.Name)
	sig.Symbol = b.symbolFor(f)
	sig.Weak = f.Weak || (f.Extern != nil && f.Extern.Weak)
	sig.Func = f
	for i, p := range f.Params {
		applyAliasAttrs(sig, i, p.Alias)
	}
	if f.Extern != nil && f.Extern.Library != "" {
		sig.Dynamic = b.dynamicBinding(f, sig)
	}
	return sig, nil
}

// lower maps a function shape to its calling convention. Named
// declarations and function-typed call sites both come through here, so
// equal shapes always lower identically.
func (b *sigBuilder) lower(fn *types.FnType) (*Signature, error) {
	sig := &Signature{
		Arity:      len(fn.Params),
		Variadic:   fn.Variadic,
		ReturnType: fn.Ret,
		Modes:      make([]types.ParamMode, len(fn.Params)),
		ParamTypes: slices.Clone(fn.Params),
		RawParams:  make([]string, len(fn.Params)),
		Pass:       make([]abi.PassKind, len(fn.Params)),
		Coerce:     make([]string, len(fn.Params)),
	}
	for i, p := range fn.Params {
		mode := fn.Mode(i)
		sig.Modes[i] = mode
		if mode.IsReference() {
			sig.RawParams[i] = reprPtr
			continue
		}
		repr, err := b.mapper.Map(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		if repr == "" {
			repr = "{}"
		}
		sig.RawParams[i] = repr
	}
	rawRet, err := b.mapper.Map(fn.Ret)
	if err != nil {
		return nil, fmt.Errorf("return type: %w", err)
	}
	sig.RawRet = rawRet
	sig.Params = slices.Clone(sig.RawParams)
	sig.ParamAttrs = make([][]string, len(sig.Params))
	sig.Ret = rawRet
	if sig.Ret == "" {
		sig.Ret = "void"
	}
	if !fn.IsCAbi() {
		return sig, nil
	}
	cabi, err := abi.Classify(fn, b.mapper.Layouts())
	if err != nil {
		return nil, wrapError(ErrABIMismatch, err, "classify `%s`", types.Func(*fn))
	}
	lowerCABI(sig, cabi)
	return sig, nil
}

// lowerCABI rewrites raw params/ret according to a classification:
// coercions, byval/ptr substitution, then sret insertion.
func lowerCABI(sig *Signature, cabi *abi.Signature) {
	sig.CABI = cabi
	for _, p := range cabi.Params {
		i := p.Index
		if i >= len(sig.Params) {
			continue
		}
		sig.Pass[i] = p.Pass
		switch p.Pass {
		case abi.PassByVal:
			sig.Params[i] = reprPtr
			sig.ParamAttrs[i] = append(sig.ParamAttrs[i], "byval("+sig.RawParams[i]+")", fmt.Sprintf("align %d", p.Align))
		case abi.PassPtr:
			sig.Params[i] = reprPtr
		default:
			if p.Coerce != "" {
				sig.Params[i] = p.Coerce
				sig.Coerce[i] = p.Coerce
			}
		}
	}
	switch {
	case cabi.Ret.Kind == abi.ReturnSret:
		sig.SretType = sig.RawRet
		sig.SretAlign = cabi.Ret.Align
		sig.Params = append([]string{reprPtr}, sig.Params...)
		sig.ParamAttrs = append([][]string{{"sret(" + sig.RawRet + ")", fmt.Sprintf("align %d", cabi.Ret.Align)}}, sig.ParamAttrs...)
		sig.Ret = "void"
	case cabi.Ret.Coerce != "":
		sig.RetCoerce = cabi.Ret.Coerce
		sig.Ret = cabi.Ret.Coerce
	}
}

// applyAliasAttrs adds the declared aliasing contract of user parameter i,
// only when its final representation is a pointer.
func applyAliasAttrs(sig *Signature, i int, c mir.AliasContract) {
	idx := i + sig.paramOffset()
	if idx >= len(sig.Params) || sig.Params[idx] != reprPtr {
		return
	}
	attrs := sig.ParamAttrs[idx]
	if c.NoAlias {
		attrs = append(attrs, "noalias")
	}
	if c.NoCapture {
		attrs = append(attrs, "nocapture")
	}
	switch {
	case c.ReadOnly && !c.WriteOnly:
		attrs = append(attrs, "readonly")
	case c.WriteOnly && !c.ReadOnly:
		attrs = append(attrs, "writeonly")
	}
	if c.Align > 0 && !slices.ContainsFunc(attrs, func(a string) bool { return strings.HasPrefix(a, "align ") }) {
		attrs = append(attrs, fmt.Sprintf("align %d", c.Align))
	}
	sig.ParamAttrs[idx] = attrs
}

func (b *sigBuilder) dynamicBinding(f *mir.Func, sig *Signature) *DynamicBinding {
	foreign := f.Extern.Alias
	if foreign == "" {
		foreign = types.ShortName(types.CanonicalPath(f.Name))
	}
	if sig.Symbol == foreign {
		// the stub owns the local symbol; the foreign one is only data
		sig.Symbol = SanitizeSymbol(f.Name)
	}
	san := sig.Symbol
	conv := f.Extern.Convention
	if conv == "" {
		conv = "C"
	}
	return &DynamicBinding{
		Descriptor: "__chic_ffi_desc_" + san,
		LibGlobal:  ".chic_ffi_lib_" + san,
		SymGlobal:  ".chic_ffi_sym_" + san,
		Library:    f.Extern.Library,
		Foreign:    foreign,
		Convention: conv,
		Binding:    f.Extern.Binding,
		Optional:   f.Extern.Optional,
	}
}

// SignatureTable is the frozen set of lowered signatures of one module.
// Declarations that failed to lower are kept as failures so that call sites
// can report them instead of falling back to a sentinel.
type SignatureTable struct {
	byName   map[string]*Signature
	names    []string
	failures map[string]error
	layouts  *layout.Table
}

// BuildSignatures lowers every function of mod.
func BuildSignatures(mod *mir.Module, mapper *TypeMapper) *SignatureTable {
	b := &sigBuilder{
		mapper:  mapper,
		target:  mapper.Layouts().Target(),
		exports: make(map[string]string, len(mod.Exports)),
		entry:   types.CanonicalPath(mod.Entry),
	}
	for _, e := range mod.Exports {
		b.exports[types.CanonicalPath(e.Function)] = e.Symbol
	}
	t := &SignatureTable{
		byName:   make(map[string]*Signature, len(mod.Funcs)),
		failures: make(map[string]error),
		layouts:  mapper.Layouts(),
	}
	for i := range mod.Funcs {
		f := &mod.Funcs[i]
		name := types.CanonicalPath(f.Name)
		if _, dup := t.byName[name]; dup {
			continue
		}
		sig, err := b.build(f)
		if err != nil {
			t.failures[name] = inFunc(name, err)
			continue
		}
		t.byName[name] = sig
		t.names = append(t.names, name)
	}
	slices.Sort(t.names)
	return t
}

// Lookup returns the signature of the exact canonical name.
func (t *SignatureTable) Lookup(name string) (*Signature, bool) {
	sig, ok := t.byName[types.CanonicalPath(name)]
	return sig, ok
}

// Failure returns the lowering error recorded for name.
func (t *SignatureTable) Failure(name string) error {
	return t.failures[types.CanonicalPath(name)]
}

// Failures returns all lowering errors keyed by function name.
func (t *SignatureTable) Failures() map[string]error { return t.failures }

// All returns every signature in name order.
func (t *SignatureTable) All() []*Signature {
	out := make([]*Signature, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, t.byName[n])
	}
	return out
}

var preferredNamespaces = [][]string{
	{"::SpanIntrinsics::"},
	{"::VecIntrinsics::"},
	{"::HashMapIntrinsics::", "::HashSetIntrinsics::"},
	{"::StringIntrinsics::"},
}

// Resolve finds the signature a call site names. The ladder is: exact
// canonical name, exact name without generic arguments, a unique
// qualified-suffix candidate, the preferred intrinsic namespaces, the
// lexicographically first candidate, and finally the runtime catalog.
func (t *SignatureTable) Resolve(name string) (*Signature, bool) {
	canonical := types.CanonicalPath(name)
	if sig, ok := t.byName[canonical]; ok {
		return sig, true
	}
	if stripped := types.StripGenerics(canonical); stripped != canonical {
		if sig, ok := t.byName[stripped]; ok {
			return sig, true
		}
	}
	if cands := t.candidates(canonical); len(cands) > 0 {
		return t.byName[pickCandidate(cands)], true
	}
	return runtimeSigs.lookup(canonical)
}

func (t *SignatureTable) candidates(canonical string) []string {
	base, _, _ := strings.Cut(canonical, "#")
	suffix := "::" + canonical
	unqualified := !strings.Contains(canonical, "::")
	var out []string
	for _, n := range t.names {
		nbase, _, _ := strings.Cut(n, "#")
		switch {
		case strings.HasSuffix(n, suffix):
		case nbase == base && n != canonical:
		case unqualified && types.ShortName(n) == canonical:
		default:
			continue
		}
		out = append(out, n)
	}
	return out
}

func pickCandidate(cands []string) string {
	if len(cands) == 1 {
		return cands[0]
	}
	for _, group := range preferredNamespaces {
		for _, c := range cands {
			for _, ns := range group {
				if strings.Contains(c, ns) {
					return c
				}
			}
		}
	}
	return cands[0]
}

// ResolveConstructor re-resolves a delegating constructor call:
// `Owner::init#super` targets the first base class, `Owner::init#self` the
// owner itself. Among that class's `init#` overloads the first whose arity
// equals argc wins, else the first overload.
func (t *SignatureTable) ResolveConstructor(name string, argc int) (*Signature, bool) {
	canonical := types.CanonicalPath(name)
	owner, ok := strings.CutSuffix(canonical, "::init#super")
	if ok {
		l, found := t.layouts.Lookup(owner)
		if !found || len(l.Bases) == 0 {
			return nil, false
		}
		owner = types.CanonicalPath(l.Bases[0])
	} else if owner, ok = strings.CutSuffix(canonical, "::init#self"); !ok {
		return nil, false
	}
	if l, found := t.layouts.Lookup(owner); found {
		owner = l.Name
	}
	prefix := owner + "::init#"
	var cands []*Signature
	for _, n := range t.names {
		if strings.HasPrefix(n, prefix) {
			cands = append(cands, t.byName[n])
		}
	}
	if len(cands) == 0 {
		return nil, false
	}
	for _, sig := range cands {
		if sig.Arity == argc {
			return sig, true
		}
	}
	return cands[0], true
}

// HasBaseCandidate reports whether any function shares the base method
// name (last segment, without overload suffix or generic arguments).
func (t *SignatureTable) HasBaseCandidate(name string) bool {
	want := baseMethodName(name)
	for _, n := range t.names {
		if baseMethodName(n) == want {
			return true
		}
	}
	return false
}

func baseMethodName(name string) string {
	short := types.ShortName(types.CanonicalPath(name))
	short, _, _ = strings.Cut(short, "#")
	return types.StripGenerics(short)
}

// externSignature lowers a function value's pointee shape at a call site.
func (e *moduleEmitter) externSignature(fn *types.FnType) (*Signature, error) {
	b := &sigBuilder{mapper: e.mapper, target: e.target}
	return b.lower(fn)
}
