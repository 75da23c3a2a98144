package llvm

import (
	"fmt"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/abi"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/trace"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// callArg is one argument of a call: either an operand still to be
// evaluated, or a value the dispatch code already produced.
type callArg struct {
	op   *mir.Operand
	val  string
	repr string
}

func operandArgs(ops []mir.Operand) []callArg {
	out := make([]callArg, len(ops))
	for i := range ops {
		out[i] = callArg{op: &ops[i]}
	}
	return out
}

func (fe *funcEmitter) emitCall(call *mir.CallTerm) error {
	switch call.Dispatch.Kind {
	case mir.DispatchDirect:
		if _, byName := call.Func.CalleeName(); !byName {
			return fe.emitIndirectCall(call)
		}
		return fe.emitDirectCall(call)
	case mir.DispatchIndirect:
		return fe.emitIndirectCall(call)
	case mir.DispatchVirtual:
		return fe.emitVirtualCall(call)
	case mir.DispatchTrait:
		return fe.emitTraitCall(call)
	}
	return errorf(ErrInternal, "dispatch kind %s", call.Dispatch.Kind)
}

// resolveCallee runs the name ladder. Delegating constructor calls are
// matched by argc first; argc < 0 means the arity is unknown.
func (fe *funcEmitter) resolveCallee(name string, argc int) (*Signature, bool) {
	if argc >= 0 {
		if sig, ok := fe.e.sigs.ResolveConstructor(name, argc); ok {
			return sig, true
		}
	}
	return fe.e.sigs.Resolve(name)
}

func (fe *funcEmitter) emitDirectCall(call *mir.CallTerm) error {
	name, _ := call.Func.CalleeName()
	sig, ok := fe.resolveCallee(name, len(call.Args))
	if !ok {
		if err := fe.e.sigs.Failure(name); err != nil {
			return wrapError(ErrMissingSignature, err, "callee `%s` has no usable signature", name)
		}
		return fe.emitUnresolvedCall(call, name)
	}
	fe.use(sig)
	return fe.callWith(sig, "@"+sig.Symbol, operandArgs(call.Args), call.Dest, nil)
}

// emitUnresolvedCall stands in for a callee with no declaration at all:
// the destination receives a zero value and emission carries on.
func (fe *funcEmitter) emitUnresolvedCall(call *mir.CallTerm, name string) error {
	trace.Point(fe.e.tracer, trace.ScopeNode, "unresolved_call", name, fe.span)
	if call.Dest == nil {
		return nil
	}
	repr, ok := fe.placeRepr(*call.Dest)
	if !ok || repr == "" {
		return nil
	}
	return fe.writePlace(*call.Dest, zeroValue(repr), repr, false)
}

// callWith emits a call of callee under sig. leading holds rendered
// arguments placed before the user arguments (a closure context), which
// the signature does not describe.
func (fe *funcEmitter) callWith(sig *Signature, callee string, args []callArg, dest *mir.Place, leading []string) error {
	if len(args) < sig.Arity || (!sig.Variadic && len(args) != sig.Arity) {
		return errorf(ErrArity, "`%s` takes %d arguments, got %d", sig.Name, sig.Arity, len(args))
	}
	parts := make([]string, 0, len(leading)+len(args)+1)
	parts = append(parts, leading...)

	sret := ""
	if sig.HasSret() {
		if dest != nil {
			addr, err := fe.placeAddress(*dest)
			if err != nil {
				return err
			}
			if addr.repr == sig.SretType {
				sret = addr.ptr
			}
		}
		reused := sret != ""
		if !reused {
			sret = fe.alloca(sig.SretType)
		}
		parts = append(parts, renderArg(reprPtr, sig.ParamAttrs[0], sret))
		if reused {
			dest = nil
		}
	}

	for i := range args {
		if i >= sig.Arity {
			v, repr, err := fe.variadicArg(&args[i])
			if err != nil {
				return err
			}
			if repr != "" {
				parts = append(parts, repr+" "+v)
			}
			continue
		}
		v, err := fe.lowerArg(sig, i, &args[i])
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		parts = append(parts, renderArg(sig.ParamRepr(i), sig.paramAttrs(i), v))
	}

	callTy := sig.Ret
	if sig.Variadic {
		callTy = fnTypeWithLeading(sig, len(leading))
	}
	if sig.Ret == "void" {
		fe.line("call %s %s(%s)", callTy, callee, strings.Join(parts, ", "))
	} else {
		res := fe.nextTemp()
		fe.line("%s = call %s %s(%s)", res, callTy, callee, strings.Join(parts, ", "))
		if dest == nil {
			return nil
		}
		return fe.storeResult(sig, res, *dest)
	}
	if sret != "" && dest != nil {
		v := fe.load(sig.SretType, sret)
		return fe.writePlace(*dest, v, sig.SretType, true)
	}
	return nil
}

// storeResult reconciles the returned value with the destination's own
// representation.
func (fe *funcEmitter) storeResult(sig *Signature, res string, dest mir.Place) error {
	repr := sig.Ret
	if sig.RetCoerce != "" && sig.RawRet != "" {
		raw, err := fe.convert(res, sig.RetCoerce, sig.RawRet, true)
		if err != nil {
			return err
		}
		res, repr = raw, sig.RawRet
	}
	return fe.writePlace(dest, res, repr, isSignedType(sig.ReturnType))
}

func renderArg(repr string, attrs []string, val string) string {
	if len(attrs) == 0 {
		return repr + " " + val
	}
	return repr + " " + strings.Join(attrs, " ") + " " + val
}

func fnTypeWithLeading(sig *Signature, leading int) string {
	if leading == 0 {
		return sig.FnPtrType()
	}
	params := make([]string, 0, leading+len(sig.Params)+1)
	for j := 0; j < leading; j++ {
		params = append(params, reprPtr)
	}
	params = append(params, sig.Params...)
	params = append(params, "...")
	return fmt.Sprintf("%s (%s)", sig.Ret, strings.Join(params, ", "))
}

// lowerArg produces the value passed for user parameter i in its final
// calling-convention shape.
func (fe *funcEmitter) lowerArg(sig *Signature, i int, a *callArg) (string, error) {
	want := sig.ParamRepr(i)
	if a.op == nil {
		return fe.convert(a.val, a.repr, want, true)
	}
	signed := fe.operandSigned(a.op)
	raw := sig.rawParam(i)
	if raw == "{}" {
		return "zeroinitializer", nil
	}
	switch {
	case sig.modeOf(i).IsReference():
		return fe.argAddress(a.op, raw)
	case sig.passOf(i) == abi.PassByVal, sig.passOf(i) == abi.PassPtr:
		v, repr, err := fe.operand(a.op, raw)
		if err != nil {
			return "", err
		}
		if v, err = fe.convert(v, repr, raw, signed); err != nil {
			return "", err
		}
		tmp := fe.alloca(raw)
		fe.line("store %s %s, ptr %s", raw, v, tmp)
		return tmp, nil
	case sig.coerceOf(i) != "":
		v, repr, err := fe.operand(a.op, raw)
		if err != nil {
			return "", err
		}
		if v, err = fe.convert(v, repr, raw, signed); err != nil {
			return "", err
		}
		return fe.convert(v, raw, sig.coerceOf(i), signed)
	}
	v, repr, err := fe.operand(a.op, want)
	if err != nil {
		return "", err
	}
	return fe.convert(v, repr, want, signed)
}

// argAddress passes a reference-mode argument: the address of its place,
// or of a temporary holding a constant.
func (fe *funcEmitter) argAddress(op *mir.Operand, raw string) (string, error) {
	if p, ok := op.PlaceOf(); ok {
		addr, err := fe.placeAddress(p)
		if err != nil {
			return "", err
		}
		return addr.ptr, nil
	}
	v, repr, err := fe.operand(op, "")
	if err != nil {
		return "", err
	}
	if repr == reprPtr && op.Kind == mir.OperandConst && op.Const.Kind == mir.ConstNull {
		return "null", nil
	}
	if repr == "" {
		return "null", nil
	}
	tmp := fe.alloca(repr)
	fe.line("store %s %s, ptr %s", repr, v, tmp)
	return tmp, nil
}

// variadicArg applies the default argument promotions.
func (fe *funcEmitter) variadicArg(a *callArg) (string, string, error) {
	v, repr := a.val, a.repr
	signed := true
	if a.op != nil {
		var err error
		if v, repr, err = fe.operand(a.op, ""); err != nil {
			return "", "", err
		}
		signed = fe.operandSigned(a.op)
	}
	switch {
	case repr == "float" || repr == "half" || repr == "bfloat":
		out, err := fe.convert(v, repr, "double", signed)
		return out, "double", err
	case isIntRepr(repr) && intBits(repr) < 32:
		out, err := fe.convert(v, repr, "i32", signed)
		return out, "i32", err
	}
	return v, repr, nil
}

// structuralSignature builds a signature from the call site alone: each
// argument keeps its own representation and the result takes the
// destination's.
func (fe *funcEmitter) structuralSignature(name string, args []callArg, dest *mir.Place) *Signature {
	sig := &Signature{
		Name:       name,
		Arity:      len(args),
		Params:     make([]string, len(args)),
		ParamAttrs: make([][]string, len(args)),
		RawParams:  make([]string, len(args)),
		Pass:       make([]abi.PassKind, len(args)),
		Coerce:     make([]string, len(args)),
		Modes:      make([]types.ParamMode, len(args)),
		ParamTypes: make([]types.Type, len(args)),
		ReturnType: types.Unit(),
		Ret:        "void",
	}
	for i, a := range args {
		repr := a.repr
		if a.op != nil {
			r, ok := fe.operandRepr(a.op)
			if !ok || r == "" {
				r = fe.wordRepr()
				if a.op.Kind == mir.OperandBorrow {
					r = reprPtr
				}
			}
			repr = r
		}
		sig.Params[i], sig.RawParams[i] = repr, repr
		sig.ParamTypes[i] = types.Unknown()
	}
	if dest != nil {
		if repr, ok := fe.placeRepr(*dest); ok && repr != "" {
			sig.Ret, sig.RawRet = repr, repr
			if ty, err := fe.placeType(*dest); err == nil {
				sig.ReturnType = ty
			}
		}
	}
	return sig
}
