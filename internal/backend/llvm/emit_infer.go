package llvm

import (
	"slices"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// inferLocals assigns one representation to every local before any
// instruction is written. Declared types seed the table; decimal call
// results are pinned next; a monotonic fixed point then fills the locals
// still unknown from the values assigned to them. Whatever remains
// afterwards is word-sized.
func (fe *funcEmitter) inferLocals() error {
	f := fe.f
	fe.locals = make([]localSlot, len(f.Locals))
	for i := range f.Locals {
		id, err := mir.LocalIndex(i)
		if err != nil {
			return wrapError(ErrInternal, err, "local %d", i)
		}
		if err := fe.seedLocal(id); err != nil {
			return err
		}
	}
	if err := fe.pinDecimalLocals(); err != nil {
		return err
	}
	for changed := true; changed; {
		changed = false
		for bi := range f.Blocks {
			bb := &f.Blocks[bi]
			for si := range bb.Stmts {
				st := &bb.Stmts[si]
				if st.Kind != mir.StmtAssign || !st.Assign.Place.IsBare() {
					continue
				}
				if fe.learn(st.Assign.Place.Local, func() (string, bool) { return fe.rvalueRepr(&st.Assign.Value) }) {
					changed = true
				}
			}
			call := &bb.Term.Call
			if bb.Term.Kind != mir.TermCall || call.Dest == nil || !call.Dest.IsBare() {
				continue
			}
			if fe.learn(call.Dest.Local, func() (string, bool) { return fe.callResultRepr(call) }) {
				changed = true
			}
		}
	}
	word := fe.wordRepr()
	for i := range fe.locals {
		if !fe.locals[i].known {
			fe.locals[i].repr = word
			fe.locals[i].known = true
		}
	}
	return nil
}

// learn sets an unknown local from source. Known locals never change.
func (fe *funcEmitter) learn(id mir.LocalID, source func() (string, bool)) bool {
	if id < 0 || int(id) >= len(fe.locals) || fe.locals[id].known {
		return false
	}
	repr, ok := source()
	if !ok {
		return false
	}
	fe.locals[id].repr = repr
	fe.locals[id].known = true
	return true
}

func (fe *funcEmitter) seedLocal(id mir.LocalID) error {
	l := &fe.f.Locals[id]
	s := &fe.locals[id]
	s.ty = l.Type
	if id == fe.ret {
		s.ty = fe.sig.ReturnType
		s.repr, s.known = fe.sig.RawRet, true
		return nil
	}
	if l.Kind == mir.LocalArg {
		k := l.ArgIndex
		if k < 0 || k >= fe.sig.Arity {
			return errorf(ErrArity, "argument local %d binds parameter %d of %d", id, k, fe.sig.Arity)
		}
		if c := fe.sig.coerceOf(k); c != "" {
			s.repr, s.known = c, true
			return nil
		}
		if fe.sig.modeOf(k).IsReference() && !l.Type.IsPointerLike() {
			s.byRef = true
			if l.Type.Kind == types.KindUnknown {
				return nil
			}
			repr, err := fe.e.mapper.Map(l.Type)
			if err != nil {
				return err
			}
			s.repr, s.known = repr, true
			return nil
		}
		repr := fe.sig.rawParam(k)
		if repr == "{}" {
			repr = ""
		}
		s.repr, s.known = repr, true
		return nil
	}
	if l.Type.Kind == types.KindUnknown {
		return nil
	}
	repr, err := fe.e.mapper.Map(l.Type)
	if err != nil {
		return err
	}
	s.repr, s.known = repr, true
	return nil
}

// decimalFamily classifies a callee by name. intrinsic reports the
// `Decimal::Intrinsics` family, whose result flows on through named fields.
func decimalFamily(name string) (result string, intrinsic, ok bool) {
	canonical := types.CanonicalPath(name)
	if strings.Contains(strings.ToLower(canonical), "decimal::intrinsics::") {
		return layout.DecimalIntrinsicResult, true, true
	}
	short := types.ShortName(canonical)
	rest, found := strings.CutPrefix(short, "chic_rt_decimal_")
	if !found {
		return "", false, false
	}
	for _, suffix := range []string{"sum", "dot", "sum_simd", "dot_simd"} {
		if strings.HasSuffix(rest, suffix) {
			return layout.DecimalRuntimeCall, false, true
		}
	}
	return "i32", false, true
}

var decimalResultFields = map[string]struct{}{"Status": {}, "Value": {}, "Variant": {}}

// pinDecimalLocals fixes the destinations of decimal calls to the
// runtime's result shape. Struct results of both families follow plain
// copies of a pinned local; status codes stay at the call. The intrinsic
// family also claims every untyped local written through a Status, Value
// or Variant field, so a result assembled field by field gets the same
// shape.
func (fe *funcEmitter) pinDecimalLocals() error {
	intrinsic := make(map[mir.LocalID]string)
	runtime := make(map[mir.LocalID]string)
	status := make(map[mir.LocalID]string)
	for bi := range fe.f.Blocks {
		term := &fe.f.Blocks[bi].Term
		dest := term.Call.Dest
		if term.Kind != mir.TermCall || dest == nil || (!dest.IsBare() && !fe.untyped(dest.Local)) {
			continue
		}
		name, ok := term.Call.Func.CalleeName()
		if !ok {
			continue
		}
		result, isIntrinsic, ok := decimalFamily(name)
		switch {
		case !ok:
		case isIntrinsic:
			intrinsic[dest.Local] = result
		case result == layout.DecimalRuntimeCall:
			runtime[dest.Local] = result
		default:
			status[dest.Local] = result
		}
	}
	fe.propagateDecimal(intrinsic, layout.DecimalIntrinsicResult)
	fe.propagateDecimal(runtime, "")

	pins := make(map[mir.LocalID]string, len(intrinsic)+len(runtime)+len(status))
	for id, result := range status {
		pins[id] = result
	}
	for id, result := range runtime {
		pins[id] = result
	}
	for id, result := range intrinsic {
		pins[id] = result
	}
	ids := make([]mir.LocalID, 0, len(pins))
	for id := range pins {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if id == fe.ret {
			continue
		}
		s, err := fe.slot(id)
		if err != nil {
			continue
		}
		result := pins[id]
		if result == "i32" {
			s.repr, s.known = result, true
			continue
		}
		repr, err := fe.e.mapper.Map(types.Named(result))
		if err != nil {
			return err
		}
		s.repr, s.known = repr, true
		if s.ty.Kind == types.KindUnknown {
			s.ty = types.Named(result)
		}
	}
	return nil
}

// propagateDecimal grows tracked to a fixed point. A bare copy of a tracked
// local tracks its destination. When fieldResult is set, writing through a
// decimal result field tracks the written local too. A projected
// destination is only claimed when its local has no declared type.
func (fe *funcEmitter) propagateDecimal(tracked map[mir.LocalID]string, fieldResult string) {
	claim := func(p mir.Place, result string) bool {
		if _, done := tracked[p.Local]; done {
			return false
		}
		if !p.IsBare() && !fe.untyped(p.Local) {
			return false
		}
		tracked[p.Local] = result
		return true
	}
	for changed := true; changed; {
		changed = false
		for bi := range fe.f.Blocks {
			for _, st := range fe.f.Blocks[bi].Stmts {
				if st.Kind != mir.StmtAssign {
					continue
				}
				dst := st.Assign.Place
				if fieldResult != "" && hasDecimalField(dst) && claim(dst, fieldResult) {
					changed = true
					continue
				}
				src, ok := copySource(&st.Assign.Value)
				if !ok {
					continue
				}
				if from, pinned := tracked[src]; pinned && claim(dst, from) {
					changed = true
				}
			}
		}
	}
}

func (fe *funcEmitter) untyped(id mir.LocalID) bool {
	if id < 0 || int(id) >= len(fe.f.Locals) {
		return false
	}
	return fe.f.Locals[id].Type.Kind == types.KindUnknown
}

func hasDecimalField(p mir.Place) bool {
	for _, proj := range p.Proj {
		if proj.Kind != mir.ProjFieldNamed {
			continue
		}
		if _, ok := decimalResultFields[proj.Name]; ok {
			return true
		}
	}
	return false
}

// copySource reports the local a plain copy or move reads from.
func copySource(rv *mir.Rvalue) (mir.LocalID, bool) {
	if rv.Kind != mir.RvalueUse {
		return mir.NoLocalID, false
	}
	op := &rv.Use
	if op.Kind != mir.OperandCopy && op.Kind != mir.OperandMove {
		return mir.NoLocalID, false
	}
	if !op.Place.IsBare() {
		return mir.NoLocalID, false
	}
	return op.Place.Local, true
}

// rvalueRepr is the representation an rvalue produces, if it can be told
// without emitting code.
func (fe *funcEmitter) rvalueRepr(rv *mir.Rvalue) (string, bool) {
	switch rv.Kind {
	case mir.RvalueUse:
		return fe.operandRepr(&rv.Use)
	case mir.RvalueBinary:
		if rv.Binary.Op.IsComparison() {
			return "i8", true
		}
		if repr, ok := fe.operandRepr(&rv.Binary.L); ok {
			return repr, true
		}
		return fe.operandRepr(&rv.Binary.R)
	case mir.RvalueUnary:
		return fe.operandRepr(&rv.Unary.Operand)
	case mir.RvalueCast:
		repr, err := fe.e.mapper.Map(rv.Cast.To)
		return repr, err == nil
	case mir.RvalueAddressOf:
		return reprPtr, true
	case mir.RvalueLen:
		return fe.wordRepr(), true
	}
	return "", false
}

func (fe *funcEmitter) operandRepr(op *mir.Operand) (string, bool) {
	switch op.Kind {
	case mir.OperandCopy, mir.OperandMove:
		return fe.placeRepr(op.Place)
	case mir.OperandConst:
		return fe.constRepr(&op.Const)
	case mir.OperandMmio:
		if op.Mmio.WidthBits <= 32 {
			return "i32", true
		}
		return "i64", true
	case mir.OperandBorrow:
		return reprPtr, true
	}
	return "", false
}

func (fe *funcEmitter) constRepr(c *mir.Const) (string, bool) {
	if c.Type != nil && c.Type.Kind != types.KindUnknown {
		repr, err := fe.e.mapper.Map(*c.Type)
		return repr, err == nil
	}
	switch c.Kind {
	case mir.ConstInt:
		return "i32", true
	case mir.ConstFloat:
		return "double", true
	case mir.ConstBool:
		return "i8", true
	case mir.ConstChar:
		return "i16", true
	case mir.ConstStr:
		return reprStr, true
	case mir.ConstNull, mir.ConstSymbol:
		return reprPtr, true
	case mir.ConstDecimal:
		return "i128", true
	case mir.ConstUnit:
		return "", true
	}
	return "", false
}

func (fe *funcEmitter) placeRepr(p mir.Place) (string, bool) {
	if p.IsBare() {
		s, err := fe.slot(p.Local)
		if err != nil || !s.known {
			return "", false
		}
		return s.repr, true
	}
	ty, err := fe.placeType(p)
	if err != nil || ty.Kind == types.KindUnknown {
		return "", false
	}
	repr, err := fe.e.mapper.Map(ty)
	return repr, err == nil
}

// callResultRepr is the raw representation a call returns, before any
// reconciliation with its destination.
func (fe *funcEmitter) callResultRepr(call *mir.CallTerm) (string, bool) {
	if call.Dispatch.Kind == mir.DispatchIndirect {
		p, ok := call.Func.PlaceOf()
		if !ok {
			return "", false
		}
		ty, err := fe.placeType(p)
		if err != nil || ty.Kind != types.KindFn || ty.Fn == nil {
			return "", false
		}
		repr, err := fe.e.mapper.Map(ty.Fn.Ret)
		return repr, err == nil
	}
	name, ok := call.Func.CalleeName()
	if !ok {
		return "", false
	}
	sig, ok := fe.resolveCallee(name, len(call.Args))
	if !ok {
		return "", false
	}
	return sig.RawRet, true
}
