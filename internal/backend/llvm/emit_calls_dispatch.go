package llvm

import (
	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// emitIndirectCall calls through a function-typed place. Foreign function
// values hold a bare code pointer; everything else is a closure whose
// context pointer becomes the hidden first argument.
func (fe *funcEmitter) emitIndirectCall(call *mir.CallTerm) error {
	p, ok := call.Func.PlaceOf()
	if !ok {
		return errorf(ErrInternal, "indirect call through %s operand", call.Func.Kind)
	}
	ty, err := fe.placeType(p)
	if err != nil {
		return err
	}
	for ty.IsPointerLike() {
		inner, ok := ty.Pointee()
		if !ok || inner.Kind != types.KindFn {
			break
		}
		p, ty = p.Deref(), inner
	}
	args := operandArgs(call.Args)

	if ty.Kind == types.KindFn && ty.Fn.IsExtern() {
		sig, err := fe.e.externSignature(ty.Fn)
		if err != nil {
			return wrapError(ErrABIMismatch, err, "call through `%s`", ty)
		}
		sig.Name = ty.String()
		fnPtr, repr, err := fe.readPlace(p)
		if err != nil {
			return err
		}
		if repr != reprPtr {
			return errorf(ErrABIMismatch, "function value `%s` is `%s`, not a pointer", ty, repr)
		}
		return fe.callWith(sig, fnPtr, args, call.Dest, nil)
	}

	var sig *Signature
	if ty.Kind == types.KindFn && ty.Fn != nil {
		if sig, err = fe.e.externSignature(ty.Fn); err != nil {
			return err
		}
		sig.Name = ty.String()
	} else {
		sig = fe.structuralSignature(ty.String(), args, call.Dest)
	}
	addr, err := fe.placeAddress(p)
	if err != nil {
		return err
	}
	invokeOff, ctxOff := fe.closureOffsets(ty)
	invoke := fe.load(reprPtr, fe.fieldPtr(addr.ptr, invokeOff))
	ctx := fe.load(reprPtr, fe.fieldPtr(addr.ptr, ctxOff))
	return fe.callWith(sig, invoke, args, call.Dest, []string{"ptr " + ctx})
}

// closureOffsets locates the invoke and context words of a closure value,
// defaulting to two adjacent words at the start.
func (fe *funcEmitter) closureOffsets(ty types.Type) (int, int) {
	l, ok := fe.layoutOf(ty)
	if !ok {
		l, ok = fe.e.layouts.Exact(layout.BuiltinClosure)
	}
	if ok {
		inv, okI := l.FieldByName("invoke")
		ctx, okC := l.FieldByName("context")
		if okI && okC {
			return inv.Offset, ctx.Offset
		}
	}
	return 0, fe.e.target.PtrSize
}

// slotAddress indexes a method table. A known length turns the table into
// an `[n x ptr]` array access.
func (fe *funcEmitter) slotAddress(table string, slots, slot int) string {
	tmp := fe.nextTemp()
	if slots > 0 {
		fe.line("%s = getelementptr inbounds [%d x ptr], ptr %s, i64 0, i64 %d", tmp, slots, table, slot)
	} else {
		fe.line("%s = getelementptr inbounds ptr, ptr %s, i64 %d", tmp, table, slot)
	}
	return tmp
}

func checkSlot(d *mir.Dispatch) error {
	if d.Slot < 0 || (d.SlotCount > 0 && d.Slot >= d.SlotCount) {
		return errorf(ErrMissingLayout, "slot %d outside a table of %d", d.Slot, d.SlotCount)
	}
	return nil
}

func (fe *funcEmitter) receiverArg(call *mir.CallTerm) (*mir.Operand, error) {
	d := &call.Dispatch
	if d.Receiver < 0 || d.Receiver >= len(call.Args) {
		return nil, errorf(ErrArity, "receiver index %d with %d arguments", d.Receiver, len(call.Args))
	}
	return &call.Args[d.Receiver], nil
}

func (fe *funcEmitter) emitVirtualCall(call *mir.CallTerm) error {
	d := &call.Dispatch
	name, ok := call.Func.CalleeName()
	if !ok {
		return errorf(ErrInternal, "virtual call without a method name")
	}
	sig, ok := fe.resolveCallee(name, len(call.Args))
	if !ok {
		return errorf(ErrMissingSignature, "missing signature for virtual method `%s`", name)
	}
	recv, err := fe.receiverArg(call)
	if err != nil {
		return err
	}

	var fnSlot string
	if d.BaseOwner != "" {
		vt, ok := fe.e.vtables.Class(d.BaseOwner)
		if !ok {
			return errorf(ErrMissingLayout, "no method table for class `%s`", d.BaseOwner)
		}
		if _, err := vt.Slot(d.Slot); err != nil {
			return err
		}
		fnSlot = fe.slotAddress("@"+vt.Symbol, vt.Len(), d.Slot)
	} else {
		if err := checkSlot(d); err != nil {
			return err
		}
		obj, class, err := fe.receiverObject(recv)
		if err != nil {
			return err
		}
		off := 0
		if l, ok := fe.layoutOf(class); ok {
			off = l.ClassVTableOffset()
		}
		table := fe.load(reprPtr, fe.fieldPtr(obj, off))
		fnSlot = fe.slotAddress(table, d.SlotCount, d.Slot)
	}
	fnPtr := fe.load(reprPtr, fnSlot)
	return fe.callWith(sig, fnPtr, operandArgs(call.Args), call.Dest, nil)
}

// receiverObject evaluates a class receiver down to the object pointer.
// A reference to a handle is loaded once more.
func (fe *funcEmitter) receiverObject(op *mir.Operand) (string, types.Type, error) {
	v, repr, err := fe.operand(op, reprPtr)
	if err != nil {
		return "", types.Type{}, err
	}
	if repr != reprPtr {
		return "", types.Type{}, errorf(ErrInternal, "receiver is `%s`, not an object pointer", repr)
	}
	ty := types.Unknown()
	if p, ok := op.PlaceOf(); ok {
		if ty, err = fe.placeType(p); err != nil {
			return "", types.Type{}, err
		}
	}
	if op.Kind == mir.OperandBorrow {
		v = fe.load(reprPtr, v)
	}
	for ty.IsPointerLike() {
		inner, ok := ty.Pointee()
		if !ok {
			break
		}
		if l, ok := fe.layoutOf(inner); ok && l.Kind == layout.KindClass && ty.Kind != types.KindNullable {
			v = fe.load(reprPtr, v)
		}
		ty = fe.resolveSelf(inner)
	}
	return v, ty, nil
}

func (fe *funcEmitter) emitTraitCall(call *mir.CallTerm) error {
	d := &call.Dispatch
	name, ok := call.Func.CalleeName()
	if !ok {
		return errorf(ErrInternal, "trait call without a method name")
	}
	recv, err := fe.receiverArg(call)
	if err != nil {
		return err
	}

	var data, fnSlot string
	if d.Impl != "" {
		vt, ok := fe.e.vtables.Trait(d.Trait, d.Impl)
		if !ok {
			return errorf(ErrMissingLayout, "no method table for `%s` as `%s`", d.Impl, d.Trait)
		}
		if _, err := vt.Slot(d.Slot); err != nil {
			return err
		}
		if data, err = fe.traitData(recv); err != nil {
			return err
		}
		fnSlot = fe.slotAddress("@"+vt.Symbol, vt.Len(), d.Slot)
	} else {
		if err := checkSlot(d); err != nil {
			return err
		}
		pair, err := fe.traitPair(recv)
		if err != nil {
			return err
		}
		data = fe.nextTemp()
		fe.line("%s = extractvalue %s %s, 0", data, reprTraitObject, pair)
		table := fe.nextTemp()
		fe.line("%s = extractvalue %s %s, 1", table, reprTraitObject, pair)
		fnSlot = fe.slotAddress(table, d.SlotCount, d.Slot)
	}
	fnPtr := fe.load(reprPtr, fnSlot)

	args := operandArgs(call.Args)
	args[d.Receiver] = callArg{val: data, repr: reprPtr}
	sig, err := fe.traitSignature(name, args, call.Dest)
	if err != nil {
		return err
	}
	return fe.callWith(sig, fnPtr, args, call.Dest, nil)
}

// traitSignature prefers a declared signature. A structural one is only
// accepted when some function shares the method's base name.
func (fe *funcEmitter) traitSignature(name string, args []callArg, dest *mir.Place) (*Signature, error) {
	sigs := fe.e.sigs
	if sig, ok := sigs.Lookup(name); ok {
		return sig, nil
	}
	if sig, ok := sigs.Lookup(types.StripGenerics(name)); ok {
		return sig, nil
	}
	if sigs.HasBaseCandidate(name) {
		return fe.structuralSignature(name, args, dest), nil
	}
	return nil, errorf(ErrMissingSignature, "missing LLVM signature for trait method `%s`", name)
}

// traitPair loads the two-word trait object the receiver names.
func (fe *funcEmitter) traitPair(op *mir.Operand) (string, error) {
	p, ok := op.PlaceOf()
	if !ok {
		return "", errorf(ErrUnsupportedProjection, "trait receiver must be a place, got %s", op.Kind)
	}
	addr, err := fe.placeAddress(p)
	if err != nil {
		return "", err
	}
	ptr, ty := addr.ptr, addr.ty
	for ty.Kind != types.KindTraitObject {
		inner, ok := ty.Pointee()
		if !ok {
			break
		}
		ptr, ty = fe.load(reprPtr, ptr), inner
	}
	if ty.Kind != types.KindTraitObject && ty.Kind != types.KindUnknown {
		return "", errorf(ErrUnsupportedProjection, "trait receiver is `%s`", ty)
	}
	return fe.load(reprTraitObject, ptr), nil
}

// traitData is the data pointer passed as self: word 0 of a trait object,
// otherwise the receiver pointer itself.
func (fe *funcEmitter) traitData(op *mir.Operand) (string, error) {
	if p, ok := op.PlaceOf(); ok && op.Kind != mir.OperandBorrow {
		ty, err := fe.placeType(p)
		if err != nil {
			return "", err
		}
		if ty.Kind == types.KindTraitObject {
			pair, err := fe.traitPair(op)
			if err != nil {
				return "", err
			}
			data := fe.nextTemp()
			fe.line("%s = extractvalue %s %s, 0", data, reprTraitObject, pair)
			return data, nil
		}
	}
	v, repr, err := fe.operand(op, reprPtr)
	if err != nil {
		return "", err
	}
	if repr != reprPtr {
		tmp := fe.alloca(repr)
		fe.line("store %s %s, ptr %s", repr, v, tmp)
		return tmp, nil
	}
	return v, nil
}
