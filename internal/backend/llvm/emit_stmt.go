package llvm

import (
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

func (fe *funcEmitter) emitStmt(st *mir.Statement) error {
	switch st.Kind {
	case mir.StmtAssign:
		return fe.emitAssign(&st.Assign)
	case mir.StmtStorageLive, mir.StmtStorageDead, mir.StmtNop:
		return nil
	}
	return errorf(ErrInternal, "statement kind %s", st.Kind)
}

func (fe *funcEmitter) emitAssign(a *mir.AssignStmt) error {
	want, _ := fe.placeRepr(a.Place)
	val, repr, err := fe.emitRvalue(&a.Value, want)
	if err != nil {
		return err
	}
	return fe.writePlace(a.Place, val, repr, fe.rvalueSigned(&a.Value))
}

// rvalueSigned reports whether a widening of the rvalue's result should
// sign-extend.
func (fe *funcEmitter) rvalueSigned(rv *mir.Rvalue) bool {
	switch rv.Kind {
	case mir.RvalueUse:
		return fe.operandSigned(&rv.Use)
	case mir.RvalueBinary:
		if rv.Binary.Op.IsComparison() {
			return false
		}
		return fe.operandSigned(&rv.Binary.L)
	case mir.RvalueUnary:
		return fe.operandSigned(&rv.Unary.Operand)
	case mir.RvalueCast:
		return isSignedType(rv.Cast.To)
	case mir.RvalueLen:
		return false
	}
	return true
}

func (fe *funcEmitter) operandSigned(op *mir.Operand) bool {
	switch op.Kind {
	case mir.OperandCopy, mir.OperandMove:
		ty, err := fe.placeType(op.Place)
		return err != nil || isSignedType(ty)
	case mir.OperandConst:
		if op.Const.Type != nil {
			return isSignedType(*op.Const.Type)
		}
		return op.Const.Kind == mir.ConstInt || op.Const.Kind == mir.ConstFloat
	}
	return false
}

func (fe *funcEmitter) emitRvalue(rv *mir.Rvalue, want string) (string, string, error) {
	switch rv.Kind {
	case mir.RvalueUse:
		return fe.operand(&rv.Use, want)
	case mir.RvalueBinary:
		return fe.emitBinary(&rv.Binary, want)
	case mir.RvalueUnary:
		return fe.emitUnary(&rv.Unary, want)
	case mir.RvalueCast:
		to, err := fe.e.mapper.Map(rv.Cast.To)
		if err != nil {
			return "", "", err
		}
		val, repr, err := fe.operand(&rv.Cast.Operand, "")
		if err != nil {
			return "", "", err
		}
		signed := fe.operandSigned(&rv.Cast.Operand)
		if isFloatRepr(repr) && isIntRepr(to) {
			signed = isSignedType(rv.Cast.To)
		}
		out, err := fe.convert(val, repr, to, signed)
		return out, to, err
	case mir.RvalueAddressOf:
		addr, err := fe.placeAddress(rv.AddressOf)
		if err != nil {
			return "", "", err
		}
		return addr.ptr, reprPtr, nil
	case mir.RvalueLen:
		return fe.emitLen(rv.Len)
	}
	return "", "", errorf(ErrInternal, "rvalue kind %s", rv.Kind)
}

var (
	intBinOps = map[mir.BinOp][2]string{
		mir.BinAdd: {"add", "add"}, mir.BinSub: {"sub", "sub"}, mir.BinMul: {"mul", "mul"},
		mir.BinDiv: {"sdiv", "udiv"}, mir.BinRem: {"srem", "urem"},
		mir.BinAnd: {"and", "and"}, mir.BinOr: {"or", "or"}, mir.BinXor: {"xor", "xor"},
		mir.BinShl: {"shl", "shl"}, mir.BinShr: {"ashr", "lshr"},
		mir.BinEq: {"icmp eq", "icmp eq"}, mir.BinNe: {"icmp ne", "icmp ne"},
		mir.BinLt: {"icmp slt", "icmp ult"}, mir.BinLe: {"icmp sle", "icmp ule"},
		mir.BinGt: {"icmp sgt", "icmp ugt"}, mir.BinGe: {"icmp sge", "icmp uge"},
	}
	floatBinOps = map[mir.BinOp]string{
		mir.BinAdd: "fadd", mir.BinSub: "fsub", mir.BinMul: "fmul", mir.BinDiv: "fdiv", mir.BinRem: "frem",
		mir.BinEq: "fcmp oeq", mir.BinNe: "fcmp une", mir.BinLt: "fcmp olt",
		mir.BinLe: "fcmp ole", mir.BinGt: "fcmp ogt", mir.BinGe: "fcmp oge",
	}
)

// emitBinary evaluates both sides in one representation: the first side
// whose representation is statically known, else the destination's.
func (fe *funcEmitter) emitBinary(b *mir.BinaryOp, want string) (string, string, error) {
	opRepr, ok := fe.operandRepr(&b.L)
	if !ok || b.L.Kind == mir.OperandConst && b.L.Const.Type == nil {
		if r, rok := fe.operandRepr(&b.R); rok && !(b.R.Kind == mir.OperandConst && b.R.Const.Type == nil) {
			opRepr, ok = r, true
		}
	}
	if !ok || opRepr == "" {
		opRepr = want
		if b.Op.IsComparison() || opRepr == "" {
			opRepr = fe.wordRepr()
		}
	}
	signed := fe.operandSigned(&b.L)
	lv, lr, err := fe.operand(&b.L, opRepr)
	if err != nil {
		return "", "", err
	}
	if lv, err = fe.convert(lv, lr, opRepr, signed); err != nil {
		return "", "", err
	}
	rv, rr, err := fe.operand(&b.R, opRepr)
	if err != nil {
		return "", "", err
	}
	if rv, err = fe.convert(rv, rr, opRepr, fe.operandSigned(&b.R)); err != nil {
		return "", "", err
	}

	elem := opRepr
	if isVectorRepr(opRepr) {
		elem = vectorElem(opRepr)
	}
	var inst string
	switch {
	case isFloatRepr(elem):
		op, ok := floatBinOps[b.Op]
		if !ok {
			return "", "", errorf(ErrInternal, "operator %s on `%s`", b.Op, opRepr)
		}
		inst = op
	case isIntRepr(elem) || opRepr == reprPtr:
		ops, ok := intBinOps[b.Op]
		if !ok {
			return "", "", errorf(ErrInternal, "operator %s", b.Op)
		}
		if opRepr == reprPtr && !b.Op.IsComparison() {
			return "", "", errorf(ErrInternal, "arithmetic %s on a pointer", b.Op)
		}
		inst = ops[0]
		if !signed {
			inst = ops[1]
		}
	default:
		return "", "", errorf(ErrInternal, "operator %s on `%s`", b.Op, opRepr)
	}
	tmp := fe.nextTemp()
	fe.line("%s = %s %s %s, %s", tmp, inst, opRepr, lv, rv)
	if !b.Op.IsComparison() || isVectorRepr(opRepr) {
		return tmp, opRepr, nil
	}
	out := fe.nextTemp()
	fe.line("%s = zext i1 %s to i8", out, tmp)
	return out, "i8", nil
}

func vectorElem(repr string) string {
	_, elem, ok := splitCount(repr[1 : len(repr)-1])
	if !ok {
		return ""
	}
	return elem
}

func (fe *funcEmitter) emitUnary(u *mir.UnaryOp, want string) (string, string, error) {
	v, repr, err := fe.operand(&u.Operand, want)
	if err != nil {
		return "", "", err
	}
	tmp := fe.nextTemp()
	switch {
	case u.Op == mir.UnNeg && isFloatRepr(repr):
		fe.line("%s = fneg %s %s", tmp, repr, v)
	case u.Op == mir.UnNeg && isIntRepr(repr):
		fe.line("%s = sub %s 0, %s", tmp, repr, v)
	case u.Op == mir.UnNot && isIntRepr(repr) && fe.isBoolOperand(&u.Operand):
		fe.line("%s = xor %s %s, 1", tmp, repr, v)
	case u.Op == mir.UnNot && isIntRepr(repr):
		fe.line("%s = xor %s %s, -1", tmp, repr, v)
	default:
		return "", "", errorf(ErrInternal, "operator %s on `%s`", u.Op, repr)
	}
	return tmp, repr, nil
}

func (fe *funcEmitter) isBoolOperand(op *mir.Operand) bool {
	switch op.Kind {
	case mir.OperandConst:
		return op.Const.Kind == mir.ConstBool
	case mir.OperandCopy, mir.OperandMove:
		ty, err := fe.placeType(op.Place)
		if err != nil || ty.Kind != types.KindNamed {
			return false
		}
		short := types.ShortName(ty.Name)
		return short == "bool" || short == "boolean"
	}
	return false
}
