package llvm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Chic-lang/Chic-sub009/internal/mir"
)

// operand materialises op. want is the representation the consumer expects;
// untyped constants adopt it when they can.
func (fe *funcEmitter) operand(op *mir.Operand, want string) (string, string, error) {
	switch op.Kind {
	case mir.OperandCopy, mir.OperandMove:
		return fe.readPlace(op.Place)
	case mir.OperandBorrow:
		addr, err := fe.placeAddress(op.Place)
		if err != nil {
			return "", "", err
		}
		return addr.ptr, reprPtr, nil
	case mir.OperandConst:
		return fe.constant(&op.Const, want)
	case mir.OperandMmio:
		return fe.mmioRead(op.Mmio)
	case mir.OperandPending:
		if op.Pending != "" {
			if sig, ok := fe.resolveCallee(op.Pending, -1); ok {
				fe.use(sig)
				return "@" + sig.Symbol, reprPtr, nil
			}
		}
		return "", "", errorf(ErrMissingSignature, "unresolved operand `%s`", op.Pending)
	}
	return "", "", errorf(ErrInternal, "operand kind %s", op.Kind)
}

func (fe *funcEmitter) constant(c *mir.Const, want string) (string, string, error) {
	repr, ok := fe.constRepr(c)
	if !ok {
		return "", "", errorf(ErrUnknownType, "constant of kind %s has no representation", c.Kind)
	}
	untyped := c.Type == nil
	switch c.Kind {
	case mir.ConstInt:
		if untyped {
			switch {
			case isIntRepr(want):
				repr = want
			case isFloatRepr(want):
				return fe.floatConst(float64(c.Int), want), want, nil
			case want == reprPtr && c.Int == 0:
				return "null", reprPtr, nil
			}
		}
		if isFloatRepr(repr) {
			return fe.floatConst(float64(c.Int), repr), repr, nil
		}
		if repr == reprPtr {
			if c.Int == 0 {
				return "null", reprPtr, nil
			}
			tmp := fe.nextTemp()
			fe.line("%s = inttoptr i64 %d to ptr", tmp, c.Int)
			return tmp, reprPtr, nil
		}
		return strconv.FormatInt(c.Int, 10), repr, nil
	case mir.ConstFloat:
		if untyped && isFloatRepr(want) {
			repr = want
		}
		return fe.floatConst(c.Float, repr), repr, nil
	case mir.ConstBool:
		if c.Bool {
			return "1", repr, nil
		}
		return "0", repr, nil
	case mir.ConstChar:
		if untyped && isIntRepr(want) {
			repr = want
		}
		return strconv.FormatInt(c.Int, 10), repr, nil
	case mir.ConstStr:
		v, err := fe.e.strings.value(c.Str)
		return v, reprStr, err
	case mir.ConstNull:
		if untyped && want != "" && want != reprPtr {
			return zeroValue(want), want, nil
		}
		return "null", repr, nil
	case mir.ConstUnit:
		return "", "", nil
	case mir.ConstSymbol:
		sig, ok := fe.resolveCallee(c.Str, -1)
		if !ok {
			return "", "", errorf(ErrMissingSignature, "unresolved function reference `%s`", c.Str)
		}
		fe.use(sig)
		return "@" + sig.Symbol, reprPtr, nil
	case mir.ConstDecimal:
		return strconv.FormatInt(c.Int, 10), repr, nil
	}
	return "", "", errorf(ErrInternal, "constant kind %s", c.Kind)
}

// floatConst spells v in the hexadecimal form LLVM accepts: the bit
// pattern of the double, rounded to single precision first for float.
// Other widths are converted from a double constant.
func (fe *funcEmitter) floatConst(v float64, repr string) string {
	switch {
	case repr == "float":
		return fmt.Sprintf("0x%016X", math.Float64bits(float64(float32(v))))
	case repr == "double":
		return fmt.Sprintf("0x%016X", math.Float64bits(v))
	case v == 0:
		return zeroValue(repr)
	}
	out, err := fe.convert(fmt.Sprintf("0x%016X", math.Float64bits(v)), "double", repr, true)
	if err != nil {
		return zeroValue(repr)
	}
	return out
}

func (fe *funcEmitter) mmioRead(m mir.Mmio) (string, string, error) {
	if m.WidthBits <= 0 || m.WidthBits > 64 {
		return "", "", errorf(ErrInternal, "mmio width %d bits", m.WidthBits)
	}
	fe.useRuntime("chic_rt_mmio_read")
	raw := fe.nextTemp()
	fe.line("%s = call i64 @chic_rt_mmio_read(i64 %d, i32 %d, i32 %d)", raw, m.Address, m.WidthBits, m.Flags)
	if m.WidthBits > 32 {
		return raw, "i64", nil
	}
	v, err := fe.convert(raw, "i64", "i32", false)
	return v, "i32", err
}
