package mir

import "github.com/Chic-lang/Chic-sub009/internal/types"

type OperandKind uint8

const (
	OperandCopy OperandKind = iota
	OperandMove
	OperandConst
	// OperandMmio reads a memory-mapped hardware register.
	OperandMmio
	// OperandBorrow takes the address of a place.
	OperandBorrow
	// OperandPending is a value the lowering pass could not classify yet,
	// typically a by-name function reference.
	OperandPending
)

var operandKindNames = []string{
	OperandCopy:    "copy",
	OperandMove:    "move",
	OperandConst:   "const",
	OperandMmio:    "mmio",
	OperandBorrow:  "borrow",
	OperandPending: "pending",
}

func (k OperandKind) String() string                { return enumString(k, operandKindNames, "OperandKind") }
func (k OperandKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *OperandKind) UnmarshalText(b []byte) error { return parseEnum(k, b, operandKindNames, "operand") }

type Operand struct {
	Kind    OperandKind `json:"kind" yaml:"kind" msgpack:"kind"`
	Place   Place       `json:"place,omitempty" yaml:"place,omitempty" msgpack:"place,omitempty"`
	Const   Const       `json:"const,omitempty" yaml:"const,omitempty" msgpack:"const,omitempty"`
	Mmio    Mmio        `json:"mmio,omitempty" yaml:"mmio,omitempty" msgpack:"mmio,omitempty"`
	Pending string      `json:"pending,omitempty" yaml:"pending,omitempty" msgpack:"pending,omitempty"`
}

// Mmio is a raw register access.
type Mmio struct {
	Address   uint64 `json:"address" yaml:"address" msgpack:"address"`
	WidthBits int    `json:"width_bits" yaml:"width_bits" msgpack:"width_bits"`
	Flags     uint32 `json:"flags,omitempty" yaml:"flags,omitempty" msgpack:"flags,omitempty"`
}

type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstChar
	ConstStr
	ConstNull
	ConstUnit
	// ConstSymbol names a function; it is the usual callee operand.
	ConstSymbol
	ConstDecimal
)

var constKindNames = []string{
	ConstInt:     "int",
	ConstFloat:   "float",
	ConstBool:    "bool",
	ConstChar:    "char",
	ConstStr:     "str",
	ConstNull:    "null",
	ConstUnit:    "unit",
	ConstSymbol:  "symbol",
	ConstDecimal: "decimal",
}

func (k ConstKind) String() string                { return enumString(k, constKindNames, "ConstKind") }
func (k ConstKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *ConstKind) UnmarshalText(b []byte) error { return parseEnum(k, b, constKindNames, "constant") }

// Const is a typed constant. Type is optional; when unset the natural type
// of the constant kind applies.
type Const struct {
	Kind  ConstKind   `json:"kind" yaml:"kind" msgpack:"kind"`
	Int   int64       `json:"int,omitempty" yaml:"int,omitempty" msgpack:"int,omitempty"`
	Float float64     `json:"float,omitempty" yaml:"float,omitempty" msgpack:"float,omitempty"`
	Bool  bool        `json:"bool,omitempty" yaml:"bool,omitempty" msgpack:"bool,omitempty"`
	Str   string      `json:"str,omitempty" yaml:"str,omitempty" msgpack:"str,omitempty"`
	Type  *types.Type `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
}

// Constructors.

func Copy(p Place) Operand   { return Operand{Kind: OperandCopy, Place: p} }
func Move(p Place) Operand   { return Operand{Kind: OperandMove, Place: p} }
func Borrow(p Place) Operand { return Operand{Kind: OperandBorrow, Place: p} }

func IntConst(v int64, ty types.Type) Operand {
	return Operand{Kind: OperandConst, Const: Const{Kind: ConstInt, Int: v, Type: &ty}}
}

func BoolConst(v bool) Operand {
	return Operand{Kind: OperandConst, Const: Const{Kind: ConstBool, Bool: v}}
}

func StrConst(s string) Operand {
	return Operand{Kind: OperandConst, Const: Const{Kind: ConstStr, Str: s}}
}

func Symbol(name string) Operand {
	return Operand{Kind: OperandConst, Const: Const{Kind: ConstSymbol, Str: name}}
}

func Pending(name string) Operand { return Operand{Kind: OperandPending, Pending: name} }

// PlaceOf returns the place read by a copy, move or borrow operand.
func (o Operand) PlaceOf() (Place, bool) {
	switch o.Kind {
	case OperandCopy, OperandMove, OperandBorrow:
		return o.Place, true
	}
	return Place{}, false
}

// CalleeName returns the by-name callee referenced by o, if any.
func (o Operand) CalleeName() (string, bool) {
	switch {
	case o.Kind == OperandConst && o.Const.Kind == ConstSymbol:
		return o.Const.Str, true
	case o.Kind == OperandPending && o.Pending != "":
		return o.Pending, true
	}
	return "", false
}
