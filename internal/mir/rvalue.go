package mir

import "github.com/Chic-lang/Chic-sub009/internal/types"

type RvalueKind uint8

const (
	RvalueUse RvalueKind = iota
	RvalueBinary
	RvalueUnary
	RvalueCast
	RvalueAddressOf
	// RvalueLen reads the element count of a sequence place.
	RvalueLen
)

var rvalueKindNames = []string{
	RvalueUse:       "use",
	RvalueBinary:    "binary",
	RvalueUnary:     "unary",
	RvalueCast:      "cast",
	RvalueAddressOf: "address_of",
	RvalueLen:       "len",
}

func (k RvalueKind) String() string                { return enumString(k, rvalueKindNames, "RvalueKind") }
func (k RvalueKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *RvalueKind) UnmarshalText(b []byte) error { return parseEnum(k, b, rvalueKindNames, "rvalue") }

type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

var binOpNames = []string{
	BinAdd: "add", BinSub: "sub", BinMul: "mul", BinDiv: "div", BinRem: "rem",
	BinAnd: "and", BinOr: "or", BinXor: "xor", BinShl: "shl", BinShr: "shr",
	BinEq: "eq", BinNe: "ne", BinLt: "lt", BinLe: "le", BinGt: "gt", BinGe: "ge",
}

func (op BinOp) String() string                { return enumString(op, binOpNames, "BinOp") }
func (op BinOp) MarshalText() ([]byte, error)  { return []byte(op.String()), nil }
func (op *BinOp) UnmarshalText(b []byte) error { return parseEnum(op, b, binOpNames, "binary op") }

// IsComparison reports whether op yields a boolean.
func (op BinOp) IsComparison() bool { return op >= BinEq }

type UnOp uint8

const (
	UnNeg UnOp = iota
	UnNot
)

var unOpNames = []string{UnNeg: "neg", UnNot: "not"}

func (op UnOp) String() string                { return enumString(op, unOpNames, "UnOp") }
func (op UnOp) MarshalText() ([]byte, error)  { return []byte(op.String()), nil }
func (op *UnOp) UnmarshalText(b []byte) error { return parseEnum(op, b, unOpNames, "unary op") }

type Rvalue struct {
	Kind RvalueKind `json:"kind" yaml:"kind" msgpack:"kind"`

	Use       Operand  `json:"use,omitempty" yaml:"use,omitempty" msgpack:"use,omitempty"`
	Binary    BinaryOp `json:"binary,omitempty" yaml:"binary,omitempty" msgpack:"binary,omitempty"`
	Unary     UnaryOp  `json:"unary,omitempty" yaml:"unary,omitempty" msgpack:"unary,omitempty"`
	Cast      CastOp   `json:"cast,omitempty" yaml:"cast,omitempty" msgpack:"cast,omitempty"`
	AddressOf Place    `json:"address_of,omitempty" yaml:"address_of,omitempty" msgpack:"address_of,omitempty"`
	Len       Place    `json:"len,omitempty" yaml:"len,omitempty" msgpack:"len,omitempty"`
}

type BinaryOp struct {
	Op BinOp   `json:"op" yaml:"op" msgpack:"op"`
	L  Operand `json:"l" yaml:"l" msgpack:"l"`
	R  Operand `json:"r" yaml:"r" msgpack:"r"`
}

type UnaryOp struct {
	Op      UnOp    `json:"op" yaml:"op" msgpack:"op"`
	Operand Operand `json:"operand" yaml:"operand" msgpack:"operand"`
}

type CastOp struct {
	Operand Operand    `json:"operand" yaml:"operand" msgpack:"operand"`
	To      types.Type `json:"to" yaml:"to" msgpack:"to"`
}

func Use(op Operand) Rvalue { return Rvalue{Kind: RvalueUse, Use: op} }
