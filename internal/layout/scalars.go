package layout

import (
	"strconv"
	"strings"
)

// ScalarClass distinguishes integer and floating scalar encodings.
type ScalarClass uint8

const (
	ScalarInt ScalarClass = iota
	ScalarFloat
	// ScalarBFloat is the 16-bit brain float.
	ScalarBFloat
)

// Scalar describes a primitive type's machine encoding.
type Scalar struct {
	Class  ScalarClass
	Size   int
	Align  int
	Signed bool
}

func intScalar(size int, signed bool) Scalar {
	return Scalar{Class: ScalarInt, Size: size, Align: size, Signed: signed}
}

func floatScalar(size int) Scalar {
	return Scalar{Class: ScalarFloat, Size: size, Align: size, Signed: true}
}

var scalars = map[string]Scalar{
	"bool": intScalar(1, false), "boolean": intScalar(1, false),
	"byte": intScalar(1, false), "u8": intScalar(1, false),
	"sbyte": intScalar(1, true), "i8": intScalar(1, true),
	"char": intScalar(2, false), "ushort": intScalar(2, false), "u16": intScalar(2, false),
	"short": intScalar(2, true), "i16": intScalar(2, true),
	"int": intScalar(4, true), "i32": intScalar(4, true),
	"uint": intScalar(4, false), "u32": intScalar(4, false),
	"long": intScalar(8, true), "i64": intScalar(8, true), "isize": intScalar(8, true), "nint": intScalar(8, true),
	"ulong": intScalar(8, false), "u64": intScalar(8, false), "usize": intScalar(8, false), "nuint": intScalar(8, false),
	"i128": intScalar(16, true), "u128": intScalar(16, false),
	"decimal": intScalar(16, true),
	"half":    floatScalar(2), "f16": floatScalar(2),
	"bf16":  {Class: ScalarBFloat, Size: 2, Align: 2, Signed: true},
	"float": floatScalar(4), "f32": floatScalar(4),
	"double": floatScalar(8), "f64": floatScalar(8),
	"quad": floatScalar(16), "f128": floatScalar(16),
}

// LookupScalar resolves a primitive scalar by full or short name.
func LookupScalar(name string) (Scalar, bool) {
	if s, ok := scalars[name]; ok {
		return s, true
	}
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		s, ok := scalars[name[idx+2:]]
		return s, ok
	}
	return Scalar{}, false
}

// ParseSimdName recognizes SIMD vector names such as "f32x4" or "i16x8" and
// returns the lane scalar name and lane count.
func ParseSimdName(name string) (string, int, bool) {
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		name = name[idx+2:]
	}
	x := strings.LastIndexByte(name, 'x')
	if x <= 1 || x == len(name)-1 {
		return "", 0, false
	}
	elem := name[:x]
	switch elem[0] {
	case 'f', 'i', 'u':
	default:
		return "", 0, false
	}
	if _, ok := scalars[elem]; !ok {
		return "", 0, false
	}
	lanes, err := strconv.Atoi(name[x+1:])
	if err != nil || lanes <= 0 {
		return "", 0, false
	}
	return elem, lanes, true
}
