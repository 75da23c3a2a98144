package types

import (
	"fmt"
	"strings"
)

// ParamMode is the declared passing mode of a parameter.
type ParamMode uint8

const (
	ModeValue ParamMode = iota
	ModeIn
	ModeRef
	ModeOut
)

var modeNames = [...]string{
	ModeValue: "value",
	ModeIn:    "in",
	ModeRef:   "ref",
	ModeOut:   "out",
}

func (m ParamMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("ParamMode(%d)", m)
}

// IsReference reports whether the parameter is passed by address.
func (m ParamMode) IsReference() bool { return m != ModeValue }

// MarshalText implements encoding.TextMarshaler.
func (m ParamMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ParamMode) UnmarshalText(b []byte) error {
	for i, name := range modeNames {
		if name == string(b) {
			*m = ParamMode(i)
			return nil
		}
	}
	return fmt.Errorf("types: unknown parameter mode %q", b)
}

// Calling convention names.
const (
	AbiChic = ""
	AbiC    = "C"
)

// FnType describes a function value or a declaration's shape.
type FnType struct {
	Params   []Type      `json:"params,omitempty" yaml:"params,omitempty" msgpack:"params,omitempty"`
	Modes    []ParamMode `json:"modes,omitempty" yaml:"modes,omitempty" msgpack:"modes,omitempty"`
	Ret      Type        `json:"ret" yaml:"ret" msgpack:"ret"`
	Abi      string      `json:"abi,omitempty" yaml:"abi,omitempty" msgpack:"abi,omitempty"`
	Variadic bool        `json:"variadic,omitempty" yaml:"variadic,omitempty" msgpack:"variadic,omitempty"`
}

// Mode returns the mode of parameter i, defaulting to by-value.
func (f *FnType) Mode(i int) ParamMode {
	if f == nil || i < 0 || i >= len(f.Modes) {
		return ModeValue
	}
	return f.Modes[i]
}

// IsExtern reports whether the function uses a foreign calling convention.
func (f *FnType) IsExtern() bool {
	return f != nil && f.Abi != AbiChic && !strings.EqualFold(f.Abi, "chic")
}

// IsCAbi reports whether the function uses the C calling convention.
func (f *FnType) IsCAbi() bool {
	return f != nil && strings.EqualFold(f.Abi, AbiC)
}

func (f *FnType) writeName(sb *strings.Builder) {
	sb.WriteString("fn")
	if f.IsExtern() {
		fmt.Fprintf(sb, " extern %q", f.Abi)
	}
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if m := f.Mode(i); m != ModeValue {
			sb.WriteString(m.String())
			sb.WriteByte(' ')
		}
		p.writeName(sb)
	}
	if f.Variadic {
		if len(f.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(") -> ")
	f.Ret.writeName(sb)
}
