// Package types models the semantic types carried by MIR: scalars and named
// aggregates by canonical name, plus the structural wrappers the backend has
// to lower (pointers, sequences, function values, trait objects).
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates all supported kinds of semantic types.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnit
	// KindNamed covers primitive scalars ("int", "double") and every
	// user-declared aggregate, looked up by canonical name.
	KindNamed
	KindPointer
	KindRef
	KindNullable
	// KindArray is a fixed array when Len > 0, a growable array otherwise.
	KindArray
	KindVec
	KindSpan
	KindReadOnlySpan
	KindString
	KindStr
	KindTuple
	KindFn
	KindTraitObject
	// KindVector is a SIMD vector of Len lanes.
	KindVector
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindUnit:         "unit",
	KindNamed:        "named",
	KindPointer:      "pointer",
	KindRef:          "ref",
	KindNullable:     "nullable",
	KindArray:        "array",
	KindVec:          "vec",
	KindSpan:         "span",
	KindReadOnlySpan: "readonly_span",
	KindString:       "string",
	KindStr:          "str",
	KindTuple:        "tuple",
	KindFn:           "fn",
	KindTraitObject:  "trait_object",
	KindVector:       "vector",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("types: unknown kind %q", b)
}

// Type is a semantic type descriptor. Only the fields relevant for Kind are set.
type Type struct {
	Kind Kind   `json:"kind" yaml:"kind" msgpack:"kind"`
	Name string `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	// Elem is the pointee/element for wrappers and sequences.
	Elem    *Type   `json:"elem,omitempty" yaml:"elem,omitempty" msgpack:"elem,omitempty"`
	Len     int     `json:"len,omitempty" yaml:"len,omitempty" msgpack:"len,omitempty"`
	Mutable bool    `json:"mutable,omitempty" yaml:"mutable,omitempty" msgpack:"mutable,omitempty"`
	Elems   []Type  `json:"elems,omitempty" yaml:"elems,omitempty" msgpack:"elems,omitempty"`
	Fn      *FnType `json:"fn,omitempty" yaml:"fn,omitempty" msgpack:"fn,omitempty"`
	// Traits lists the bounds of a trait object, primary trait first.
	Traits []string `json:"traits,omitempty" yaml:"traits,omitempty" msgpack:"traits,omitempty"`
}

// Constructors.

func Unknown() Type          { return Type{Kind: KindUnknown} }
func Unit() Type             { return Type{Kind: KindUnit} }
func Named(name string) Type { return Type{Kind: KindNamed, Name: name} }
func Str() Type              { return Type{Kind: KindStr} }
func StringType() Type       { return Type{Kind: KindString} }

func Pointer(elem Type, mutable bool) Type {
	return Type{Kind: KindPointer, Elem: &elem, Mutable: mutable}
}

func Ref(elem Type, mutable bool) Type {
	return Type{Kind: KindRef, Elem: &elem, Mutable: mutable}
}

func Nullable(elem Type) Type { return Type{Kind: KindNullable, Elem: &elem} }

// Array returns a fixed array of n elements; n == 0 yields a growable array.
func Array(elem Type, n int) Type { return Type{Kind: KindArray, Elem: &elem, Len: n} }

func Vec(elem Type) Type          { return Type{Kind: KindVec, Elem: &elem} }
func Span(elem Type) Type         { return Type{Kind: KindSpan, Elem: &elem} }
func ReadOnlySpan(elem Type) Type { return Type{Kind: KindReadOnlySpan, Elem: &elem} }
func Vector(elem Type, lanes int) Type {
	return Type{Kind: KindVector, Elem: &elem, Len: lanes}
}

func Tuple(elems ...Type) Type { return Type{Kind: KindTuple, Elems: elems} }

func TraitObject(traits ...string) Type { return Type{Kind: KindTraitObject, Traits: traits} }

func Func(fn FnType) Type { return Type{Kind: KindFn, Fn: &fn} }

// IsUnit reports whether t is the zero-sized unit type.
func (t Type) IsUnit() bool {
	if t.Kind == KindUnit {
		return true
	}
	return t.Kind == KindNamed && (t.Name == "void" || t.Name == "()")
}

// IsPointerLike reports whether t erases to a bare pointer.
func (t Type) IsPointerLike() bool {
	switch t.Kind {
	case KindPointer, KindRef, KindNullable:
		return true
	case KindFn:
		return t.Fn != nil && t.Fn.IsExtern()
	}
	return false
}

// Pointee unwraps pointer, reference and nullable wrappers once.
func (t Type) Pointee() (Type, bool) {
	switch t.Kind {
	case KindPointer, KindRef, KindNullable:
		if t.Elem != nil {
			return *t.Elem, true
		}
	}
	return Type{}, false
}

// ElemType returns the element type, or Unknown when absent.
func (t Type) ElemType() Type {
	if t.Elem == nil {
		return Unknown()
	}
	return *t.Elem
}

// CanonicalName renders t in the form used as a layout-table key.
func (t Type) CanonicalName() string {
	var sb strings.Builder
	t.writeName(&sb)
	return sb.String()
}

func (t Type) String() string { return t.CanonicalName() }

func (t Type) writeName(sb *strings.Builder) {
	switch t.Kind {
	case KindUnknown:
		sb.WriteString("<unknown>")
	case KindUnit:
		sb.WriteString("()")
	case KindNamed:
		sb.WriteString(t.Name)
	case KindPointer:
		if t.Mutable {
			sb.WriteString("*mut ")
		} else {
			sb.WriteString("*const ")
		}
		t.ElemType().writeName(sb)
	case KindRef:
		if t.Mutable {
			sb.WriteString("ref mut ")
		} else {
			sb.WriteString("ref ")
		}
		t.ElemType().writeName(sb)
	case KindNullable:
		t.ElemType().writeName(sb)
		sb.WriteByte('?')
	case KindArray:
		sb.WriteString("Array<")
		t.ElemType().writeName(sb)
		if t.Len > 0 {
			sb.WriteString(", ")
			sb.WriteString(strconv.Itoa(t.Len))
		}
		sb.WriteByte('>')
	case KindVec:
		sb.WriteString("Vec<")
		t.ElemType().writeName(sb)
		sb.WriteByte('>')
	case KindSpan:
		sb.WriteString("Span<")
		t.ElemType().writeName(sb)
		sb.WriteByte('>')
	case KindReadOnlySpan:
		sb.WriteString("ReadOnlySpan<")
		t.ElemType().writeName(sb)
		sb.WriteByte('>')
	case KindString:
		sb.WriteString("string")
	case KindStr:
		sb.WriteString("str")
	case KindTuple:
		sb.WriteByte('(')
		for i, e := range t.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.writeName(sb)
		}
		sb.WriteByte(')')
	case KindFn:
		if t.Fn == nil {
			sb.WriteString("fn()")
			return
		}
		t.Fn.writeName(sb)
	case KindTraitObject:
		sb.WriteString("dyn ")
		sb.WriteString(strings.Join(t.Traits, " + "))
	case KindVector:
		sb.WriteString("vector<")
		t.ElemType().writeName(sb)
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(t.Len))
		sb.WriteByte('>')
	default:
		fmt.Fprintf(sb, "<kind %d>", t.Kind)
	}
}
