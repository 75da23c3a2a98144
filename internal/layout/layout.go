// Package layout holds the per-module type layout table: resolved sizes,
// alignments and field offsets for every named type, keyed by canonical name.
package layout

import (
	"fmt"
	"slices"

	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// Kind classifies a layout record.
type Kind uint8

const (
	KindStruct Kind = iota
	KindClass
	KindEnum
	KindUnion
)

var kindNames = [...]string{
	KindStruct: "struct",
	KindClass:  "class",
	KindEnum:   "enum",
	KindUnion:  "union",
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
	return fmt.Errorf("layout: unknown kind %q", b)
}

// Mmio describes a memory-mapped register field.
type Mmio struct {
	Address   uint64 `json:"address" yaml:"address" msgpack:"address"`
	WidthBits int    `json:"width_bits" yaml:"width_bits" msgpack:"width_bits"`
	ReadOnly  bool   `json:"read_only,omitempty" yaml:"read_only,omitempty" msgpack:"read_only,omitempty"`
}

// Field is one member of a struct or class layout.
type Field struct {
	Name   string     `json:"name" yaml:"name" msgpack:"name"`
	Type   types.Type `json:"type" yaml:"type" msgpack:"type"`
	Offset int        `json:"offset" yaml:"offset" msgpack:"offset"`
	Mmio   *Mmio      `json:"mmio,omitempty" yaml:"mmio,omitempty" msgpack:"mmio,omitempty"`
	// Dispose names the drop routine run for this field, if any.
	Dispose string `json:"dispose,omitempty" yaml:"dispose,omitempty" msgpack:"dispose,omitempty"`
}

// Variant is an enum case with its discriminant.
type Variant struct {
	Name         string `json:"name" yaml:"name" msgpack:"name"`
	Discriminant int64  `json:"discriminant" yaml:"discriminant" msgpack:"discriminant"`
}

// View is one overlapping interpretation of a union.
type View struct {
	Name string     `json:"name" yaml:"name" msgpack:"name"`
	Type types.Type `json:"type" yaml:"type" msgpack:"type"`
}

// TypeLayout is the resolved layout of one named type.
//
// Size == 0 means no size was recorded; offsets are then only bounded by the
// fields themselves.
type TypeLayout struct {
	Name   string `json:"name" yaml:"name" msgpack:"name"`
	Kind   Kind   `json:"kind" yaml:"kind" msgpack:"kind"`
	Size   int    `json:"size,omitempty" yaml:"size,omitempty" msgpack:"size,omitempty"`
	Align  int    `json:"align,omitempty" yaml:"align,omitempty" msgpack:"align,omitempty"`
	Packed bool   `json:"packed,omitempty" yaml:"packed,omitempty" msgpack:"packed,omitempty"`

	// Struct/class:
	Fields []Field `json:"fields,omitempty" yaml:"fields,omitempty" msgpack:"fields,omitempty"`
	// Class-only: offset of the embedded method-table pointer.
	VTableOffset *int     `json:"vtable_offset,omitempty" yaml:"vtable_offset,omitempty" msgpack:"vtable_offset,omitempty"`
	Bases        []string `json:"bases,omitempty" yaml:"bases,omitempty" msgpack:"bases,omitempty"`

	// Enum-only.
	Variants []Variant `json:"variants,omitempty" yaml:"variants,omitempty" msgpack:"variants,omitempty"`

	// Union-only.
	Views []View `json:"views,omitempty" yaml:"views,omitempty" msgpack:"views,omitempty"`
}

// FieldByName returns the named field.
func (l *TypeLayout) FieldByName(name string) (Field, bool) {
	if l == nil {
		return Field{}, false
	}
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldByIndex returns the field at declaration index idx.
func (l *TypeLayout) FieldByIndex(idx int) (Field, bool) {
	if l == nil || idx < 0 || idx >= len(l.Fields) {
		return Field{}, false
	}
	return l.Fields[idx], true
}

// SortedFields returns the fields ordered by offset, keeping declaration
// order for equal offsets.
func (l *TypeLayout) SortedFields() []Field {
	out := slices.Clone(l.Fields)
	slices.SortStableFunc(out, func(a, b Field) int { return a.Offset - b.Offset })
	return out
}

// IsMarkerInterface reports whether a class layout is a field-less interface
// whose values are passed as a data + table pointer pair.
func (l *TypeLayout) IsMarkerInterface(t Target) bool {
	if l == nil || l.Kind != KindClass || len(l.Fields) != 0 {
		return false
	}
	if l.VTableOffset == nil || *l.VTableOffset != 0 {
		return false
	}
	return l.Size == t.PtrSize && l.Align == t.PtrAlign
}

// ClassVTableOffset returns the header slot of the method-table pointer.
func (l *TypeLayout) ClassVTableOffset() int {
	if l == nil || l.VTableOffset == nil {
		return 0
	}
	return *l.VTableOffset
}

func (l *TypeLayout) validate() error {
	if l.Kind == KindEnum {
		switch l.Size {
		case 0, 1, 2, 4, 8, 16:
		default:
			return &LayoutError{Kind: LayoutErrEnumWidth, Type: l.Name, Size: l.Size}
		}
	}
	if l.Size <= 0 {
		return nil
	}
	for _, f := range l.Fields {
		if f.Offset > l.Size {
			return &LayoutError{Kind: LayoutErrFieldOffset, Type: l.Name, Field: f.Name, Offset: f.Offset, Size: l.Size}
		}
	}
	return nil
}
