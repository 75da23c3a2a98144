package llvm

import (
	"fmt"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// TypeMapper lowers semantic types to LLVM representation strings. It holds
// only frozen inputs and is safe for concurrent use; each Map call carries its
// own visiting set.
type TypeMapper struct {
	layouts           *layout.Table
	erasePlaceholders bool
}

func NewTypeMapper(layouts *layout.Table, erasePlaceholders bool) *TypeMapper {
	return &TypeMapper{layouts: layouts, erasePlaceholders: erasePlaceholders}
}

// Layouts returns the table the mapper reads.
func (m *TypeMapper) Layouts() *layout.Table { return m.layouts }

// Map returns the representation of ty. The empty string means ty is
// zero-sized and has no value representation.
func (m *TypeMapper) Map(ty types.Type) (string, error) {
	return m.mapType(ty, make(map[string]struct{}, 4))
}

// MapValue is Map with unit lowered to "void", for signatures.
func (m *TypeMapper) MapValue(ty types.Type) (string, error) {
	repr, err := m.Map(ty)
	if err != nil {
		return "", err
	}
	if repr == "" {
		return "void", nil
	}
	return repr, nil
}

// MapLayout lowers a layout record directly.
func (m *TypeMapper) MapLayout(l *layout.TypeLayout) (string, error) {
	visiting := map[string]struct{}{l.Name: {}}
	return m.mapLayout(l, visiting)
}

func (m *TypeMapper) mapType(ty types.Type, visiting map[string]struct{}) (string, error) {
	switch ty.Kind {
	case types.KindUnit:
		return "", nil
	case types.KindUnknown:
		return "", errorf(ErrUnknownType, "cannot lower unresolved type")
	case types.KindPointer, types.KindRef, types.KindNullable:
		return reprPtr, nil
	case types.KindTraitObject:
		return reprTraitObject, nil
	case types.KindNamed:
		if ty.IsUnit() {
			return "", nil
		}
		return m.mapNamed(types.CanonicalPath(ty.Name), visiting)
	case types.KindArray:
		if ty.Len > 0 {
			elem, err := m.mapType(ty.ElemType(), visiting)
			if err != nil {
				return "", err
			}
			if elem == "" {
				return "[0 x i8]", nil
			}
			return fmt.Sprintf("[%d x %s]", ty.Len, elem), nil
		}
		return m.mapContainer(ty, visiting)
	case types.KindStr, types.KindString, types.KindVec, types.KindSpan, types.KindReadOnlySpan:
		return m.mapContainer(ty, visiting)
	case types.KindVector:
		elem, err := m.mapType(ty.ElemType(), visiting)
		if err != nil {
			return "", err
		}
		if !isIntRepr(elem) && !isFloatRepr(elem) {
			return "", errorf(ErrSimdElement, "vector element `%s` is not a scalar", ty.ElemType())
		}
		return fmt.Sprintf("<%d x %s>", ty.Len, elem), nil
	case types.KindTuple:
		if l, ok := m.layouts.LookupType(ty); ok {
			return m.expandLayout(l, visiting)
		}
		parts := make([]string, 0, len(ty.Elems))
		for _, e := range ty.Elems {
			repr, err := m.mapType(e, visiting)
			if err != nil {
				return "", err
			}
			if repr != "" {
				parts = append(parts, repr)
			}
		}
		if len(parts) == 0 {
			return "", nil
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	case types.KindFn:
		if ty.Fn.IsExtern() {
			return reprPtr, nil
		}
		if l, ok := m.layouts.LookupType(ty); ok {
			return m.expandLayout(l, visiting)
		}
		if l, ok := m.layouts.Exact(layout.BuiltinClosure); ok {
			return m.expandLayout(l, visiting)
		}
		return reprClosure, nil
	}
	return "", errorf(ErrUnknownType, "unsupported type kind %s", ty.Kind)
}

func (m *TypeMapper) mapContainer(ty types.Type, visiting map[string]struct{}) (string, error) {
	l, ok := m.layouts.LookupType(ty)
	if !ok {
		return "", errorf(ErrMissingLayout, "missing layout for `%s`", ty)
	}
	return m.expandLayout(l, visiting)
}

func (m *TypeMapper) mapNamed(name string, visiting map[string]struct{}) (string, error) {
	if _, busy := visiting[name]; busy {
		return reprPtr, nil
	}
	if name == "Self" || strings.HasSuffix(name, "::Self") {
		return reprPtr, nil
	}
	if s, ok := layout.LookupScalar(name); ok {
		return scalarRepr(s), nil
	}
	if elem, lanes, ok := layout.ParseSimdName(name); ok {
		s, _ := layout.LookupScalar(elem)
		return fmt.Sprintf("<%d x %s>", lanes, scalarRepr(s)), nil
	}
	if l, ok := m.layouts.Lookup(name); ok {
		return m.expandLayout(l, visiting)
	}
	base := types.StripGenerics(name)
	if base != name {
		if l, ok := m.layouts.Lookup(base); ok {
			return m.expandLayout(l, visiting)
		}
	}
	short := types.ShortName(base)
	switch {
	case short == "Task" && strings.Contains(base, "Async"):
		return reprPtr, nil
	case name == "object" || short == "Object":
		return reprPtr, nil
	}
	if m.erasePlaceholders && (types.IsPlaceholderName(short) || types.HasPlaceholderArgs(name)) {
		return reprPtr, nil
	}
	return "", errorf(ErrUnknownType, "unknown type `%s`", name)
}

func scalarRepr(s layout.Scalar) string {
	switch s.Class {
	case layout.ScalarBFloat:
		return "bfloat"
	case layout.ScalarFloat:
		switch s.Size {
		case 2:
			return "half"
		case 4:
			return "float"
		case 8:
			return "double"
		default:
			return "fp128"
		}
	}
	return fmt.Sprintf("i%d", s.Size*8)
}

// expandLayout lowers a layout record, guarding the record's own name.
func (m *TypeMapper) expandLayout(l *layout.TypeLayout, visiting map[string]struct{}) (string, error) {
	if _, busy := visiting[l.Name]; busy {
		return reprPtr, nil
	}
	visiting[l.Name] = struct{}{}
	defer delete(visiting, l.Name)
	return m.mapLayout(l, visiting)
}

func (m *TypeMapper) mapLayout(l *layout.TypeLayout, visiting map[string]struct{}) (string, error) {
	switch l.Kind {
	case layout.KindEnum:
		if l.Size == 0 {
			return "i32", nil
		}
		return fmt.Sprintf("i%d", l.Size*8), nil
	case layout.KindClass:
		if l.IsMarkerInterface(m.layouts.Target()) {
			return reprTraitObject, nil
		}
		return reprPtr, nil
	case layout.KindUnion:
		return "", errorf(ErrUnionType, "union `%s` has no value representation", l.Name)
	}
	return m.mapStruct(l, visiting)
}

// mapStruct expands fields in offset order, inserting explicit [N x i8]
// padding up to each declared offset. A field whose offset breaks its
// natural alignment, or a size that is not a multiple of the widest
// alignment, makes the whole aggregate packed.
func (m *TypeMapper) mapStruct(l *layout.TypeLayout, visiting map[string]struct{}) (string, error) {
	var (
		parts  []string
		cursor int
		align  = 1
		packed = l.Packed
	)
	for _, f := range l.SortedFields() {
		if l.Size > 0 && f.Offset > l.Size {
			return "", errorf(ErrMissingLayout, "field %s.%s at offset %d exceeds size %d", l.Name, f.Name, f.Offset, l.Size)
		}
		repr, err := m.mapType(f.Type, visiting)
		if err != nil {
			return "", fmt.Errorf("field %s.%s: %w", l.Name, f.Name, err)
		}
		if repr == "" {
			continue
		}
		if f.Offset < cursor {
			return "", errorf(ErrMissingLayout, "field %s.%s at offset %d overlaps previous field ending at %d", l.Name, f.Name, f.Offset, cursor)
		}
		size, falign, ok := reprSizeAlign(repr)
		if !ok {
			return "", errorf(ErrMissingLayout, "cannot size field %s.%s of type %s", l.Name, f.Name, repr)
		}
		if f.Offset > cursor {
			parts = append(parts, padding(f.Offset-cursor))
		}
		if falign > 1 && f.Offset%falign != 0 {
			packed = true
		}
		align = max(align, falign)
		parts = append(parts, repr)
		cursor = f.Offset + size
	}
	if l.Size > 0 && l.Size < cursor {
		return "", errorf(ErrMissingLayout, "fields of %s end at %d past size %d", l.Name, cursor, l.Size)
	}
	if l.Size > cursor {
		parts = append(parts, padding(l.Size-cursor))
		cursor = l.Size
	}
	if len(parts) == 0 {
		return "[0 x i8]", nil
	}
	if !packed && cursor%align != 0 {
		packed = true
	}
	if packed {
		return "<{ " + strings.Join(parts, ", ") + " }>", nil
	}
	return "{ " + strings.Join(parts, ", ") + " }", nil
}

func padding(n int) string { return fmt.Sprintf("[%d x i8]", n) }

// sizeOf returns the byte size of ty, preferring recorded layout data and
// falling back to the mapped representation.
func (m *TypeMapper) sizeOf(ty types.Type) (int, int, bool) {
	if size, align, ok := m.layouts.SizeAlign(ty); ok {
		return size, align, true
	}
	repr, err := m.Map(ty)
	if err != nil {
		return 0, 0, false
	}
	return reprSizeAlign(repr)
}
