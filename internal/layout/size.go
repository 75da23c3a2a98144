package layout

import (
	"math/bits"

	"fortio.org/safecast"

	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// SizeAlign returns the byte size and alignment of a semantic type.
func (t *Table) SizeAlign(ty types.Type) (int, int, bool) {
	return t.sizeAlign(ty, map[string]struct{}{})
}

func (t *Table) sizeAlign(ty types.Type, visiting map[string]struct{}) (int, int, bool) {
	ptr, palign := t.target.PtrSize, t.target.PtrAlign
	switch ty.Kind {
	case types.KindUnit:
		return 0, 1, true
	case types.KindPointer, types.KindRef, types.KindNullable:
		return ptr, palign, true
	case types.KindTraitObject:
		return 2 * ptr, palign, true
	case types.KindFn:
		if ty.Fn.IsExtern() {
			return ptr, palign, true
		}
		return 6 * ptr, palign, true
	case types.KindStr, types.KindString, types.KindVec, types.KindSpan, types.KindReadOnlySpan:
		if l, ok := t.LookupType(ty); ok {
			return l.Size, l.Align, true
		}
		return 0, 0, false
	case types.KindArray:
		if ty.Len == 0 {
			if l, ok := t.LookupType(ty); ok {
				return l.Size, l.Align, true
			}
			return 0, 0, false
		}
		size, align, ok := t.sizeAlign(ty.ElemType(), visiting)
		if !ok {
			return 0, 0, false
		}
		total, ok := mulSize(roundUp(size, align), ty.Len)
		if !ok {
			return 0, 0, false
		}
		return total, align, true
	case types.KindVector:
		size, _, ok := t.sizeAlign(ty.ElemType(), visiting)
		if !ok {
			return 0, 0, false
		}
		total, ok := mulSize(size, ty.Len)
		if !ok {
			return 0, 0, false
		}
		return total, total, true
	case types.KindTuple:
		if l, ok := t.LookupType(ty); ok {
			return l.Size, l.Align, true
		}
		return 0, 0, false
	case types.KindNamed:
		return t.namedSizeAlign(ty.Name, visiting)
	}
	return 0, 0, false
}

func (t *Table) namedSizeAlign(name string, visiting map[string]struct{}) (int, int, bool) {
	if s, ok := LookupScalar(name); ok {
		return s.Size, s.Align, true
	}
	if elem, lanes, ok := ParseSimdName(name); ok {
		s := scalars[elem]
		return s.Size * lanes, s.Size * lanes, true
	}
	if _, seen := visiting[name]; seen {
		return 0, 0, false
	}
	l, ok := t.Lookup(name)
	if !ok {
		return 0, 0, false
	}
	switch l.Kind {
	case KindClass:
		if l.IsMarkerInterface(t.target) {
			return 2 * t.target.PtrSize, t.target.PtrAlign, true
		}
		return t.target.PtrSize, t.target.PtrAlign, true
	case KindEnum:
		if l.Size == 0 {
			return 4, 4, true
		}
		return l.Size, l.Size, true
	}
	if l.Size > 0 && l.Align > 0 {
		return l.Size, l.Align, true
	}
	visiting[name] = struct{}{}
	defer delete(visiting, name)
	size, align := 0, 1
	for _, f := range l.Fields {
		fs, fa, ok := t.sizeAlign(f.Type, visiting)
		if !ok {
			return 0, 0, false
		}
		size = max(size, f.Offset+fs)
		align = max(align, fa)
	}
	if l.Align > 0 {
		align = l.Align
	}
	return roundUp(max(size, l.Size), align), align, true
}

// mulSize multiplies an element size by a count. Negative operands, a
// product that overflows 64 bits, and one that does not fit an int all
// fail.
func mulSize(size, count int) (int, bool) {
	us, err := safecast.Conv[uint64](size)
	if err != nil {
		return 0, false
	}
	uc, err := safecast.Conv[uint64](count)
	if err != nil {
		return 0, false
	}
	hi, lo := bits.Mul64(us, uc)
	if hi != 0 {
		return 0, false
	}
	total, err := safecast.Conv[int](lo)
	if err != nil {
		return 0, false
	}
	return total, true
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// Stride returns the element stride of ty in a packed array.
func (t *Table) Stride(ty types.Type) (int, bool) {
	size, align, ok := t.SizeAlign(ty)
	if !ok {
		return 0, false
	}
	return roundUp(size, align), true
}
