package llvm

import (
	"strconv"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// placeAddr is a resolved place: the address, the semantic type stored
// there and its representation.
type placeAddr struct {
	ptr  string
	ty   types.Type
	repr string
}

// placeAddress walks the projection chain of p from its local's storage.
// pending is set while the current address holds a pointer that must be
// loaded before the next projection applies.
func (fe *funcEmitter) placeAddress(p mir.Place) (placeAddr, error) {
	s, err := fe.slot(p.Local)
	if err != nil {
		return placeAddr{}, err
	}
	if s.addr == "" {
		return placeAddr{}, errorf(ErrInternal, "local %d has no storage", p.Local)
	}
	ptr, ty, pending := s.addr, s.ty, s.byRef
	for _, proj := range p.Proj {
		switch proj.Kind {
		case mir.ProjField, mir.ProjFieldNamed:
			if pending {
				ptr, pending = fe.load(reprPtr, ptr), false
			}
			// a nullable class value already is the object pointer
			nullable := false
			for {
				inner, ok := ty.Pointee()
				if !ok {
					break
				}
				nullable = ty.Kind == types.KindNullable
				ptr, ty = fe.load(reprPtr, ptr), fe.resolveSelf(inner)
			}
			field, handle, err := fe.fieldOf(ty, proj)
			if err != nil {
				return placeAddr{}, err
			}
			if handle && !nullable {
				ptr = fe.load(reprPtr, ptr)
			}
			ptr = fe.fieldPtr(ptr, field.Offset)
			ty = field.Type
		case mir.ProjDeref:
			if pending {
				ptr, pending = fe.load(reprPtr, ptr), false
				if !ty.IsPointerLike() {
					continue
				}
			}
			inner, ok := ty.Pointee()
			if !ok {
				return placeAddr{}, errorf(ErrUnsupportedProjection, "cannot dereference `%s`", ty)
			}
			ptr, ty = fe.load(reprPtr, ptr), fe.resolveSelf(inner)
		case mir.ProjIndex:
			if pending {
				ptr, pending = fe.load(reprPtr, ptr), false
			}
			ptr, ty, err = fe.emitIndex(ptr, ty, proj.Local)
			if err != nil {
				return placeAddr{}, err
			}
		default:
			return placeAddr{}, errorf(ErrUnsupportedProjection, "projection kind %s", proj.Kind)
		}
	}
	if pending {
		ptr = fe.load(reprPtr, ptr)
	}
	if p.IsBare() {
		return placeAddr{ptr: ptr, ty: ty, repr: s.repr}, nil
	}
	repr, err := fe.e.mapper.Map(ty)
	if err != nil {
		return placeAddr{}, err
	}
	return placeAddr{ptr: ptr, ty: ty, repr: repr}, nil
}

// placeType mirrors placeAddress without emitting anything.
func (fe *funcEmitter) placeType(p mir.Place) (types.Type, error) {
	s, err := fe.slot(p.Local)
	if err != nil {
		return types.Type{}, err
	}
	ty := s.ty
	for i, proj := range p.Proj {
		switch proj.Kind {
		case mir.ProjField, mir.ProjFieldNamed:
			for {
				inner, ok := ty.Pointee()
				if !ok {
					break
				}
				ty = fe.resolveSelf(inner)
			}
			field, _, err := fe.fieldOf(ty, proj)
			if err != nil {
				return types.Type{}, err
			}
			ty = field.Type
		case mir.ProjDeref:
			if i == 0 && s.byRef && !ty.IsPointerLike() {
				continue
			}
			inner, ok := ty.Pointee()
			if !ok {
				return types.Type{}, errorf(ErrUnsupportedProjection, "cannot dereference `%s`", ty)
			}
			ty = fe.resolveSelf(inner)
		case mir.ProjIndex:
			ty = fe.elemType(ty)
		default:
			return types.Type{}, errorf(ErrUnsupportedProjection, "projection kind %s", proj.Kind)
		}
	}
	return ty, nil
}

// resolveSelf names the enclosing type of a method for `Self`.
func (fe *funcEmitter) resolveSelf(ty types.Type) types.Type {
	if ty.Kind == types.KindNamed && ty.Name == "Self" && fe.f.Owner != "" {
		return types.Named(fe.f.Owner)
	}
	return ty
}

func (fe *funcEmitter) layoutOf(ty types.Type) (*layout.TypeLayout, bool) {
	ty = fe.resolveSelf(ty)
	layouts := fe.e.layouts
	if l, ok := layouts.LookupType(ty); ok {
		return l, true
	}
	if ty.Kind == types.KindNamed {
		if base := types.StripGenerics(ty.Name); base != ty.Name {
			return layouts.Lookup(base)
		}
	}
	return nil, false
}

// fieldOf finds the field a projection selects in ty. handle reports that
// ty is a class, so the current address holds the object pointer.
func (fe *funcEmitter) fieldOf(ty types.Type, proj mir.Proj) (layout.Field, bool, error) {
	if ty.Kind == types.KindTuple {
		if l, ok := fe.layoutOf(ty); ok {
			return fe.layoutField(l, proj)
		}
		return fe.tupleField(ty, proj)
	}
	l, ok := fe.layoutOf(ty)
	if !ok {
		return layout.Field{}, false, errorf(ErrMissingLayout, "missing layout for `%s`", ty)
	}
	return fe.layoutField(l, proj)
}

func (fe *funcEmitter) layoutField(l *layout.TypeLayout, proj mir.Proj) (layout.Field, bool, error) {
	handle := l.Kind == layout.KindClass
	if l.Kind == layout.KindUnion {
		for i, v := range l.Views {
			if (proj.Kind == mir.ProjFieldNamed && v.Name == proj.Name) || (proj.Kind == mir.ProjField && i == proj.Index) {
				return layout.Field{Name: v.Name, Type: v.Type}, false, nil
			}
		}
		return layout.Field{}, false, errorf(ErrMissingLayout, "union `%s` has no view %s", l.Name, projLabel(proj))
	}
	var (
		field layout.Field
		ok    bool
	)
	if proj.Kind == mir.ProjFieldNamed {
		field, ok = l.FieldByName(proj.Name)
	} else {
		field, ok = l.FieldByIndex(proj.Index)
	}
	if !ok {
		return layout.Field{}, false, errorf(ErrMissingLayout, "`%s` has no field %s", l.Name, projLabel(proj))
	}
	return field, handle, nil
}

// tupleField places tuple elements at their natural alignment when no
// layout was recorded for the tuple.
func (fe *funcEmitter) tupleField(ty types.Type, proj mir.Proj) (layout.Field, bool, error) {
	idx := proj.Index
	if proj.Kind == mir.ProjFieldNamed {
		n, ok := tupleIndex(proj.Name)
		if !ok {
			return layout.Field{}, false, errorf(ErrMissingLayout, "tuple `%s` has no field %s", ty, proj.Name)
		}
		idx = n
	}
	if idx < 0 || idx >= len(ty.Elems) {
		return layout.Field{}, false, errorf(ErrMissingLayout, "tuple `%s` has no element %d", ty, idx)
	}
	off := 0
	for i, e := range ty.Elems {
		size, align, ok := fe.e.mapper.sizeOf(e)
		if !ok {
			return layout.Field{}, false, errorf(ErrMissingLayout, "cannot size tuple element %d of `%s`", i, ty)
		}
		off = roundTo(off, align)
		if i == idx {
			return layout.Field{Name: projLabel(proj), Type: e, Offset: off}, false, nil
		}
		off += size
	}
	return layout.Field{}, false, errorf(ErrInternal, "tuple walk fell through")
}

// tupleIndex accepts `Item1`-style and bare numeric element names.
func tupleIndex(name string) (int, bool) {
	if rest, ok := strings.CutPrefix(name, "Item"); ok {
		n, err := strconv.Atoi(rest)
		return n - 1, err == nil && n > 0
	}
	n, err := strconv.Atoi(name)
	return n, err == nil && n >= 0
}

func projLabel(p mir.Proj) string {
	if p.Kind == mir.ProjFieldNamed {
		return "`" + p.Name + "`"
	}
	return "#" + strconv.Itoa(p.Index)
}

// readPlace loads the value of p. Zero-sized places read as "".
func (fe *funcEmitter) readPlace(p mir.Place) (string, string, error) {
	if p.IsBare() {
		s, err := fe.slot(p.Local)
		if err != nil {
			return "", "", err
		}
		if s.repr == "" {
			return "", "", nil
		}
	}
	addr, err := fe.placeAddress(p)
	if err != nil {
		return "", "", err
	}
	if addr.repr == "" {
		return "", "", nil
	}
	return fe.load(addr.repr, addr.ptr), addr.repr, nil
}

// writePlace stores val into p, converting from repr to the place's own
// representation first.
func (fe *funcEmitter) writePlace(p mir.Place, val, repr string, signed bool) error {
	if p.IsBare() {
		s, err := fe.slot(p.Local)
		if err != nil {
			return err
		}
		if s.repr == "" {
			return nil
		}
	}
	addr, err := fe.placeAddress(p)
	if err != nil {
		return err
	}
	if addr.repr == "" {
		return nil
	}
	v, err := fe.convert(val, repr, addr.repr, signed)
	if err != nil {
		return err
	}
	fe.line("store %s %s, ptr %s", addr.repr, v, addr.ptr)
	return nil
}
