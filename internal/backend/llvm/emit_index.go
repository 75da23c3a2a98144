package llvm

import (
	"strconv"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// Index panic codes reported through chic_rt_panic.
const (
	panicVecIndex          int32 = 0x2001
	panicArrayIndex        int32 = 0x2002
	panicSpanIndex         int32 = 0x2003
	panicReadOnlySpanIndex int32 = 0x2004
	panicStringIndex       int32 = 0x2005
	panicStrIndex          int32 = 0x2006
)

// seqInfo describes how to reach the data, length and element size of an
// indexable container whose header sits at the current address.
type seqInfo struct {
	name string
	code int32
	elem types.Type
	// fixedLen > 0 marks inline `[N x T]` storage; the address is the data.
	fixedLen int
	dataOff  int
	lenOff   int
	// elemSize is the static element stride; zero means read elemSizeOff.
	elemSize    int
	elemSizeOff int
}

// elemType is the element type an index projection yields.
func (fe *funcEmitter) elemType(ty types.Type) types.Type {
	for ty.IsPointerLike() {
		inner, ok := ty.Pointee()
		if !ok {
			break
		}
		ty = inner
	}
	switch ty.Kind {
	case types.KindArray, types.KindVec, types.KindSpan, types.KindReadOnlySpan:
		return ty.ElemType()
	case types.KindString:
		return types.Named("char")
	case types.KindStr:
		return types.Named("byte")
	case types.KindNamed:
		if norm, ok := normalizeSeq(ty); ok {
			return fe.elemType(norm)
		}
	}
	return types.Unknown()
}

// normalizeSeq turns named spellings of the builtin sequences into their
// structural kinds.
func normalizeSeq(ty types.Type) (types.Type, bool) {
	short := types.ShortName(types.StripGenerics(ty.Name))
	args := types.GenericArgs(ty.Name)
	switch short {
	case "string", "String":
		return types.StringType(), true
	case "str":
		return types.Str(), true
	}
	if len(args) != 1 {
		return ty, false
	}
	elem := types.Named(args[0])
	switch short {
	case "Vec":
		return types.Vec(elem), true
	case "Array":
		return types.Array(elem, 0), true
	case "Span":
		return types.Span(elem), true
	case "ReadOnlySpan":
		return types.ReadOnlySpan(elem), true
	}
	return ty, false
}

func (fe *funcEmitter) seqOf(ty types.Type) (seqInfo, error) {
	w := fe.e.target.PtrSize
	erased := func(name string, code int32) seqInfo {
		return seqInfo{name: name, code: code, elem: types.Unknown(), dataOff: 0, lenOff: 3 * w, elemSizeOff: 4 * w}
	}
	switch ty.Kind {
	case types.KindArray:
		if ty.Len > 0 {
			size, ok := fe.stride(ty.ElemType())
			if !ok {
				return seqInfo{}, errorf(ErrMissingLayout, "missing elem_size metadata for `%s`", ty)
			}
			return seqInfo{name: "array", code: panicArrayIndex, elem: ty.ElemType(), fixedLen: ty.Len, elemSize: size}, nil
		}
		return fe.headerSeq(ty, "array", panicArrayIndex, "ptr")
	case types.KindVec:
		return fe.headerSeq(ty, "vec", panicVecIndex, "ptr")
	case types.KindSpan:
		return fe.headerSeq(ty, "span", panicSpanIndex, "data")
	case types.KindReadOnlySpan:
		return fe.headerSeq(ty, "readonly span", panicReadOnlySpanIndex, "data")
	case types.KindString:
		info, err := fe.headerSeq(ty, "string", panicStringIndex, "ptr")
		info.elem, info.elemSize = types.Named("char"), 2
		return info, err
	case types.KindStr:
		info, err := fe.headerSeq(ty, "str", panicStrIndex, "ptr")
		info.elem, info.elemSize = types.Named("byte"), 1
		return info, err
	case types.KindUnknown:
		return erased("sequence", panicSpanIndex), nil
	case types.KindNamed:
		if norm, ok := normalizeSeq(ty); ok {
			return fe.seqOf(norm)
		}
		switch types.CanonicalPath(types.StripGenerics(ty.Name)) {
		case layout.BuiltinSpanPtr:
			return erased("span", panicSpanIndex), nil
		case layout.BuiltinReadOnlySpanPtr:
			return erased("readonly span", panicReadOnlySpanIndex), nil
		}
		if _, ok := fe.layoutOf(ty); !ok {
			return erased("sequence", panicSpanIndex), nil
		}
	}
	return seqInfo{}, errorf(ErrUnsupportedProjection, "cannot index `%s`", ty)
}

// headerSeq reads data/len offsets from the container's layout.
func (fe *funcEmitter) headerSeq(ty types.Type, name string, code int32, dataField string) (seqInfo, error) {
	l, ok := fe.layoutOf(ty)
	if !ok {
		return seqInfo{}, errorf(ErrMissingLayout, "missing layout for `%s`", ty)
	}
	data, ok := l.FieldByName(dataField)
	if !ok {
		return seqInfo{}, errorf(ErrMissingLayout, "`%s` has no `%s` field", l.Name, dataField)
	}
	n, ok := l.FieldByName("len")
	if !ok {
		return seqInfo{}, errorf(ErrMissingLayout, "`%s` has no `len` field", l.Name)
	}
	info := seqInfo{name: name, code: code, elem: ty.ElemType(), dataOff: data.Offset, lenOff: n.Offset, elemSizeOff: -1}
	if f, ok := l.FieldByName("elem_size"); ok {
		info.elemSizeOff = f.Offset
	}
	if ty.Elem != nil {
		if size, ok := fe.stride(*ty.Elem); ok {
			info.elemSize = size
		}
	}
	return info, nil
}

func (fe *funcEmitter) stride(ty types.Type) (int, bool) {
	if ty.Kind == types.KindUnknown {
		return 0, false
	}
	if size, ok := fe.e.layouts.Stride(ty); ok {
		return size, true
	}
	size, align, ok := fe.e.mapper.sizeOf(ty)
	if !ok {
		return 0, false
	}
	return roundTo(size, align), true
}

// derefSeq discharges pointer wrappers around a container.
func (fe *funcEmitter) derefSeq(base string, ty types.Type) (string, types.Type) {
	for ty.IsPointerLike() {
		inner, ok := ty.Pointee()
		if !ok {
			break
		}
		base, ty = fe.load(reprPtr, base), inner
	}
	return base, ty
}

// emitIndex bounds-checks the index held in local idx against the
// container at base and returns the element address. The failing edge
// only calls the panic entry; address arithmetic happens after the branch.
func (fe *funcEmitter) emitIndex(base string, ty types.Type, idx mir.LocalID) (string, types.Type, error) {
	s, err := fe.slot(idx)
	if err != nil {
		return "", types.Type{}, err
	}
	val, repr, err := fe.readPlace(mir.LocalPlace(idx))
	if err != nil {
		return "", types.Type{}, err
	}
	if !isIntRepr(repr) {
		return "", types.Type{}, errorf(ErrUnsupportedProjection, "index local %d is `%s`, not an integer", idx, repr)
	}
	index, err := fe.convert(val, repr, "i64", isSignedType(s.ty))
	if err != nil {
		return "", types.Type{}, err
	}
	base, ty = fe.derefSeq(base, ty)
	info, err := fe.seqOf(ty)
	if err != nil {
		return "", types.Type{}, err
	}
	data, length := base, ""
	if info.fixedLen > 0 {
		length = strconv.Itoa(info.fixedLen)
	} else {
		data = fe.load(reprPtr, fe.fieldPtr(base, info.dataOff))
		length = fe.loadWord(fe.fieldPtr(base, info.lenOff))
	}
	size := ""
	switch {
	case info.elemSize > 0:
		size = strconv.Itoa(info.elemSize)
	case info.elemSizeOff >= 0:
		size = fe.loadWord(fe.fieldPtr(base, info.elemSizeOff))
	default:
		return "", types.Type{}, errorf(ErrMissingLayout, "missing elem_size metadata for %s `%s`", info.name, ty)
	}

	fail, ok := fe.nextInlineBlock(), fe.nextInlineBlock()
	cond := fe.nextTemp()
	fe.line("%s = icmp uge i64 %s, %s", cond, index, length)
	fe.line("br i1 %s, label %%%s, label %%%s", cond, fail, ok)
	fe.label(fail)
	fe.emitPanic(info.code)
	fe.label(ok)
	off := fe.nextTemp()
	fe.line("%s = mul i64 %s, %s", off, index, size)
	addr := fe.nextTemp()
	fe.line("%s = getelementptr inbounds i8, ptr %s, i64 %s", addr, data, off)
	return addr, info.elem, nil
}

// loadWord reads a word-sized header field as i64.
func (fe *funcEmitter) loadWord(addr string) string {
	word := fe.wordRepr()
	v := fe.load(word, addr)
	if word == "i64" {
		return v
	}
	out, _ := fe.convert(v, word, "i64", false)
	return out
}

// emitLen reads the element count of the sequence at p as a word.
func (fe *funcEmitter) emitLen(p mir.Place) (string, string, error) {
	addr, err := fe.placeAddress(p)
	if err != nil {
		return "", "", err
	}
	base, ty := fe.derefSeq(addr.ptr, addr.ty)
	info, err := fe.seqOf(ty)
	if err != nil {
		return "", "", err
	}
	word := fe.wordRepr()
	if info.fixedLen > 0 {
		return strconv.Itoa(info.fixedLen), word, nil
	}
	return fe.load(word, fe.fieldPtr(base, info.lenOff)), word, nil
}

func isSignedType(ty types.Type) bool {
	if ty.Kind != types.KindNamed {
		return true
	}
	if s, ok := layout.LookupScalar(ty.Name); ok {
		return s.Signed
	}
	return true
}
