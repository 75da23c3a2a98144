package abi

import (
	"fmt"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// Classify computes the C-ABI classification for fn. Named declarations and
// function-pointer call sites must both come through here so that equal
// shapes always agree.
func Classify(fn *types.FnType, layouts *layout.Table) (*Signature, error) {
	if fn == nil {
		return nil, &Error{Msg: "nil function type"}
	}
	if !fn.IsCAbi() {
		if fn.IsExtern() {
			return nil, &Error{Msg: fmt.Sprintf("unsupported extern ABI %q", fn.Abi)}
		}
		return nil, &Error{Msg: "classifier invoked for a non-C signature"}
	}
	c := classifier{layouts: layouts, target: layouts.Target()}
	sig := &Signature{Params: make([]Param, 0, len(fn.Params)), Variadic: fn.Variadic}
	for i, ty := range fn.Params {
		p, err := c.param(i, ty, fn.Mode(i))
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, p)
	}
	ret, err := c.ret(fn.Ret)
	if err != nil {
		return nil, err
	}
	sig.Ret = ret
	return sig, nil
}

type classifier struct {
	layouts *layout.Table
	target  layout.Target
}

func (c classifier) param(index int, ty types.Type, mode types.ParamMode) (Param, error) {
	p := Param{Index: index, Type: ty, Mode: mode, Pass: PassDirect}
	if mode.IsReference() {
		p.Pass = PassPtr
		if _, align, ok := c.layouts.SizeAlign(ty); ok {
			p.Align = align
		} else {
			p.Align = c.target.PtrAlign
		}
		return p, nil
	}
	if c.isScalar(ty) {
		return p, nil
	}
	size, align, ok := c.layouts.SizeAlign(ty)
	if !ok {
		return Param{}, &Error{Type: ty.CanonicalName(), Msg: "missing layout metadata"}
	}
	if c.passedIndirect(ty, size) {
		if c.target.Arch == layout.ArchAarch64 {
			p.Pass = PassPtr
			p.Align = align
		} else {
			p.Pass = PassByVal
			p.Align = max(align, 8)
		}
		return p, nil
	}
	p.Coerce = c.coerce(ty, size)
	return p, nil
}

func (c classifier) ret(ty types.Type) (Return, error) {
	r := Return{Type: ty, Kind: ReturnDirect}
	if ty.IsUnit() || c.isScalar(ty) {
		return r, nil
	}
	size, align, ok := c.layouts.SizeAlign(ty)
	if !ok {
		return Return{}, &Error{Type: ty.CanonicalName(), Msg: "missing layout metadata"}
	}
	if c.passedIndirect(ty, size) {
		r.Kind = ReturnSret
		r.Align = align
		return r, nil
	}
	r.Coerce = c.coerce(ty, size)
	return r, nil
}

// passedIndirect applies the per-target aggregate budget. Parameters and
// returns share one rule on every supported target.
func (c classifier) passedIndirect(ty types.Type, size int) bool {
	if c.target.OS == layout.OSWindows {
		return !isRegisterSize(size)
	}
	switch c.target.Arch {
	case layout.ArchAarch64:
		if _, ok := c.hfa(ty); ok {
			return false
		}
		return size > 16
	default:
		return size > 16 || c.hasUnalignedFields(ty, map[string]struct{}{})
	}
}

func isRegisterSize(size int) bool {
	switch size {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

func (c classifier) coerce(ty types.Type, size int) string {
	if c.target.Arch == layout.ArchAarch64 {
		if _, ok := c.hfa(ty); ok {
			return ""
		}
	}
	if c.target.OS == layout.OSWindows {
		if isRegisterSize(size) {
			return fmt.Sprintf("i%d", size*8)
		}
		return ""
	}
	switch {
	case size <= 0:
		return ""
	case size <= 8:
		return fmt.Sprintf("i%d", size*8)
	case size <= 16:
		if c.target.Arch == layout.ArchAarch64 {
			return fmt.Sprintf("[%d x i64]", (size+7)/8)
		}
		return fmt.Sprintf("{ i64, i%d }", (size-8)*8)
	}
	return ""
}

var scalarNames = map[string]bool{
	"bool": true, "byte": true, "sbyte": true, "i8": true, "u8": true,
	"char": true, "short": true, "ushort": true, "i16": true, "u16": true,
	"int": true, "uint": true, "i32": true, "u32": true,
	"long": true, "ulong": true, "i64": true, "u64": true,
	"isize": true, "usize": true, "nint": true, "nuint": true,
	"float": true, "double": true, "f32": true, "f64": true,
}

// isScalar reports whether ty travels in a single register as-is.
func (c classifier) isScalar(ty types.Type) bool {
	switch ty.Kind {
	case types.KindPointer, types.KindRef, types.KindUnit:
		return true
	case types.KindFn:
		return ty.Fn.IsExtern()
	case types.KindNamed:
		if scalarNames[strings.ToLower(types.ShortName(ty.Name))] {
			return true
		}
		if l, ok := c.layouts.Lookup(ty.Name); ok {
			return l.Kind == layout.KindEnum || l.Kind == layout.KindClass
		}
	}
	return false
}

func (c classifier) hasUnalignedFields(ty types.Type, visited map[string]struct{}) bool {
	switch ty.Kind {
	case types.KindNamed:
		name := ty.Name
		if _, seen := visited[name]; seen {
			return false
		}
		l, ok := c.layouts.Lookup(name)
		if !ok {
			return false
		}
		visited[name] = struct{}{}
		switch l.Kind {
		case layout.KindStruct:
			for _, f := range l.Fields {
				if _, align, ok := c.layouts.SizeAlign(f.Type); ok && align > 1 && f.Offset%align != 0 {
					return true
				}
				if c.hasUnalignedFields(f.Type, visited) {
					return true
				}
			}
		case layout.KindUnion:
			for _, v := range l.Views {
				if c.hasUnalignedFields(v.Type, visited) {
					return true
				}
			}
		}
		return false
	case types.KindArray, types.KindVec, types.KindSpan, types.KindReadOnlySpan:
		return c.hasUnalignedFields(ty.ElemType(), visited)
	case types.KindTuple:
		for _, e := range ty.Elems {
			if c.hasUnalignedFields(e, visited) {
				return true
			}
		}
	}
	return false
}

type hfaElem uint8

const (
	hfaNone hfaElem = iota
	hfaF32
	hfaF64
)

// hfa detects an aarch64 homogeneous float aggregate of one to four members.
func (c classifier) hfa(ty types.Type) (int, bool) {
	elem, count := hfaNone, 0
	if !c.accumulateHFA(ty, &elem, &count, map[string]struct{}{}) {
		return 0, false
	}
	if count < 1 || count > 4 || elem == hfaNone {
		return 0, false
	}
	return count, true
}

func (c classifier) accumulateHFA(ty types.Type, elem *hfaElem, count *int, visited map[string]struct{}) bool {
	if ty.Kind != types.KindNamed {
		return false
	}
	var fe hfaElem
	switch strings.ToLower(types.ShortName(ty.Name)) {
	case "float", "f32":
		fe = hfaF32
	case "double", "f64":
		fe = hfaF64
	}
	if fe != hfaNone {
		if *elem != hfaNone && *elem != fe {
			return false
		}
		*elem = fe
		*count++
		return true
	}
	if _, seen := visited[ty.Name]; seen {
		return false
	}
	l, ok := c.layouts.Lookup(ty.Name)
	if !ok || l.Kind != layout.KindStruct {
		return false
	}
	visited[ty.Name] = struct{}{}
	defer delete(visited, ty.Name)
	for _, f := range l.Fields {
		if !c.accumulateHFA(f.Type, elem, count, visited) {
			return false
		}
	}
	return true
}
