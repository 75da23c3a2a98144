package layout

import (
	"slices"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// Builder collects layout records for one module. It is not safe for
// concurrent use; call Freeze once every record is added.
type Builder struct {
	target  Target
	layouts map[string]*TypeLayout
	frozen  bool
}

// NewBuilder creates an empty builder for target.
func NewBuilder(target Target) *Builder {
	return &Builder{target: target, layouts: make(map[string]*TypeLayout, 64)}
}

// Add registers a layout. Names are canonicalized to the `::` form.
func (b *Builder) Add(l TypeLayout) error {
	if b.frozen {
		panic("layout: Add after Freeze")
	}
	l.Name = types.CanonicalPath(l.Name)
	if _, exists := b.layouts[l.Name]; exists {
		return &LayoutError{Kind: LayoutErrDuplicate, Type: l.Name}
	}
	if err := l.validate(); err != nil {
		return err
	}
	rec := l
	rec.Fields = slices.Clone(l.Fields)
	rec.Bases = slices.Clone(l.Bases)
	b.layouts[l.Name] = &rec
	return nil
}

// AddAll registers every layout, stopping at the first error.
func (b *Builder) AddAll(ls []TypeLayout) error {
	for i := range ls {
		if err := b.Add(ls[i]); err != nil {
			return err
		}
	}
	return nil
}

// Freeze seeds the builtin container layouts that the module did not
// override and returns the immutable table.
func (b *Builder) Freeze() *Table {
	b.frozen = true
	for _, l := range builtinLayouts(b.target) {
		if _, ok := b.layouts[l.Name]; !ok {
			rec := l
			b.layouts[l.Name] = &rec
		}
	}
	t := &Table{
		target:  b.target,
		byName:  b.layouts,
		byShort: make(map[string][]string, len(b.layouts)),
		names:   make([]string, 0, len(b.layouts)),
	}
	for name := range b.layouts {
		t.names = append(t.names, name)
	}
	slices.Sort(t.names)
	for _, name := range t.names {
		short := types.ShortName(name)
		t.byShort[short] = append(t.byShort[short], name)
	}
	return t
}

// Table is the frozen, read-only layout table shared by all emitters.
type Table struct {
	target  Target
	byName  map[string]*TypeLayout
	byShort map[string][]string
	names   []string
}

// Target returns the target the table was built for.
func (t *Table) Target() Target { return t.target }

// Names returns every layout name in sorted order.
func (t *Table) Names() []string { return slices.Clone(t.names) }

// Exact looks a layout up by its exact canonical name.
func (t *Table) Exact(name string) (*TypeLayout, bool) {
	if t == nil {
		return nil, false
	}
	l, ok := t.byName[types.CanonicalPath(name)]
	return l, ok
}

// Lookup resolves name exactly, then by short name. Ambiguous short names
// prefer a `Std::` value type, then any `Std::` type, then any value type,
// then the lexicographically first candidate.
func (t *Table) Lookup(name string) (*TypeLayout, bool) {
	if t == nil {
		return nil, false
	}
	name = types.CanonicalPath(name)
	if l, ok := t.byName[name]; ok {
		return l, true
	}
	candidates := t.byShort[types.ShortName(name)]
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return t.byName[candidates[0]], true
	}
	pick := func(pred func(*TypeLayout) bool) (*TypeLayout, bool) {
		for _, c := range candidates {
			if l := t.byName[c]; pred(l) {
				return l, true
			}
		}
		return nil, false
	}
	isStd := func(l *TypeLayout) bool { return strings.HasPrefix(l.Name, "Std::") }
	isValue := func(l *TypeLayout) bool { return l.Kind != KindClass }
	if l, ok := pick(func(l *TypeLayout) bool { return isStd(l) && isValue(l) }); ok {
		return l, true
	}
	if l, ok := pick(isStd); ok {
		return l, true
	}
	if l, ok := pick(isValue); ok {
		return l, true
	}
	return t.byName[candidates[0]], true
}

// LookupType resolves the layout backing a semantic type, if any.
func (t *Table) LookupType(ty types.Type) (*TypeLayout, bool) {
	switch ty.Kind {
	case types.KindNamed:
		return t.Lookup(ty.Name)
	case types.KindStr:
		return t.Exact(BuiltinStr)
	case types.KindString:
		return t.Exact(BuiltinString)
	case types.KindVec:
		if l, ok := t.Exact(ty.CanonicalName()); ok {
			return l, true
		}
		return t.Exact(BuiltinVec)
	case types.KindArray:
		if ty.Len > 0 {
			return nil, false
		}
		if l, ok := t.Exact(ty.CanonicalName()); ok {
			return l, true
		}
		return t.Exact(BuiltinVec)
	case types.KindSpan, types.KindReadOnlySpan:
		if l, ok := t.Exact(ty.CanonicalName()); ok {
			return l, true
		}
		return t.Exact(BuiltinSpan)
	case types.KindFn:
		return t.Exact(ty.CanonicalName())
	case types.KindTuple:
		return t.Exact(ty.CanonicalName())
	}
	return nil, false
}
