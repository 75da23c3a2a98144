package llvm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// VTable is a method table indexed by stable slot number.
type VTable struct {
	Owner  string
	Trait  string
	Symbol string
	Slots  []VTableSlot
}

// VTableSlot is one entry; Symbol is empty when the implementation did not
// resolve and the slot is emitted as null.
type VTableSlot struct {
	Index  int
	Method string
	Impl   string
	Symbol string
}

func (v *VTable) Len() int { return len(v.Slots) }

// Slot returns slot i, failing on an index outside the table.
func (v *VTable) Slot(i int) (VTableSlot, error) {
	if i < 0 || i >= len(v.Slots) {
		return VTableSlot{}, errorf(ErrMissingLayout, "vtable %s has no slot %d (len %d)", v.Symbol, i, len(v.Slots))
	}
	return v.Slots[i], nil
}

// ArrayType is the LLVM type of the table global.
func (v *VTable) ArrayType() string { return fmt.Sprintf("[%d x ptr]", len(v.Slots)) }

func (v *VTable) emit(sb *strings.Builder) {
	elems := make([]string, len(v.Slots))
	for i, s := range v.Slots {
		if s.Symbol == "" {
			elems[i] = "ptr null"
		} else {
			elems[i] = "ptr @" + s.Symbol
		}
	}
	fmt.Fprintf(sb, "@%s = constant %s [%s]\n", v.Symbol, v.ArrayType(), strings.Join(elems, ", "))
}

// VTableSet holds the frozen class and trait tables of a module.
type VTableSet struct {
	classes map[string]*VTable
	traits  map[string]*VTable // key trait + "\x00" + impl
	byTrait map[string][]*VTable
	ordered []*VTable
}

func buildVTables(mod *mir.Module, sigs *SignatureTable) *VTableSet {
	set := &VTableSet{
		classes: make(map[string]*VTable, len(mod.ClassVTables)),
		traits:  make(map[string]*VTable, len(mod.TraitVTables)),
		byTrait: make(map[string][]*VTable),
	}
	mkSlots := func(slots []mir.VTableSlot) []VTableSlot {
		out := make([]VTableSlot, len(slots))
		for i, s := range slots {
			out[i] = VTableSlot{Index: i, Method: s.Method, Impl: s.Impl}
			if sig, ok := sigs.Resolve(s.Impl); ok {
				out[i].Symbol = sig.Symbol
			}
		}
		return out
	}
	for _, cv := range mod.ClassVTables {
		owner := types.CanonicalPath(cv.Type)
		sym := cv.Symbol
		if sym == "" {
			sym = "__chic_vtable_" + SanitizeSymbol(owner)
		}
		vt := &VTable{Owner: owner, Symbol: sym, Slots: mkSlots(cv.Slots)}
		set.classes[owner] = vt
		set.ordered = append(set.ordered, vt)
	}
	for _, tv := range mod.TraitVTables {
		trait, impl := types.CanonicalPath(tv.Trait), types.CanonicalPath(tv.Impl)
		sym := tv.Symbol
		if sym == "" {
			sym = "__chic_trait_vtable_" + SanitizeSymbol(trait) + "__" + SanitizeSymbol(impl)
		}
		vt := &VTable{Owner: impl, Trait: trait, Symbol: sym, Slots: mkSlots(tv.Slots)}
		set.traits[trait+"\x00"+impl] = vt
		set.byTrait[trait] = append(set.byTrait[trait], vt)
		set.ordered = append(set.ordered, vt)
	}
	slices.SortFunc(set.ordered, func(a, b *VTable) int { return strings.Compare(a.Symbol, b.Symbol) })
	return set
}

// Class returns the table of a class, by exact or short name.
func (s *VTableSet) Class(name string) (*VTable, bool) {
	name = types.CanonicalPath(name)
	if vt, ok := s.classes[name]; ok {
		return vt, true
	}
	short := types.ShortName(name)
	for _, vt := range s.ordered {
		if vt.Trait == "" && types.ShortName(vt.Owner) == short {
			return vt, true
		}
	}
	return nil, false
}

// Trait returns the table binding trait to impl. When no exact pair
// exists the first table of the trait is used.
func (s *VTableSet) Trait(trait, impl string) (*VTable, bool) {
	trait, impl = types.CanonicalPath(trait), types.CanonicalPath(impl)
	if vt, ok := s.traits[trait+"\x00"+impl]; ok {
		return vt, true
	}
	if list := s.byTrait[trait]; len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

func (s *VTableSet) emit(sb *strings.Builder) {
	for _, vt := range s.ordered {
		vt.emit(sb)
	}
	if len(s.ordered) > 0 {
		sb.WriteByte('\n')
	}
}
