package mir

import "github.com/Chic-lang/Chic-sub009/internal/layout"

// Export overrides the linker symbol of a function.
type Export struct {
	Function string `json:"function" yaml:"function" msgpack:"function"`
	Symbol   string `json:"symbol" yaml:"symbol" msgpack:"symbol"`
}

// VTableSlot binds a method slot to its implementing function.
type VTableSlot struct {
	Method string `json:"method" yaml:"method" msgpack:"method"`
	Impl   string `json:"impl" yaml:"impl" msgpack:"impl"`
}

// ClassVTable is the method table of a class.
type ClassVTable struct {
	Type   string       `json:"type" yaml:"type" msgpack:"type"`
	Symbol string       `json:"symbol" yaml:"symbol" msgpack:"symbol"`
	Slots  []VTableSlot `json:"slots" yaml:"slots" msgpack:"slots"`
}

// TraitVTable is the method table of a (trait, implementing type) pair.
type TraitVTable struct {
	Trait  string       `json:"trait" yaml:"trait" msgpack:"trait"`
	Impl   string       `json:"impl" yaml:"impl" msgpack:"impl"`
	Symbol string       `json:"symbol" yaml:"symbol" msgpack:"symbol"`
	Slots  []VTableSlot `json:"slots" yaml:"slots" msgpack:"slots"`
}

// Module is the unit of input to the backend.
type Module struct {
	Name         string              `json:"name" yaml:"name" msgpack:"name"`
	Funcs        []Func              `json:"funcs" yaml:"funcs" msgpack:"funcs"`
	Layouts      []layout.TypeLayout `json:"layouts,omitempty" yaml:"layouts,omitempty" msgpack:"layouts,omitempty"`
	Exports      []Export            `json:"exports,omitempty" yaml:"exports,omitempty" msgpack:"exports,omitempty"`
	ClassVTables []ClassVTable       `json:"class_vtables,omitempty" yaml:"class_vtables,omitempty" msgpack:"class_vtables,omitempty"`
	TraitVTables []TraitVTable       `json:"trait_vtables,omitempty" yaml:"trait_vtables,omitempty" msgpack:"trait_vtables,omitempty"`
	// Entry is the qualified name of the program entry function.
	Entry string `json:"entry,omitempty" yaml:"entry,omitempty" msgpack:"entry,omitempty"`
}

// BuildLayouts freezes the module's layouts for target.
func (m *Module) BuildLayouts(target layout.Target) (*layout.Table, error) {
	b := layout.NewBuilder(target)
	if err := b.AddAll(m.Layouts); err != nil {
		return nil, err
	}
	return b.Freeze(), nil
}
