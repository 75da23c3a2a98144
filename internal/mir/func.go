package mir

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/Chic-lang/Chic-sub009/internal/types"
)

type FuncKind uint8

const (
	FuncNormal FuncKind = iota
	// FuncTestcase functions return an integer status to the test runner.
	FuncTestcase
	FuncConstructor
)

var funcKindNames = []string{
	FuncNormal:      "normal",
	FuncTestcase:    "testcase",
	FuncConstructor: "constructor",
}

func (k FuncKind) String() string                { return enumString(k, funcKindNames, "FuncKind") }
func (k FuncKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *FuncKind) UnmarshalText(b []byte) error { return parseEnum(k, b, funcKindNames, "function kind") }

// Binding selects when a dynamic-library symbol is resolved.
type Binding uint8

const (
	BindLazy Binding = iota
	BindEager
)

var bindingNames = []string{BindLazy: "lazy", BindEager: "eager"}

func (b Binding) String() string                { return enumString(b, bindingNames, "Binding") }
func (b Binding) MarshalText() ([]byte, error)  { return []byte(b.String()), nil }
func (b *Binding) UnmarshalText(v []byte) error { return parseEnum(b, v, bindingNames, "binding") }

// ExternSpec carries the linkage attributes of an extern declaration.
type ExternSpec struct {
	Alias string `json:"alias,omitempty" yaml:"alias,omitempty" msgpack:"alias,omitempty"`
	// Library requests dynamic resolution from a shared library at run time.
	Library    string  `json:"library,omitempty" yaml:"library,omitempty" msgpack:"library,omitempty"`
	Convention string  `json:"convention,omitempty" yaml:"convention,omitempty" msgpack:"convention,omitempty"`
	Binding    Binding `json:"binding,omitempty" yaml:"binding,omitempty" msgpack:"binding,omitempty"`
	Optional   bool    `json:"optional,omitempty" yaml:"optional,omitempty" msgpack:"optional,omitempty"`
	Weak       bool    `json:"weak,omitempty" yaml:"weak,omitempty" msgpack:"weak,omitempty"`
}

type Func struct {
	// Name is the qualified name, e.g. "Demo::Math::Add".
	Name     string     `json:"name" yaml:"name" msgpack:"name"`
	Kind     FuncKind   `json:"kind,omitempty" yaml:"kind,omitempty" msgpack:"kind,omitempty"`
	Params   []Param    `json:"params,omitempty" yaml:"params,omitempty" msgpack:"params,omitempty"`
	Ret      types.Type `json:"ret" yaml:"ret" msgpack:"ret"`
	Abi      string     `json:"abi,omitempty" yaml:"abi,omitempty" msgpack:"abi,omitempty"`
	Variadic bool       `json:"variadic,omitempty" yaml:"variadic,omitempty" msgpack:"variadic,omitempty"`
	Async    bool       `json:"async,omitempty" yaml:"async,omitempty" msgpack:"async,omitempty"`
	Weak     bool       `json:"weak,omitempty" yaml:"weak,omitempty" msgpack:"weak,omitempty"`
	// Owner is the enclosing type of a method; `Self` resolves to it.
	Owner  string      `json:"owner,omitempty" yaml:"owner,omitempty" msgpack:"owner,omitempty"`
	Extern *ExternSpec `json:"extern,omitempty" yaml:"extern,omitempty" msgpack:"extern,omitempty"`

	Locals []Local `json:"locals,omitempty" yaml:"locals,omitempty" msgpack:"locals,omitempty"`
	Blocks []Block `json:"blocks,omitempty" yaml:"blocks,omitempty" msgpack:"blocks,omitempty"`
}

// HasBody reports whether the function is defined in this module.
func (f *Func) HasBody() bool { return len(f.Blocks) > 0 }

// FnType returns the declared shape of f.
func (f *Func) FnType() types.FnType {
	fn := types.FnType{
		Params:   make([]types.Type, len(f.Params)),
		Modes:    make([]types.ParamMode, len(f.Params)),
		Ret:      f.Ret,
		Abi:      f.Abi,
		Variadic: f.Variadic,
	}
	for i, p := range f.Params {
		fn.Params[i] = p.Type
		fn.Modes[i] = p.Mode
	}
	return fn
}

// Local returns the local with id.
func (f *Func) Local(id LocalID) (*Local, error) {
	if id < 0 || int(id) >= len(f.Locals) {
		return nil, fmt.Errorf("%s: local %d out of range", f.Name, id)
	}
	return &f.Locals[id], nil
}

// Block returns the block with id. Blocks are stored in id order.
func (f *Func) Block(id BlockID) (*Block, error) {
	if id >= 0 && int(id) < len(f.Blocks) && f.Blocks[id].ID == id {
		return &f.Blocks[id], nil
	}
	for i := range f.Blocks {
		if f.Blocks[i].ID == id {
			return &f.Blocks[i], nil
		}
	}
	return nil, fmt.Errorf("%s: block %d not found", f.Name, id)
}

// LocalIndex converts a position in Func.Locals to its id.
func LocalIndex(i int) (LocalID, error) {
	id, err := safecast.Conv[LocalID](i)
	if err != nil {
		return NoLocalID, fmt.Errorf("local id overflow: %w", err)
	}
	return id, nil
}

// ReturnLocal returns the id of the return slot, or NoLocalID when none is
// declared.
func (f *Func) ReturnLocal() (LocalID, error) {
	for i, l := range f.Locals {
		if l.Kind == LocalReturn {
			return LocalIndex(i)
		}
	}
	return NoLocalID, nil
}
