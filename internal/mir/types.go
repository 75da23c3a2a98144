// Package mir defines the typed mid-level IR consumed by the backend:
// functions with typed locals and basic blocks, plus the module-level layout,
// export and method-table metadata produced upstream.
package mir

import "github.com/Chic-lang/Chic-sub009/internal/types"

type BlockID int32
type LocalID int32

const (
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

// LocalKind is the role of a local slot.
type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalReturn
	LocalArg
	LocalTemp
)

var localKindNames = []string{
	LocalVar:    "local",
	LocalReturn: "return",
	LocalArg:    "arg",
	LocalTemp:   "temp",
}

func (k LocalKind) String() string                { return enumString(k, localKindNames, "LocalKind") }
func (k LocalKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *LocalKind) UnmarshalText(b []byte) error { return parseEnum(k, b, localKindNames, "local kind") }

// Local is one storage slot of a function body.
type Local struct {
	Name string     `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Kind LocalKind  `json:"kind" yaml:"kind" msgpack:"kind"`
	Type types.Type `json:"type" yaml:"type" msgpack:"type"`
	// ArgIndex is the declared parameter index of an argument slot.
	ArgIndex int `json:"arg_index,omitempty" yaml:"arg_index,omitempty" msgpack:"arg_index,omitempty"`
}

// AliasContract is the declared aliasing/ownership contract of a parameter.
type AliasContract struct {
	NoAlias   bool `json:"noalias,omitempty" yaml:"noalias,omitempty" msgpack:"noalias,omitempty"`
	NoCapture bool `json:"nocapture,omitempty" yaml:"nocapture,omitempty" msgpack:"nocapture,omitempty"`
	ReadOnly  bool `json:"readonly,omitempty" yaml:"readonly,omitempty" msgpack:"readonly,omitempty"`
	WriteOnly bool `json:"writeonly,omitempty" yaml:"writeonly,omitempty" msgpack:"writeonly,omitempty"`
	Align     int  `json:"align,omitempty" yaml:"align,omitempty" msgpack:"align,omitempty"`
}

// Param is a declared function parameter.
type Param struct {
	Name  string          `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Type  types.Type      `json:"type" yaml:"type" msgpack:"type"`
	Mode  types.ParamMode `json:"mode,omitempty" yaml:"mode,omitempty" msgpack:"mode,omitempty"`
	Alias AliasContract   `json:"alias,omitempty" yaml:"alias,omitempty" msgpack:"alias,omitempty"`
}
