// Package abi classifies function signatures under the platform C calling
// conventions: which parameters travel in registers (possibly coerced to an
// integer shape), which travel by address, and when the return value needs a
// hidden caller-allocated buffer.
package abi

import (
	"fmt"

	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// PassKind is the pass-class of one parameter.
type PassKind uint8

const (
	PassDirect PassKind = iota
	// PassByVal passes a pointer to a caller-owned copy.
	PassByVal
	// PassPtr passes a plain pointer with no copy semantics.
	PassPtr
)

func (k PassKind) String() string {
	switch k {
	case PassDirect:
		return "direct"
	case PassByVal:
		return "byval"
	case PassPtr:
		return "ptr"
	default:
		return fmt.Sprintf("PassKind(%d)", k)
	}
}

// Indirect reports whether the parameter is passed by address.
func (k PassKind) Indirect() bool { return k != PassDirect }

// ReturnKind is the class of a return value.
type ReturnKind uint8

const (
	ReturnDirect ReturnKind = iota
	ReturnSret
)

func (k ReturnKind) String() string {
	if k == ReturnSret {
		return "sret"
	}
	return "direct"
}

// Param is the classification of one declared parameter.
type Param struct {
	Index int
	Type  types.Type
	Mode  types.ParamMode
	Pass  PassKind
	Align int
	// Coerce is the register shape a Direct aggregate is reinterpreted as,
	// e.g. "i64" or "{ i64, i32 }". Empty when passed as-is.
	Coerce string
}

// Return is the classification of the return value.
type Return struct {
	Type   types.Type
	Kind   ReturnKind
	Align  int
	Coerce string
}

// Signature is the full classification of a C-ABI function.
type Signature struct {
	Params   []Param
	Ret      Return
	Variadic bool
}

// HasSret reports whether a hidden return-buffer pointer is prepended.
func (s *Signature) HasSret() bool { return s != nil && s.Ret.Kind == ReturnSret }

// ParamOffset is the index shift applied to user parameters by the hidden
// return buffer.
func (s *Signature) ParamOffset() int {
	if s.HasSret() {
		return 1
	}
	return 0
}

// Error reports a signature the classifier cannot handle.
type Error struct {
	Type string
	Msg  string
}

func (e *Error) Error() string {
	if e.Type == "" {
		return "c abi: " + e.Msg
	}
	return fmt.Sprintf("c abi: %s for `%s`", e.Msg, e.Type)
}
