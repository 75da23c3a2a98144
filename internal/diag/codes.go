package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// reading and decoding inputs
	IOInfo          Code = 1000
	IOReadFailed    Code = 1001
	IODecodeFailed  Code = 1002
	IOConfigInvalid Code = 1003
	IOWriteFailed   Code = 1004

	// module tables
	LayInfo          Code = 2000
	LayInvalidModule Code = 2001
	LayUnknownTarget Code = 2002

	// code generation, one per backend error kind
	CGInfo                  Code = 4000
	CGUnknownType           Code = 4001
	CGMissingLayout         Code = 4002
	CGArity                 Code = 4003
	CGUnsupportedProjection Code = 4004
	CGUnionType             Code = 4005
	CGMissingSignature      Code = 4006
	CGABIMismatch           Code = 4007
	CGSimdElement           Code = 4008
	CGInternal              Code = 4009
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	IOInfo:          "Input information",
	IOReadFailed:    "Cannot read input",
	IODecodeFailed:  "Malformed module",
	IOConfigInvalid: "Invalid configuration",
	IOWriteFailed:   "Cannot write output",

	LayInfo:          "Layout information",
	LayInvalidModule: "Invalid type layout table",
	LayUnknownTarget: "Unsupported target",

	CGInfo:                  "Codegen information",
	CGUnknownType:           "Type has no representation",
	CGMissingLayout:         "Missing type layout",
	CGArity:                 "Argument count mismatch",
	CGUnsupportedProjection: "Unsupported place projection",
	CGUnionType:             "Union type in value position",
	CGMissingSignature:      "Missing function signature",
	CGABIMismatch:           "ABI classification failed",
	CGSimdElement:           "Invalid SIMD element type",
	CGInternal:              "Internal backend error",
}

// ID is the stable short form, e.g. "CG4006".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("CG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
