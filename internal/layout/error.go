package layout

import (
	"fmt"
	"strings"
)

// LayoutErrorKind enumerates types of layout table errors.
type LayoutErrorKind uint8

const (
	// LayoutErrFieldOffset indicates a field placed past the declared size.
	LayoutErrFieldOffset LayoutErrorKind = iota + 1
	LayoutErrDuplicate
	LayoutErrEnumWidth
	LayoutErrRecursive
	LayoutErrMissing
	LayoutErrConversion
)

// LayoutError represents an invalid or missing layout record.
type LayoutError struct {
	Kind   LayoutErrorKind
	Type   string
	Field  string
	Offset int
	Size   int
	Cycle  []string // for LayoutErrRecursive
	Err    error    // for LayoutErrConversion
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrFieldOffset:
		return fmt.Sprintf("field %s.%s at offset %d exceeds declared size %d", e.Type, e.Field, e.Offset, e.Size)
	case LayoutErrDuplicate:
		return fmt.Sprintf("duplicate layout for %s", e.Type)
	case LayoutErrEnumWidth:
		return fmt.Sprintf("enum %s has unsupported underlying size %d", e.Type, e.Size)
	case LayoutErrRecursive:
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrMissing:
		if e.Field != "" {
			return fmt.Sprintf("missing layout metadata %s for %s", e.Field, e.Type)
		}
		return fmt.Sprintf("missing layout for %s", e.Type)
	case LayoutErrConversion:
		return fmt.Sprintf("layout value out of range for %s: %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("layout error kind=%d type %s", e.Kind, e.Type)
	}
}

func (e *LayoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
