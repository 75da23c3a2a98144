package llvm

import (
	"strconv"
	"strings"
)

// Representation strings are the textual LLVM types used throughout the
// emitter. These helpers inspect them without a parsed type model.

const (
	reprPtr         = "ptr"
	reprStr         = "{ ptr, i64 }"
	reprTraitObject = "{ ptr, ptr }"
	reprClosure     = "{ ptr, ptr, ptr, i64, i64, i64 }"
)

func isIntRepr(ty string) bool {
	if len(ty) < 2 || ty[0] != 'i' {
		return false
	}
	_, err := strconv.Atoi(ty[1:])
	return err == nil
}

func intBits(ty string) int {
	if !isIntRepr(ty) {
		return 0
	}
	n, _ := strconv.Atoi(ty[1:])
	return n
}

func isFloatRepr(ty string) bool {
	switch ty {
	case "half", "bfloat", "float", "double", "fp128":
		return true
	}
	return false
}

func floatBits(ty string) int {
	switch ty {
	case "half", "bfloat":
		return 16
	case "float":
		return 32
	case "double":
		return 64
	case "fp128":
		return 128
	}
	return 0
}

func isVectorRepr(ty string) bool { return strings.HasPrefix(ty, "<") && !strings.HasPrefix(ty, "<{") }

func isAggregateRepr(ty string) bool {
	return strings.HasPrefix(ty, "{") || strings.HasPrefix(ty, "<{") || strings.HasPrefix(ty, "[")
}

// reprSizeAlign computes the byte size and alignment of a representation
// string using the x86_64/aarch64 data layout.
func reprSizeAlign(ty string) (int, int, bool) {
	ty = strings.TrimSpace(ty)
	switch {
	case ty == "" || ty == "void":
		return 0, 1, true
	case ty == reprPtr:
		return 8, 8, true
	case isIntRepr(ty):
		bits := intBits(ty)
		size := (bits + 7) / 8
		switch {
		case size <= 1:
			return 1, 1, true
		case size <= 2:
			return 2, 2, true
		case size <= 4:
			return 4, 4, true
		case size <= 8:
			return 8, 8, true
		}
		return roundTo(size, 16), 16, true
	case isFloatRepr(ty):
		bytes := floatBits(ty) / 8
		return bytes, bytes, true
	case strings.HasPrefix(ty, "<{") && strings.HasSuffix(ty, "}>"):
		return structSizeAlign(ty[2:len(ty)-2], true)
	case strings.HasPrefix(ty, "{") && strings.HasSuffix(ty, "}"):
		return structSizeAlign(ty[1:len(ty)-1], false)
	case strings.HasPrefix(ty, "[") && strings.HasSuffix(ty, "]"):
		n, elem, ok := splitCount(ty[1 : len(ty)-1])
		if !ok {
			return 0, 0, false
		}
		size, align, ok := reprSizeAlign(elem)
		if !ok {
			return 0, 0, false
		}
		return roundTo(size, align) * n, align, true
	case strings.HasPrefix(ty, "<") && strings.HasSuffix(ty, ">"):
		n, elem, ok := splitCount(ty[1 : len(ty)-1])
		if !ok {
			return 0, 0, false
		}
		size, _, ok := reprSizeAlign(elem)
		if !ok {
			return 0, 0, false
		}
		return size * n, size * n, true
	}
	return 0, 0, false
}

func structSizeAlign(body string, packed bool) (int, int, bool) {
	size, align := 0, 1
	for _, field := range splitTopLevel(body) {
		fs, fa, ok := reprSizeAlign(field)
		if !ok {
			return 0, 0, false
		}
		if packed {
			fa = 1
		}
		size = roundTo(size, fa) + fs
		align = max(align, fa)
	}
	return roundTo(size, align), align, true
}

// splitCount splits "N x T".
func splitCount(body string) (int, string, bool) {
	before, after, ok := strings.Cut(strings.TrimSpace(body), " x ")
	if !ok {
		return 0, "", false
	}
	n, err := strconv.Atoi(strings.TrimSpace(before))
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(after), true
}

// splitTopLevel splits a comma separated list, ignoring nested commas.
func splitTopLevel(body string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{', '[', '<', '(':
			depth++
		case '}', ']', '>', ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(body[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func roundTo(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// zeroValue is the constant used when a value of ty must be synthesized.
func zeroValue(ty string) string {
	switch {
	case ty == reprPtr:
		return "null"
	case isIntRepr(ty):
		return "0"
	case isFloatRepr(ty):
		return "0.0"
	}
	return "zeroinitializer"
}
