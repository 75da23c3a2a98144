package types

import "strings"

// CanonicalPath rewrites legacy dotted paths to the `::` form.
func CanonicalPath(name string) string {
	if !strings.Contains(name, ".") {
		return name
	}
	return strings.ReplaceAll(name, ".", "::")
}

// ShortName returns the last path segment of a qualified name, ignoring
// separators nested inside generic arguments.
func ShortName(name string) string {
	depth := 0
	cut := 0
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ':':
			if depth == 0 && i+1 < len(name) && name[i+1] == ':' {
				cut = i + 2
				i++
			}
		}
	}
	return name[cut:]
}

// StripGenerics drops a trailing generic argument list: "Vec<int>" -> "Vec".
func StripGenerics(name string) string {
	if idx := strings.IndexByte(name, '<'); idx >= 0 {
		return name[:idx]
	}
	return name
}

// GenericArgs splits the top-level generic arguments of name.
func GenericArgs(name string) []string {
	open := strings.IndexByte(name, '<')
	if open < 0 || !strings.HasSuffix(name, ">") {
		return nil
	}
	inner := name[open+1 : len(name)-1]
	var args []string
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(inner[start:]); tail != "" {
		args = append(args, tail)
	}
	return args
}

// IsPlaceholderName reports whether name looks like an unbound generic
// parameter: a single uppercase letter, or a `T`-prefixed identifier such as
// `TValue`, or an interface-like `IFoo` short name.
func IsPlaceholderName(name string) bool {
	if name == "" || strings.Contains(name, "::") {
		return false
	}
	if len(name) == 1 {
		return name[0] >= 'A' && name[0] <= 'Z'
	}
	if !isAlnum(name) {
		return false
	}
	if name[0] == 'T' && name[1] >= 'A' && name[1] <= 'Z' {
		return true
	}
	return name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z'
}

// HasPlaceholderArgs reports whether any generic argument of name is itself
// an unbound placeholder.
func HasPlaceholderArgs(name string) bool {
	for _, arg := range GenericArgs(name) {
		if IsPlaceholderName(arg) || HasPlaceholderArgs(arg) {
			return true
		}
	}
	return false
}

func isAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
