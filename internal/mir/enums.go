package mir

import "fmt"

func enumString[T ~uint8](v T, names []string, what string) string {
	if int(v) < len(names) && names[v] != "" {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", what, v)
}

func parseEnum[T ~uint8](dst *T, b []byte, names []string, what string) error {
	for i, name := range names {
		if name != "" && name == string(b) {
			*dst = T(i)
			return nil
		}
	}
	return fmt.Errorf("mir: unknown %s %q", what, b)
}
