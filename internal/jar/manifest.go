package jar

import (
	"fmt"
	"strings"
)

// Manifest holds the main attributes of a JAR manifest. Per-entry sections
// are not kept.
type Manifest struct {
	attrs map[string]string
	names []string
}

// ParseManifest parses the main section of a manifest: "Name: value"
// lines up to the first blank line, where a line starting with a single
// space continues the previous value.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{attrs: make(map[string]string)}

	var lastKey string
	for i, line := range splitLines(string(data)) {
		if line == "" {
			break
		}

		if line[0] == ' ' {
			if lastKey == "" {
				return nil, fmt.Errorf("manifest line %d: continuation without a header", i+1)
			}
			m.attrs[lastKey] += line[1:]
			continue
		}

		name, value, ok := strings.Cut(line, ": ")
		if !ok || name == "" {
			return nil, fmt.Errorf("manifest line %d: invalid header %q", i+1, line)
		}
		lastKey = strings.ToLower(name)
		if _, seen := m.attrs[lastKey]; !seen {
			m.names = append(m.names, name)
		}
		m.attrs[lastKey] = value
	}

	return m, nil
}

// Value returns the named attribute, or "" when absent. Names match
// case-insensitively.
func (m *Manifest) Value(name string) string {
	if m == nil {
		return ""
	}
	return m.attrs[strings.ToLower(name)]
}

// Has reports whether the named attribute is present
func (m *Manifest) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.attrs[strings.ToLower(name)]
	return ok
}

// Names returns attribute names in the order they first appeared
func (m *Manifest) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}

// splitLines splits on CRLF, LF or CR
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
