package labels

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// UnknownClass is reported when the model picks an index outside the label table.
	UnknownClass = "Unknown"
	// UnknownDisease is reported for labels that have no entry in the mapping.
	UnknownDisease = "unknown"
)

var (
	ErrEmptyTable    = errors.New("label table is empty")
	ErrUnknownPreset = errors.New("unknown label preset")
)

// Table is the ordered list of class names. Position i corresponds to
// position i of the model's output vector.
type Table struct {
	names []string
}

func NewTable(names []string) (Table, error) {
	if len(names) == 0 {
		return Table{}, ErrEmptyTable
	}

	copied := make([]string, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return Table{}, fmt.Errorf("label at index %d is blank", i)
		}
		copied[i] = name
	}

	return Table{names: copied}, nil
}

func (t Table) Len() int {
	return len(t.names)
}

// At returns the label at index i, or false if i is out of range.
func (t Table) At(i int) (string, bool) {
	if i < 0 || i >= len(t.names) {
		return "", false
	}
	return t.names[i], true
}

func (t Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Contains reports whether label is one of the table entries.
func (t Table) Contains(label string) bool {
	for _, name := range t.names {
		if name == label {
			return true
		}
	}
	return false
}

// Mapping translates class names into the identifiers used by the frontend.
type Mapping struct {
	ids map[string]string
}

func NewMapping(ids map[string]string) Mapping {
	copied := make(map[string]string, len(ids))
	for label, id := range ids {
		copied[label] = id
	}
	return Mapping{ids: copied}
}

// Lookup returns the identifier for label, or UnknownDisease if it is unmapped.
func (m Mapping) Lookup(label string) string {
	if id, ok := m.ids[label]; ok {
		return id
	}
	return UnknownDisease
}

// Values returns the distinct identifiers of the mapping, sorted.
func (m Mapping) Values() []string {
	seen := make(map[string]struct{}, len(m.ids))
	values := make([]string, 0, len(m.ids))
	for _, id := range m.ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		values = append(values, id)
	}
	sort.Strings(values)
	return values
}

func (m Mapping) Entries() map[string]string {
	out := make(map[string]string, len(m.ids))
	for label, id := range m.ids {
		out[label] = id
	}
	return out
}

func (m Mapping) Len() int {
	return len(m.ids)
}

// IsHealthy reports whether the class name denotes a healthy plant.
func IsHealthy(label string) bool {
	return strings.Contains(strings.ToLower(label), "healthy")
}

// Set pairs a label table with the mapping that was built for it. The two
// are always loaded together so a table is never combined with a mapping
// from a different artifact.
type Set struct {
	Name    string
	Table   Table
	Mapping Mapping
}

func NewSet(name string, names []string, ids map[string]string) (Set, error) {
	table, err := NewTable(names)
	if err != nil {
		return Set{}, fmt.Errorf("label set %q: %w", name, err)
	}

	return Set{
		Name:    name,
		Table:   table,
		Mapping: NewMapping(ids),
	}, nil
}

// UnmappedLabels lists table entries the mapping has no identifier for.
func (s Set) UnmappedLabels() []string {
	var missing []string
	for _, name := range s.Table.names {
		if _, ok := s.Mapping.ids[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
