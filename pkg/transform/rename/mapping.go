package rename

import (
	"github.com/Sumatoshi-tech/pyfuscate/pkg/observability"
)

// IdentKind classifies what a generated name stands for.
type IdentKind string

// Identifier kinds.
const (
	KindVariable  IdentKind = "variable"
	KindParameter IdentKind = "parameter"
	KindFunction  IdentKind = "function"
	KindClass     IdentKind = "class"
	KindMember    IdentKind = "member"
	KindImport    IdentKind = "import"
)

// Entry is one generated name.
type Entry struct {
	Original  string    `json:"original"  yaml:"original"`
	Generated string    `json:"generated" yaml:"generated"`
	Kind      IdentKind `json:"kind"      yaml:"kind"`
	// Scope is the kind of scope that was innermost when the name was drawn.
	Scope string `json:"scope" yaml:"scope"`
	Depth int    `json:"depth" yaml:"depth"`
}

// Mapping lists generated names in generation order. One original can map to
// several generated names, one per binding scope.
type Mapping []Entry

// Generated returns every name generated for original, in order.
func (m Mapping) Generated(original string) []string {
	var out []string

	for _, entry := range m {
		if entry.Original == original {
			out = append(out, entry.Generated)
		}
	}

	return out
}

// Stats counts rewritten identifier occurrences.
type Stats struct {
	ByKind    map[IdentKind]int
	Generated int
}

func newStats() Stats {
	return Stats{ByKind: make(map[IdentKind]int)}
}

// Total returns the number of rewritten occurrences across kinds.
func (s Stats) Total() int {
	total := 0

	for _, count := range s.ByKind {
		total += count
	}

	return total
}

// Telemetry converts the stats for metric recording.
func (s Stats) Telemetry() observability.RenameStats {
	byKind := make(map[string]int64, len(s.ByKind))

	for kind, count := range s.ByKind {
		byKind[string(kind)] = int64(count)
	}

	return observability.RenameStats{
		ByKind:    byKind,
		Generated: int64(s.Generated),
	}
}
