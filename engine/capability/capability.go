// Package capability records which optional GPU features a device exposes.
// A probe runs once when the renderer is created and the resulting Set is read-only afterwards.
package capability

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// Capability names understood by the WebGPU querier.
const (
	Float32Filterable       = "float32-filterable"
	RG11B10UfloatRenderable = "rg11b10ufloat-renderable"
	TimestampQuery          = "timestamp-query"
	ShaderF16               = "shader-f16"
)

// RequiredCapabilities are probed at construction; a missing entry aborts renderer creation.
// Accumulation reads back float render targets through filtered samplers, which needs Float32Filterable.
var RequiredCapabilities = []string{Float32Filterable}

// OptionalCapabilities are probed at construction; a missing entry degrades quality or speed.
var OptionalCapabilities = []string{RG11B10UfloatRenderable, TimestampQuery, ShaderF16}

// Querier answers whether a named capability is available on the current device.
type Querier interface {
	// HasCapability reports whether the named capability is supported.
	//
	// Parameters:
	//   - name: the capability name
	//
	// Returns:
	//   - bool: true if the device supports it
	HasCapability(name string) bool
}

// QuerierFunc adapts a plain function to the Querier interface.
type QuerierFunc func(name string) bool

// HasCapability implements Querier.
func (f QuerierFunc) HasCapability(name string) bool {
	return f(name)
}

// Set maps capability names to their availability.
type Set map[string]bool

// Probe queries every name in names and records whether it is available.
// Probe never fails: a nil querier, or one that panics, records false for the affected names.
//
// Parameters:
//   - q: the device querier
//   - names: the capability names to check
//
// Returns:
//   - Set: availability per name
func Probe(q Querier, names []string) Set {
	set := make(Set, len(names))
	for _, name := range names {
		set[name] = query(q, name)
	}
	return set
}

func query(q Querier, name string) (ok bool) {
	if q == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			common.ComponentLogger("Capability").Debug("capability query panicked", "name", name, "panic", r)
			ok = false
		}
	}()
	return q.HasCapability(name)
}

// Has reports whether name was probed and found available.
func (s Set) Has(name string) bool {
	return s[name]
}

// Missing returns the probed names that are unavailable, sorted.
func (s Set) Missing() []string {
	var missing []string
	for name, ok := range s {
		if !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Merge returns a new set containing the entries of s and other. Entries in other win.
func (s Set) Merge(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// RequireAll returns a CapabilityError naming the first missing capability in sorted order,
// or nil when every probed capability is available.
//
// Parameters:
//   - s: a set produced by Probe
//
// Returns:
//   - error: *common.CapabilityError, or nil
func RequireAll(s Set) error {
	if missing := s.Missing(); len(missing) > 0 {
		return &common.CapabilityError{Missing: missing[0]}
	}
	return nil
}
