package capability

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

func TestProbeRecordsEveryName(t *testing.T) {
	q := QuerierFunc(func(name string) bool { return name == Float32Filterable })
	set := Probe(q, []string{Float32Filterable, TimestampQuery})

	if len(set) != 2 {
		t.Fatalf("len(set) = %d, want 2", len(set))
	}
	if !set.Has(Float32Filterable) {
		t.Errorf("Has(%q) = false, want true", Float32Filterable)
	}
	if set.Has(TimestampQuery) {
		t.Errorf("Has(%q) = true, want false", TimestampQuery)
	}
	if set.Has("never-probed") {
		t.Error("unprobed name should report false")
	}
}

func TestProbeNeverFails(t *testing.T) {
	set := Probe(nil, []string{ShaderF16})
	if set.Has(ShaderF16) {
		t.Error("nil querier should record false")
	}

	panicky := QuerierFunc(func(string) bool { panic("driver exploded") })
	set = Probe(panicky, []string{ShaderF16, TimestampQuery})
	if set.Has(ShaderF16) || set.Has(TimestampQuery) {
		t.Error("panicking querier should record false")
	}
	if len(set) != 2 {
		t.Errorf("len(set) = %d, want 2", len(set))
	}
}

func TestMissingIsSorted(t *testing.T) {
	set := Set{"b": false, "a": false, "c": true}
	got := set.Missing()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Missing() = %v, want [a b]", got)
	}
}

func TestRequireAll(t *testing.T) {
	if err := RequireAll(Set{Float32Filterable: true}); err != nil {
		t.Errorf("RequireAll = %v, want nil", err)
	}

	err := RequireAll(Set{Float32Filterable: false, "another": false})
	var ce *common.CapabilityError
	if !errors.As(err, &ce) {
		t.Fatalf("RequireAll error = %v, want *CapabilityError", err)
	}
	if ce.Missing != "another" {
		t.Errorf("Missing = %q, want %q", ce.Missing, "another")
	}
}

func TestMerge(t *testing.T) {
	a := Set{"x": true, "y": false}
	b := Set{"y": true}
	m := a.Merge(b)
	if !m.Has("x") || !m.Has("y") {
		t.Errorf("Merge = %v", m)
	}
	if a.Has("y") {
		t.Error("Merge must not mutate the receiver")
	}
}
