package resources

import "testing"

func TestSamplerKeyEqualityDeduplicates(t *testing.T) {
	a := SamplerKey{MagFilter: 1, MinFilter: 1, MaxLod: 4}
	b := SamplerKey{MagFilter: 1, MinFilter: 1, MaxLod: 4}
	if a != b {
		t.Fatalf("identical sampler configurations must compare equal for cache dedup, got %+v != %+v", a, b)
	}
}
