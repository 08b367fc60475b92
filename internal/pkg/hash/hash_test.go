package hash

import (
	"strconv"
	"testing"
)

func TestPartition(t *testing.T) {
	// Same inputs should produce same output
	if Partition("doc-1", 4) != Partition("doc-1", 4) {
		t.Error("Partition not deterministic")
	}

	counts := make([]int, 4)
	for i := 0; i < 400; i++ {
		p := Partition("doc-"+strconv.Itoa(i), 4)
		if p < 0 || p >= 4 {
			t.Fatalf("Partition out of range: %d", p)
		}
		counts[p]++
	}
	for i, c := range counts {
		if c == 0 {
			t.Errorf("partition %d received no keys", i)
		}
	}

	if got := Partition("doc-1", 0); got != 0 {
		t.Errorf("Partition(doc-1, 0) = %d, want 0", got)
	}
	if got := Partition("doc-1", 1); got != 0 {
		t.Errorf("Partition(doc-1, 1) = %d, want 0", got)
	}
}

func BenchmarkPartition(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Partition("benchmark-document-id", 16)
	}
}
