package chunklayout

import "testing"

func TestSpansSingleChunk(t *testing.T) {
	spans := Spans(3, 1, 10, 20, 64)
	if len(spans) != 1 {
		t.Fatalf("Spans() returned %d spans, want 1", len(spans))
	}
	sp := spans[0]
	if sp.ChunkID != 3 || sp.InChunkOff != 10 || sp.Length != 20 || sp.BufOffset != 0 {
		t.Errorf("Spans()[0] = %+v, want {ChunkID:3 InChunkOff:10 Length:20 BufOffset:0}", sp)
	}
}

func TestSpansMultiChunkFirstAndLastTrimmed(t *testing.T) {
	// chunk_size=64, offset_in_first_chunk=50, total_bytes=100 -> spans
	// [0]: 14 bytes (64-50), [1]: 64 bytes, [2]: 22 bytes (100-14-64).
	spans := Spans(0, 3, 50, 100, 64)
	if len(spans) != 3 {
		t.Fatalf("Spans() returned %d spans, want 3", len(spans))
	}
	want := []Span{
		{ChunkID: 0, InChunkOff: 50, Length: 14, BufOffset: 0},
		{ChunkID: 1, InChunkOff: 0, Length: 64, BufOffset: 14},
		{ChunkID: 2, InChunkOff: 0, Length: 22, BufOffset: 78},
	}
	for i, w := range want {
		if spans[i] != w {
			t.Errorf("Spans()[%d] = %+v, want %+v", i, spans[i], w)
		}
	}
}

func TestBitsetSetGet(t *testing.T) {
	b := NewBitset(10)
	b.Set(0)
	b.Set(9)
	for i := 0; i < 10; i++ {
		want := i == 0 || i == 9
		if got := b.Get(i); got != want {
			t.Errorf("Bitset.Get(%d) = %v, want %v", i, got, want)
		}
	}
	if b.Get(100) {
		t.Errorf("Bitset.Get() out of range returned true, want false")
	}
}
