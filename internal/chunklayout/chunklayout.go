// Package chunklayout computes the shared cumulative-byte-offset chunk
// math spec.md §4.5's "implicit bulk contract" describes, so the client
// forwarders (component G) and the daemon RPC handlers (component F)
// agree byte-for-byte on how a [chunk_start_id, chunk_end_id] range maps
// onto a contiguous user buffer, without duplicating the arithmetic on
// both sides of the wire.
package chunklayout

// Span describes one chunk's slice of the cumulative byte range a
// write_data/read_data operation addresses: its in-chunk offset, its
// length, and its byte offset within the overall bulk buffer.
type Span struct {
	ChunkID    int64
	InChunkOff int64
	Length     int64
	BufOffset  int64
}

// Spans walks the [chunkStartID, chunkStartID+chunkN) range, computing
// each chunk's Span. The first chunk's in-chunk offset is
// offsetInFirstChunk; every chunk after the first starts at offset 0;
// the last chunk's length is trimmed to whatever remains of totalBytes
// (spec.md §4.5: "For the first chunk... subtracts the byte offset; for
// the last chunk, it subtracts the tail underrun").
func Spans(chunkStartID int64, chunkN int, offsetInFirstChunk, totalBytes, chunkSize int64) []Span {
	spans := make([]Span, 0, chunkN)
	var bufOffset int64
	remaining := totalBytes
	for i := 0; i < chunkN; i++ {
		var inChunkOff int64
		if i == 0 {
			inChunkOff = offsetInFirstChunk
		}
		capacity := chunkSize - inChunkOff
		length := capacity
		if remaining < length {
			length = remaining
		}
		spans = append(spans, Span{
			ChunkID:    chunkStartID + int64(i),
			InChunkOff: inChunkOff,
			Length:     length,
			BufOffset:  bufOffset,
		})
		bufOffset += length
		remaining -= length
	}
	return spans
}

// Bitset is a bit-per-chunk assignment mask, bit i corresponding to
// chunkStartID+i in a Spans range (spec.md §4.5: "a bitset... identifying
// which chunks in the range the recipient is responsible for").
type Bitset []byte

// NewBitset allocates a Bitset wide enough for n chunks.
func NewBitset(n int) Bitset {
	return make(Bitset, (n+7)/8)
}

// Set marks chunk index i as assigned.
func (b Bitset) Set(i int) {
	b[i/8] |= 1 << uint(i%8)
}

// Get reports whether chunk index i is assigned.
func (b Bitset) Get(i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(b) {
		return false
	}
	return b[byteIdx]&(1<<uint(i%8)) != 0
}
