package chunkstore

import (
	"bytes"
	"testing"

	"github.com/gekkofs/gekkofs-go/internal/logging"
)

func TestStoreWriteReadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		off  int64
	}{
		{name: "write at start", data: []byte("hello world"), off: 0},
		{name: "write empty", data: []byte{}, off: 0},
		{name: "write binary data at offset", data: []byte{0x00, 0x01, 0x02, 0xFF}, off: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(t.TempDir(), 1<<20, logging.Nop())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			n, err := s.Write("/f", 0, tt.off, tt.data)
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if n != len(tt.data) {
				t.Errorf("Write() n = %d, want %d", n, len(tt.data))
			}

			buf := make([]byte, len(tt.data))
			got, err := s.Read("/f", 0, tt.off, buf)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != len(tt.data) {
				t.Errorf("Read() n = %d, want %d", got, len(tt.data))
			}
			if !bytes.Equal(buf, tt.data) {
				t.Errorf("Read() data = %v, want %v", buf, tt.data)
			}
		})
	}
}

func TestStoreReadMissingChunkReturnsZero(t *testing.T) {
	s, err := New(t.TempDir(), 1<<20, logging.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	buf := make([]byte, 16)
	n, err := s.Read("/never-written", 3, 0, buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Read() of a chunk never written = %d bytes, want 0 (spec.md §8)", n)
	}
}

func TestStoreShortReadAtEOF(t *testing.T) {
	s, err := New(t.TempDir(), 1<<20, logging.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Write("/f", 0, 0, []byte("12345")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	buf := make([]byte, 10)
	n, err := s.Read("/f", 0, 0, buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 5 {
		t.Errorf("short read n = %d, want 5", n)
	}
}

func TestStoreTruncateChunk(t *testing.T) {
	s, err := New(t.TempDir(), 1<<20, logging.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Write("/f", 0, 0, []byte("0123456789")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.TruncateChunk("/f", 0, 4); err != nil {
		t.Fatalf("TruncateChunk() error = %v", err)
	}
	buf := make([]byte, 10)
	n, err := s.Read("/f", 0, 0, buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 4 || !bytes.Equal(buf[:4], []byte("0123")) {
		t.Errorf("Read() after truncate = %q (n=%d), want %q", buf[:n], n, "0123")
	}
}

func TestStoreRemoveAllDropsEveryChunk(t *testing.T) {
	s, err := New(t.TempDir(), 1<<20, logging.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for id := int64(0); id < 3; id++ {
		if _, err := s.Write("/f", id, 0, []byte("x")); err != nil {
			t.Fatalf("Write(chunk %d) error = %v", id, err)
		}
	}
	if err := s.RemoveAll("/f"); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	for id := int64(0); id < 3; id++ {
		buf := make([]byte, 1)
		n, err := s.Read("/f", id, 0, buf)
		if err != nil {
			t.Fatalf("Read(chunk %d) error = %v", id, err)
		}
		if n != 0 {
			t.Errorf("Read(chunk %d) after RemoveAll = %d bytes, want 0", id, n)
		}
	}
}

func TestStoreRemoveAllWithoutMetadataIsSafe(t *testing.T) {
	s, err := New(t.TempDir(), 1<<20, logging.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.RemoveAll("/never-created"); err != nil {
		t.Errorf("RemoveAll() on a path with no chunks error = %v, want nil", err)
	}
}

func TestStoreStat(t *testing.T) {
	s, err := New(t.TempDir(), 4096, logging.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stat, err := s.Stat()
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.ChunkSize != 4096 {
		t.Errorf("ChunkSize = %d, want 4096", stat.ChunkSize)
	}
	if stat.TotalChunks <= 0 {
		t.Errorf("TotalChunks = %d, want > 0", stat.TotalChunks)
	}
}
