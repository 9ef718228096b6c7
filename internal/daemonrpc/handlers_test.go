package daemonrpc

import (
	"context"
	"testing"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/chunkstore"
	"github.com/gekkofs/gekkofs-go/internal/daemonctx"
	"github.com/gekkofs/gekkofs-go/internal/kvstore"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/mergeop"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	codec := metadata.NewCodec(metadata.AllFields)
	idMap := mergeop.NewMap()
	resolver := mergeop.NewResolver(codec, idMap, nil)
	engine := kvstore.NewLockEngine(kvstore.NewMemRawStore(), codec, resolver, &mergeop.IDAllocator{})

	chunks, err := chunkstore.New(t.TempDir(), 64, logging.Nop())
	if err != nil {
		t.Fatalf("chunkstore.New() error = %v", err)
	}

	dctx := daemonctx.New(engine, chunks, codec, logging.Nop(), 0, false)
	return New(dctx)
}

func TestCreateStatRoundTrip(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	createRep, err := h.Create(ctx, &CreateRequest{Path: "/a", Mode: 0o644})
	if err != nil || createRep.Err != apierrors.Success {
		t.Fatalf("Create() = %+v, %v", createRep, err)
	}

	statRep, err := h.Stat(ctx, &StatRequest{Path: "/a"})
	if err != nil || statRep.Err != apierrors.Success {
		t.Fatalf("Stat() = %+v, %v", statRep, err)
	}

	second, err := h.Create(ctx, &CreateRequest{Path: "/a", Mode: 0o644})
	if err != nil || second.Err != apierrors.Exists {
		t.Fatalf("Create() on existing path = %+v, %v, want Exists", second, err)
	}
}

func TestUpdateMetadentrySizeAppend(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	if rep, err := h.Create(ctx, &CreateRequest{Path: "/f", Mode: 0o644}); err != nil || rep.Err != apierrors.Success {
		t.Fatalf("Create() = %+v, %v", rep, err)
	}

	first, err := h.UpdateMetadentrySize(ctx, &UpdateMetadentrySizeRequest{Path: "/f", Size: 100, Append: true})
	if err != nil || first.Err != apierrors.Success || first.NewSize != 100 {
		t.Fatalf("UpdateMetadentrySize() = %+v, %v, want NewSize 100", first, err)
	}

	second, err := h.UpdateMetadentrySize(ctx, &UpdateMetadentrySizeRequest{Path: "/f", Size: 50, Append: true})
	if err != nil || second.Err != apierrors.Success || second.NewSize != 150 {
		t.Fatalf("UpdateMetadentrySize() = %+v, %v, want NewSize 150", second, err)
	}

	sizeRep, err := h.GetMetadentrySize(ctx, &GetMetadentrySizeRequest{Path: "/f"})
	if err != nil || sizeRep.Size != 150 {
		t.Fatalf("GetMetadentrySize() = %+v, %v, want 150", sizeRep, err)
	}
}

func TestWriteReadDataRoundTrip(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	if rep, err := h.Create(ctx, &CreateRequest{Path: "/f", Mode: 0o644}); err != nil || rep.Err != apierrors.Success {
		t.Fatalf("Create() = %+v, %v", rep, err)
	}

	payload := []byte("hello, gekkofs chunked write")
	assigned := []byte{0b11} // chunks 0 and 1 both owned by this daemon in the test

	writeRep, err := h.WriteData(ctx, &WriteDataRequest{
		Path:               "/f",
		OffsetInFirstChunk: 0,
		AssignedChunks:     assigned,
		ChunkN:             2,
		ChunkStartID:       0,
		ChunkEndID:         1,
		TotalBytes:         int64(len(payload)),
		BulkIn:             payload,
	})
	if err != nil || writeRep.Err != apierrors.Success || writeRep.BytesWritten != int64(len(payload)) {
		t.Fatalf("WriteData() = %+v, %v, want %d bytes written", writeRep, err, len(payload))
	}

	readRep, err := h.ReadData(ctx, &ReadDataRequest{
		Path:               "/f",
		OffsetInFirstChunk: 0,
		AssignedChunks:     assigned,
		ChunkN:             2,
		ChunkStartID:       0,
		ChunkEndID:         1,
		TotalBytes:         int64(len(payload)),
	})
	if err != nil || readRep.Err != apierrors.Success {
		t.Fatalf("ReadData() = %+v, %v", readRep, err)
	}
	if string(readRep.BulkOut) != string(payload) {
		t.Errorf("ReadData() bulk_out = %q, want %q", readRep.BulkOut, payload)
	}
}

func TestGetDirentsListsImmediateChildrenOnly(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	for _, p := range []struct {
		path string
		mode uint32
	}{
		{"/dir", 0o40755},
		{"/dir/a", 0o644},
		{"/dir/b", 0o644},
		{"/dir/sub", 0o40755},
		{"/dir/sub/c", 0o644},
	} {
		if rep, err := h.Create(ctx, &CreateRequest{Path: p.path, Mode: p.mode}); err != nil || rep.Err != apierrors.Success {
			t.Fatalf("Create(%q) = %+v, %v", p.path, rep, err)
		}
	}

	rep, err := h.GetDirents(ctx, &GetDirentsRequest{Path: "/dir"})
	if err != nil || rep.Err != apierrors.Success {
		t.Fatalf("GetDirents() = %+v, %v", rep, err)
	}
	if len(rep.Entries) != 3 {
		t.Fatalf("GetDirents() returned %d entries, want 3 (a, b, sub): %+v", len(rep.Entries), rep.Entries)
	}
}

func TestTruncDataDropsTrailingChunks(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	payload := make([]byte, 192) // 3 chunks of 64 bytes
	if rep, err := h.WriteData(ctx, &WriteDataRequest{
		Path: "/f", AssignedChunks: []byte{0b111}, ChunkN: 3, ChunkStartID: 0, ChunkEndID: 2,
		TotalBytes: int64(len(payload)), BulkIn: payload,
	}); err != nil || rep.Err != apierrors.Success {
		t.Fatalf("WriteData() = %+v, %v", rep, err)
	}

	rep, err := h.TruncData(ctx, &TruncDataRequest{Path: "/f", NewSize: 70, OldSize: 192})
	if err != nil || rep.Err != apierrors.Success {
		t.Fatalf("TruncData() = %+v, %v", rep, err)
	}

	readRep, err := h.ReadData(ctx, &ReadDataRequest{
		Path: "/f", AssignedChunks: []byte{0b100}, ChunkN: 3, ChunkStartID: 0, ChunkEndID: 2,
		TotalBytes: 192,
	})
	if err != nil {
		t.Fatalf("ReadData() error = %v", err)
	}
	// Chunk 2 was removed entirely by the truncate; reading it back reports
	// zero bytes for that span, same as a never-written chunk.
	if readRep.BytesRead != 0 {
		t.Errorf("ReadData() after truncate BytesRead = %d, want 0 for the dropped chunk", readRep.BytesRead)
	}
}
