package daemonrpc

import (
	"context"
	"sort"
	"strings"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/chunklayout"
	"github.com/gekkofs/gekkofs-go/internal/daemonctx"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

// Handlers implements every daemon RPC spec.md §4.5 lists, bound to one
// DaemonContext.
type Handlers struct {
	ctx *daemonctx.DaemonContext
}

// New builds the daemon RPC handler set.
func New(ctx *daemonctx.DaemonContext) *Handlers {
	return &Handlers{ctx: ctx}
}

func key(path string) []byte { return []byte(path) }

func (h *Handlers) getRecord(ctx context.Context, path string) (metadata.Record, error) {
	raw, err := h.ctx.Engine.Get(ctx, key(path))
	if err != nil {
		return metadata.Record{}, err
	}
	return h.ctx.Codec.Parse(raw)
}

// Create implements create(path, mode) (spec.md §4.5).
func (h *Handlers) Create(ctx context.Context, req *CreateRequest) (*CreateReply, error) {
	ft := metadata.TypeRegular
	if req.Mode&0o40000 != 0 { // S_IFDIR
		ft = metadata.TypeDirectory
	}
	rec := metadata.NewRecord(ft, req.Mode)
	raw := h.ctx.Codec.Serialize(rec)
	err := h.ctx.Engine.PutIfAbsent(ctx, key(req.Path), raw)
	return &CreateReply{Err: apierrors.ToCode(err)}, nil
}

// Stat implements stat(path) -> (err, serialized_metadata).
func (h *Handlers) Stat(ctx context.Context, req *StatRequest) (*StatReply, error) {
	raw, err := h.ctx.Engine.Get(ctx, key(req.Path))
	if err != nil {
		return &StatReply{Err: apierrors.ToCode(err)}, nil
	}
	return &StatReply{Err: apierrors.Success, Metadata: raw}, nil
}

// RemoveMetadata implements remove_metadata(path) -> (err, size, mode).
// Deletes the key after reading it back so the caller can decide whether
// a targeted or broadcast remove_data follows (spec.md §4.5's delete
// optimization: "size < chunk_size * host_count" picks the cheaper
// targeted removal).
func (h *Handlers) RemoveMetadata(ctx context.Context, req *RemoveMetadataRequest) (*RemoveMetadataReply, error) {
	rec, err := h.getRecord(ctx, req.Path)
	if err != nil {
		return &RemoveMetadataReply{Err: apierrors.ToCode(err)}, nil
	}
	if err := h.ctx.Engine.Remove(ctx, key(req.Path)); err != nil {
		return &RemoveMetadataReply{Err: apierrors.ToCode(err)}, nil
	}
	if h.ctx.ChunkZeroCoLocated {
		_ = h.ctx.Chunks.RemoveChunk(req.Path, 0)
	}
	return &RemoveMetadataReply{Err: apierrors.Success, Size: rec.Size, Mode: rec.Mode}, nil
}

// RemoveData implements remove_data(path): unconditional, safe without
// metadata (spec.md §4.5).
func (h *Handlers) RemoveData(_ context.Context, req *RemoveDataRequest) (*RemoveDataReply, error) {
	err := h.ctx.Chunks.RemoveAll(req.Path)
	return &RemoveDataReply{Err: apierrors.ToCode(err)}, nil
}

// DecrSize implements decr_size(path, new_size), the truncate-down path
// through the merge operator (spec.md §4.2, §4.5).
func (h *Handlers) DecrSize(ctx context.Context, req *DecrSizeRequest) (*DecrSizeReply, error) {
	err := h.ctx.Engine.DecreaseSize(ctx, key(req.Path), req.NewSize)
	return &DecrSizeReply{Err: apierrors.ToCode(err)}, nil
}

// UpdateMetadentry implements update_metadentry(path, fields, field_mask):
// a direct read-modify-write outside the merge operator, since these
// fields (mode/atime/mtime/ctime/link_count) have no append/race
// semantics requiring lock-free resolution (spec.md §4.5: "Selectively
// overwrites fields").
func (h *Handlers) UpdateMetadentry(ctx context.Context, req *UpdateMetadentryRequest) (*UpdateMetadentryReply, error) {
	rec, err := h.getRecord(ctx, req.Path)
	if err != nil {
		return &UpdateMetadentryReply{Err: apierrors.ToCode(err)}, nil
	}
	if req.FieldMask&FieldMode != 0 {
		rec.Mode = req.Mode
	}
	if req.FieldMask&FieldAtime != 0 {
		rec.Atime = req.Atime
	}
	if req.FieldMask&FieldMtime != 0 {
		rec.Mtime = req.Mtime
	}
	if req.FieldMask&FieldCtime != 0 {
		rec.Ctime = req.Ctime
	}
	if req.FieldMask&FieldLinkCount != 0 {
		rec.LinkCount = req.LinkCount
	}
	if err := h.ctx.Engine.Put(ctx, key(req.Path), h.ctx.Codec.Serialize(rec)); err != nil {
		return &UpdateMetadentryReply{Err: apierrors.ToCode(err)}, nil
	}
	return &UpdateMetadentryReply{Err: apierrors.Success}, nil
}

// UpdateMetadentrySize implements update_metadentry_size(path, size,
// offset, append) -> (err, new_size): submits the increase_size operand
// and resolves the new size in the same call: Engine.IncreaseSize submits
// the operand and, for appends, resolves it before returning, so
// spec.md §4.2/§5's submit-then-read-back is one blocking round trip at
// the Engine boundary.
func (h *Handlers) UpdateMetadentrySize(ctx context.Context, req *UpdateMetadentrySizeRequest) (*UpdateMetadentrySizeReply, error) {
	chosenOffset, err := h.ctx.Engine.IncreaseSize(ctx, key(req.Path), req.Size, req.Offset, req.Append)
	if err != nil {
		return &UpdateMetadentrySizeReply{Err: apierrors.ToCode(err)}, nil
	}
	rec, err := h.getRecord(ctx, req.Path)
	if err != nil {
		return &UpdateMetadentrySizeReply{Err: apierrors.ToCode(err)}, nil
	}
	_ = chosenOffset
	return &UpdateMetadentrySizeReply{Err: apierrors.Success, NewSize: rec.Size}, nil
}

// GetMetadentrySize implements get_metadentry_size(path) -> (err, size).
func (h *Handlers) GetMetadentrySize(ctx context.Context, req *GetMetadentrySizeRequest) (*GetMetadentrySizeReply, error) {
	rec, err := h.getRecord(ctx, req.Path)
	if err != nil {
		return &GetMetadentrySizeReply{Err: apierrors.ToCode(err)}, nil
	}
	return &GetMetadentrySizeReply{Err: apierrors.Success, Size: rec.Size}, nil
}

// childName returns the path's immediate-child basename under prefix, or
// "" if path is not a direct child (i.e. it is nested deeper).
func childName(prefix, path string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

func dirPrefix(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

// GetDirents implements get_dirents(path, bulk_out) -> (err, entry_count)
// with the {is_dir_flag_byte, null_terminated_name}* buffer layout
// modeled as a typed slice here; the wire encoding of that layout is the
// transport codec's concern (spec.md §4.5).
func (h *Handlers) GetDirents(ctx context.Context, req *GetDirentsRequest) (*GetDirentsReply, error) {
	prefix := dirPrefix(req.Path)
	it, err := h.ctx.Engine.ScanPrefix(ctx, []byte(prefix))
	if err != nil {
		return &GetDirentsReply{Err: apierrors.ToCode(err)}, nil
	}
	defer it.Close()

	var entries []Dirent
	for it.Next() {
		name := childName(prefix, string(it.Key()))
		if name == "" {
			continue
		}
		rec, err := h.ctx.Codec.Parse(it.Value())
		if err != nil || rec.IsRenameTombstone() {
			continue
		}
		entries = append(entries, Dirent{Name: name, IsDir: rec.IsDirectory()})
	}
	if err := it.Err(); err != nil {
		return &GetDirentsReply{Err: apierrors.ToCode(err)}, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &GetDirentsReply{Err: apierrors.Success, Entries: entries}, nil
}

// GetDirentsExtended implements get_dirents_extended(path, bulk_out),
// adding size and ctime per entry to GetDirents' layout (spec.md §4.5).
func (h *Handlers) GetDirentsExtended(ctx context.Context, req *GetDirentsRequest) (*GetDirentsExtendedReply, error) {
	prefix := dirPrefix(req.Path)
	it, err := h.ctx.Engine.ScanPrefix(ctx, []byte(prefix))
	if err != nil {
		return &GetDirentsExtendedReply{Err: apierrors.ToCode(err)}, nil
	}
	defer it.Close()

	var entries []DirentExtended
	for it.Next() {
		name := childName(prefix, string(it.Key()))
		if name == "" {
			continue
		}
		rec, err := h.ctx.Codec.Parse(it.Value())
		if err != nil || rec.IsRenameTombstone() {
			continue
		}
		entries = append(entries, DirentExtended{Name: name, IsDir: rec.IsDirectory(), Size: rec.Size, Ctime: rec.Ctime})
	}
	if err := it.Err(); err != nil {
		return &GetDirentsExtendedReply{Err: apierrors.ToCode(err)}, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &GetDirentsExtendedReply{Err: apierrors.Success, Entries: entries}, nil
}

// MkSymlink implements mk_symlink(path, target_path).
func (h *Handlers) MkSymlink(ctx context.Context, req *MkSymlinkRequest) (*MkSymlinkReply, error) {
	rec := metadata.NewRecord(metadata.TypeSymlink, 0o777)
	rec.TargetPath = req.TargetPath
	err := h.ctx.Engine.PutIfAbsent(ctx, key(req.Path), h.ctx.Codec.Serialize(rec))
	return &MkSymlinkReply{Err: apierrors.ToCode(err)}, nil
}

// WriteData implements write_data(...) -> (err, bytes_written), writing
// only the chunks this daemon's bitset bit marks as assigned, each at
// its slice of the cumulative bulk-in buffer (spec.md §4.5).
func (h *Handlers) WriteData(_ context.Context, req *WriteDataRequest) (*WriteDataReply, error) {
	chunkSize := h.ctx.Chunks.ChunkSize()
	spans := chunklayout.Spans(req.ChunkStartID, req.ChunkN, req.OffsetInFirstChunk, req.TotalBytes, chunkSize)
	assigned := chunklayout.Bitset(req.AssignedChunks)

	var written int64
	for i, sp := range spans {
		if !assigned.Get(i) || sp.Length == 0 {
			continue
		}
		if sp.BufOffset+sp.Length > int64(len(req.BulkIn)) {
			return &WriteDataReply{Err: apierrors.IOErr, BytesWritten: written}, nil
		}
		n, err := h.ctx.Chunks.Write(req.Path, sp.ChunkID, sp.InChunkOff, req.BulkIn[sp.BufOffset:sp.BufOffset+sp.Length])
		written += int64(n)
		if err != nil {
			return &WriteDataReply{Err: apierrors.ToCode(err), BytesWritten: written}, nil
		}
	}
	return &WriteDataReply{Err: apierrors.Success, BytesWritten: written}, nil
}

// ReadData implements read_data(...) -> (err, bytes_read), returning a
// bulk_out buffer the caller's forwarder merges into the overall read
// at the span's bufOffset (spec.md §4.5, §4.6).
func (h *Handlers) ReadData(_ context.Context, req *ReadDataRequest) (*ReadDataReply, error) {
	chunkSize := h.ctx.Chunks.ChunkSize()
	spans := chunklayout.Spans(req.ChunkStartID, req.ChunkN, req.OffsetInFirstChunk, req.TotalBytes, chunkSize)
	assigned := chunklayout.Bitset(req.AssignedChunks)

	bulkOut := make([]byte, req.TotalBytes)
	var read int64
	for i, sp := range spans {
		if !assigned.Get(i) || sp.Length == 0 {
			continue
		}
		n, err := h.ctx.Chunks.Read(req.Path, sp.ChunkID, sp.InChunkOff, bulkOut[sp.BufOffset:sp.BufOffset+sp.Length])
		read += int64(n)
		if err != nil {
			return &ReadDataReply{Err: apierrors.ToCode(err), BytesRead: read, BulkOut: bulkOut}, nil
		}
	}
	return &ReadDataReply{Err: apierrors.Success, BytesRead: read, BulkOut: bulkOut}, nil
}

// TruncData implements trunc_data(path, new_size): truncates the chunk
// spanning new_size in place and drops every chunk strictly beyond it
// up to the file's previous extent (spec.md §4.5, §8).
func (h *Handlers) TruncData(_ context.Context, req *TruncDataRequest) (*TruncDataReply, error) {
	chunkSize := h.ctx.Chunks.ChunkSize()
	boundaryChunk := req.NewSize / chunkSize
	offInBoundary := req.NewSize % chunkSize

	if err := h.ctx.Chunks.TruncateChunk(req.Path, boundaryChunk, offInBoundary); err != nil {
		return &TruncDataReply{Err: apierrors.ToCode(err)}, nil
	}

	lastChunk := (req.OldSize - 1) / chunkSize
	for id := boundaryChunk + 1; id <= lastChunk; id++ {
		if err := h.ctx.Chunks.RemoveChunk(req.Path, id); err != nil {
			return &TruncDataReply{Err: apierrors.ToCode(err)}, nil
		}
	}
	return &TruncDataReply{Err: apierrors.Success}, nil
}

// ChunkStat implements chunk_stat() -> (err, chunk_size, total, free).
func (h *Handlers) ChunkStat(_ context.Context, _ *ChunkStatRequest) (*ChunkStatReply, error) {
	stat, err := h.ctx.Chunks.Stat()
	if err != nil {
		return &ChunkStatReply{Err: apierrors.ToCode(err)}, nil
	}
	return &ChunkStatReply{
		Err:         apierrors.Success,
		ChunkSize:   stat.ChunkSize,
		TotalChunks: stat.TotalChunks,
		FreeChunks:  stat.FreeChunks,
	}, nil
}
