// Package daemonrpc implements the daemon RPC surface (spec.md §4.5,
// component F): request/reply types and handlers wiring kvstore,
// mergeop, chunkstore and the apierrors status space together.
package daemonrpc

import "github.com/gekkofs/gekkofs-go/internal/apierrors"

// FieldMask selects which metadata fields update_metadentry overwrites
// (spec.md §4.5: "Selectively overwrites fields").
type FieldMask uint8

const (
	FieldMode FieldMask = 1 << iota
	FieldAtime
	FieldMtime
	FieldCtime
	FieldLinkCount
)

type CreateRequest struct {
	Path string `json:"path"`
	Mode uint32 `json:"mode"`
}
type CreateReply struct {
	Err apierrors.Code `json:"err"`
}

type StatRequest struct {
	Path string `json:"path"`
}
type StatReply struct {
	Err      apierrors.Code `json:"err"`
	Metadata []byte         `json:"metadata"`
}

type RemoveMetadataRequest struct {
	Path string `json:"path"`
}
type RemoveMetadataReply struct {
	Err  apierrors.Code `json:"err"`
	Size int64          `json:"size"`
	Mode uint32         `json:"mode"`
}

type RemoveDataRequest struct {
	Path string `json:"path"`
}
type RemoveDataReply struct {
	Err apierrors.Code `json:"err"`
}

type DecrSizeRequest struct {
	Path    string `json:"path"`
	NewSize int64  `json:"new_size"`
}
type DecrSizeReply struct {
	Err apierrors.Code `json:"err"`
}

type UpdateMetadentryRequest struct {
	Path      string    `json:"path"`
	FieldMask FieldMask `json:"field_mask"`
	Mode      uint32    `json:"mode"`
	Atime     int64     `json:"atime"`
	Mtime     int64     `json:"mtime"`
	Ctime     int64     `json:"ctime"`
	LinkCount uint32    `json:"link_count"`
}
type UpdateMetadentryReply struct {
	Err apierrors.Code `json:"err"`
}

type UpdateMetadentrySizeRequest struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Offset int64  `json:"offset"`
	Append bool   `json:"append"`
}
type UpdateMetadentrySizeReply struct {
	Err     apierrors.Code `json:"err"`
	NewSize int64          `json:"new_size"`
}

type GetMetadentrySizeRequest struct {
	Path string `json:"path"`
}
type GetMetadentrySizeReply struct {
	Err  apierrors.Code `json:"err"`
	Size int64          `json:"size"`
}

type GetDirentsRequest struct {
	Path string `json:"path"`
}
type Dirent struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}
type GetDirentsReply struct {
	Err     apierrors.Code `json:"err"`
	Entries []Dirent       `json:"entries"`
}

type DirentExtended struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
	Ctime int64  `json:"ctime"`
}
type GetDirentsExtendedReply struct {
	Err     apierrors.Code   `json:"err"`
	Entries []DirentExtended `json:"entries"`
}

type MkSymlinkRequest struct {
	Path       string `json:"path"`
	TargetPath string `json:"target_path"`
}
type MkSymlinkReply struct {
	Err apierrors.Code `json:"err"`
}

// WriteDataRequest's BulkIn simulates the RDMA-exposed user buffer
// (spec.md §1 scopes real RDMA transport out); the forwarder sends the
// caller's whole buffer to every destination, and the daemon picks out
// its assigned chunks' bytes using the cumulative-offset math spec.md
// §4.5 describes.
type WriteDataRequest struct {
	Path               string `json:"path"`
	OffsetInFirstChunk int64  `json:"offset_in_first_chunk"`
	AssignedChunks     []byte `json:"assigned_chunks"` // bitset, bit i = chunk_start_id+i
	ChunkN             int    `json:"chunk_n"`
	ChunkStartID       int64  `json:"chunk_start_id"`
	ChunkEndID         int64  `json:"chunk_end_id"`
	TotalBytes         int64  `json:"total_bytes"`
	BulkIn             []byte `json:"bulk_in"`
}
type WriteDataReply struct {
	Err          apierrors.Code `json:"err"`
	BytesWritten int64          `json:"bytes_written"`
}

type ReadDataRequest struct {
	Path               string `json:"path"`
	OffsetInFirstChunk int64  `json:"offset_in_first_chunk"`
	AssignedChunks     []byte `json:"assigned_chunks"`
	ChunkN             int    `json:"chunk_n"`
	ChunkStartID       int64  `json:"chunk_start_id"`
	ChunkEndID         int64  `json:"chunk_end_id"`
	TotalBytes         int64  `json:"total_bytes"`
}
type ReadDataReply struct {
	Err       apierrors.Code `json:"err"`
	BytesRead int64          `json:"bytes_read"`
	BulkOut   []byte         `json:"bulk_out"`
}

// TruncDataRequest carries OldSize so a daemon can decide which trailing
// chunks to drop entirely versus truncate in place without needing
// cluster-wide knowledge of the file's previous extent (the forwarder
// already knows both sizes when it computes the touched-daemon set,
// spec.md §4.6's Truncate algorithm).
type TruncDataRequest struct {
	Path    string `json:"path"`
	NewSize int64  `json:"new_size"`
	OldSize int64  `json:"old_size"`
}
type TruncDataReply struct {
	Err apierrors.Code `json:"err"`
}

type ChunkStatRequest struct{}
type ChunkStatReply struct {
	Err         apierrors.Code `json:"err"`
	ChunkSize   int64          `json:"chunk_size"`
	TotalChunks int64          `json:"total_chunks"`
	FreeChunks  int64          `json:"free_chunks"`
}
