package forwarder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/chunklayout"
	"github.com/gekkofs/gekkofs-go/internal/clientctx"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

// chunkRange computes (chunk_start, chunk_n, offset_in_first_chunk)
// for a [offset, offset+size) byte range, per spec.md §4.6 step 1.
func chunkRange(offset, size, chunkSize int64) (start, chunkN int64, offInFirst int64) {
	if size == 0 {
		return offset / chunkSize, 0, offset % chunkSize
	}
	start = offset / chunkSize
	end := (offset + size - 1) / chunkSize
	return start, end - start + 1, offset % chunkSize
}

// Forwarder implements the client-side RPC surface (spec.md §4.6,
// component G) over a clientctx.ClientContext.
type Forwarder struct {
	ctx *clientctx.ClientContext
}

// New builds a Forwarder bound to ctx.
func New(ctx *clientctx.ClientContext) *Forwarder {
	return &Forwarder{ctx: ctx}
}

// Write implements the Write forwarder algorithm: resolve destinations
// for every (chunk, replica) pair, fan one WriteData RPC out per
// destination, and reduce the replies per spec.md §4.6's R=0/R>0 rules.
func (f *Forwarder) Write(ctx context.Context, path string, buf []byte, offset int64) WriteResult {
	chunkSize := f.ctx.ChunkSize
	size := int64(len(buf))
	chunkStart, chunkN, offInFirst := chunkRange(offset, size, chunkSize)
	if chunkN == 0 {
		return WriteResult{}
	}

	// destBitsets[dest] marks which of the chunkN chunks in this range
	// dest is responsible for, across every replica.
	destBitsets := make(map[int]chunklayout.Bitset)
	maxReplica := 0
	if f.ctx.Replicas > 0 {
		maxReplica = f.ctx.Replicas
	}
	for i := int64(0); i < chunkN; i++ {
		for r := 0; r <= maxReplica; r++ {
			dest := f.ctx.Distributor.LocateChunk(path, chunkStart+i, r)
			bs, ok := destBitsets[dest]
			if !ok {
				bs = chunklayout.NewBitset(int(chunkN))
				destBitsets[dest] = bs
			}
			bs.Set(int(i))
		}
	}

	type reply struct {
		dest    int
		bitset  chunklayout.Bitset
		written int64
		err     error
	}
	replies := make(chan reply, len(destBitsets))

	g, gctx := errgroup.WithContext(ctx)
	for dest, bitset := range destBitsets {
		dest, bitset := dest, bitset
		g.Go(func() error {
			req := &daemonrpc.WriteDataRequest{
				Path:               path,
				OffsetInFirstChunk: offInFirst,
				AssignedChunks:     bitset,
				ChunkN:             int(chunkN),
				ChunkStartID:       chunkStart,
				ChunkEndID:         chunkStart + chunkN - 1,
				TotalBytes:         size,
				BulkIn:             buf,
			}
			var rep daemonrpc.WriteDataReply
			err := f.ctx.Conns.Invoke(gctx, f.ctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "WriteData"), req, &rep)
			if err == nil {
				err = apierrors.FromCode(rep.Err)
			}
			replies <- reply{dest: dest, bitset: bitset, written: rep.BytesWritten, err: err}
			return nil // errors are reduced below, not propagated through errgroup
		})
	}
	_ = g.Wait()
	close(replies)

	var firstErr error
	var totalWritten int64
	covered := chunklayout.NewBitset(int(chunkN))
	for rep := range replies {
		totalWritten += rep.written
		if rep.err != nil {
			if firstErr == nil {
				firstErr = rep.err
			}
			continue
		}
		for i := 0; i < int(chunkN); i++ {
			if rep.bitset.Get(i) {
				covered.Set(i)
			}
		}
	}

	if maxReplica == 0 {
		return WriteResult{Err: firstErr, BytesWritten: totalWritten}
	}

	for i := 0; i < int(chunkN); i++ {
		if !covered.Get(i) {
			return WriteResult{Err: fmt.Errorf("forwarder: write: %w", apierrors.ErrIO)}
		}
	}
	return WriteResult{Err: nil, BytesWritten: size}
}
