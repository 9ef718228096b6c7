package forwarder

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

// Truncate implements the Truncate forwarder algorithm (spec.md §4.6):
// every daemon that could own a chunk in the chunk-aligned
// [new_size, current_size) range, across every replica, gets a
// trunc_data RPC; the first error wins.
func (f *Forwarder) Truncate(ctx context.Context, path string, currentSize, newSize int64) error {
	if newSize >= currentSize {
		return nil
	}
	chunkSize := f.ctx.ChunkSize
	firstChunk := newSize / chunkSize
	lastChunk := (currentSize - 1) / chunkSize

	maxReplica := 0
	if f.ctx.Replicas > 0 {
		maxReplica = f.ctx.Replicas
	}

	dests := make(map[int]bool)
	for id := firstChunk; id <= lastChunk; id++ {
		for r := 0; r <= maxReplica; r++ {
			dests[f.ctx.Distributor.LocateChunk(path, id, r)] = true
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for dest := range dests {
		dest := dest
		g.Go(func() error {
			req := &daemonrpc.TruncDataRequest{Path: path, NewSize: newSize, OldSize: currentSize}
			var rep daemonrpc.TruncDataReply
			if err := f.ctx.Conns.Invoke(gctx, f.ctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "TruncData"), req, &rep); err != nil {
				return err
			}
			return apierrors.FromCode(rep.Err)
		})
	}
	return g.Wait()
}
