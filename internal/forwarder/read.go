package forwarder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/chunklayout"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

const maxReadRetries = 3

// Read implements the Read forwarder algorithm (spec.md §4.6): chunks are
// read from replica 0 first; any destination that fails has its chunks
// retried against a random other replica, up to maxReadRetries rounds,
// with every failed replica index added to a caller-tracked set so later
// retries never reselect it (spec.md §7).
func (f *Forwarder) Read(ctx context.Context, path string, buf []byte, offset int64) ReadResult {
	chunkSize := f.ctx.ChunkSize
	size := int64(len(buf))
	chunkStart, chunkN, offInFirst := chunkRange(offset, size, chunkSize)
	if chunkN == 0 {
		return ReadResult{}
	}
	spans := chunklayout.Spans(chunkStart, int(chunkN), offInFirst, size, chunkSize)

	failed := make(map[int]bool)
	pending := make([]int, chunkN) // chunk index -> replica to use
	remaining := make(map[int]bool, chunkN)
	for i := range pending {
		remaining[i] = true
	}

	var totalRead int64
	var lastErr error

	for attempt := 0; attempt <= maxReadRetries && len(remaining) > 0; attempt++ {
		destBitsets := make(map[int]chunklayout.Bitset)
		for i := range remaining {
			replica := pending[i]
			dest := f.ctx.Distributor.LocateChunk(path, chunkStart+int64(i), replica)
			bs, ok := destBitsets[dest]
			if !ok {
				bs = chunklayout.NewBitset(int(chunkN))
				destBitsets[dest] = bs
			}
			bs.Set(i)
		}

		type reply struct {
			dest    int
			bitset  chunklayout.Bitset
			read    int64
			bulkOut []byte
			err     error
		}
		replies := make(chan reply, len(destBitsets))

		g, gctx := errgroup.WithContext(ctx)
		for dest, bitset := range destBitsets {
			dest, bitset := dest, bitset
			g.Go(func() error {
				req := &daemonrpc.ReadDataRequest{
					Path:               path,
					OffsetInFirstChunk: offInFirst,
					AssignedChunks:     bitset,
					ChunkN:             int(chunkN),
					ChunkStartID:       chunkStart,
					ChunkEndID:         chunkStart + chunkN - 1,
					TotalBytes:         size,
				}
				var rep daemonrpc.ReadDataReply
				err := f.ctx.Conns.Invoke(gctx, f.ctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "ReadData"), req, &rep)
				if err == nil {
					err = apierrors.FromCode(rep.Err)
				}
				replies <- reply{dest: dest, bitset: bitset, read: rep.BytesRead, bulkOut: rep.BulkOut, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(replies)

		for rep := range replies {
			if rep.err != nil {
				lastErr = rep.err
				for i := 0; i < int(chunkN); i++ {
					if rep.bitset.Get(i) {
						failed[pending[i]] = true
					}
				}
				continue
			}
			for i := 0; i < int(chunkN); i++ {
				if !rep.bitset.Get(i) {
					continue
				}
				sp := spans[i]
				copy(buf[sp.BufOffset:sp.BufOffset+sp.Length], rep.bulkOut[sp.BufOffset:sp.BufOffset+sp.Length])
				totalRead += sp.Length
				delete(remaining, i)
			}
		}

		if len(remaining) == 0 {
			break
		}
		for i := range remaining {
			r := f.ctx.RandomOtherReplica(failed)
			if r < 0 {
				return ReadResult{Err: fmt.Errorf("forwarder: read: %w", apierrors.ErrIO), BytesRead: totalRead}
			}
			pending[i] = r
		}
	}

	if len(remaining) > 0 {
		if lastErr == nil {
			lastErr = apierrors.ErrIO
		}
		return ReadResult{Err: fmt.Errorf("forwarder: read: %w", lastErr), BytesRead: totalRead}
	}
	return ReadResult{Err: nil, BytesRead: totalRead}
}
