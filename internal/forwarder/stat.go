package forwarder

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

// Stat implements the Stat forwarder algorithm (spec.md §4.6): a single
// RPC when the federated table is one instance, otherwise a fan-out
// across every instance with the lowest-priority responder winning.
// On success it updates the distributor's path cache with the winner.
func (f *Forwarder) Stat(ctx context.Context, path string) StatResult {
	n := f.ctx.Distributor.InstanceCount()
	if n <= 1 {
		dest := f.ctx.Distributor.LocateMetadata(path, 0)
		rec, err := f.statOne(ctx, path, dest)
		if err != nil {
			return StatResult{Err: err}
		}
		f.ctx.Distributor.CachePath(path, 0)
		return StatResult{Record: rec, Winner: dest}
	}

	type reply struct {
		instance int
		dest     int
		rec      metadata.Record
		err      error
	}
	replies := make(chan reply, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			dest := f.ctx.Distributor.LocateMetadataInInstance(path, i, 0)
			rec, err := f.statOne(gctx, path, dest)
			replies <- reply{instance: i, dest: dest, rec: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(replies)

	bestInstance, bestDest, bestPriority := -1, -1, 0
	var bestRec metadata.Record
	sawNonNotFoundErr := false
	for rep := range replies {
		if rep.err != nil {
			if rep.err != apierrors.ErrNotFound {
				sawNonNotFoundErr = true
			}
			continue
		}
		prio := f.ctx.Distributor.Priority(rep.instance)
		if bestInstance == -1 || prio < bestPriority {
			bestInstance, bestDest, bestPriority, bestRec = rep.instance, rep.dest, prio, rep.rec
		}
	}
	if bestInstance == -1 {
		if sawNonNotFoundErr {
			return StatResult{Err: apierrors.ErrIO}
		}
		return StatResult{Err: apierrors.ErrNotFound}
	}
	f.ctx.Distributor.CachePath(path, bestInstance)
	return StatResult{Record: bestRec, Winner: bestDest}
}

func (f *Forwarder) statOne(ctx context.Context, path string, dest int) (metadata.Record, error) {
	req := &daemonrpc.StatRequest{Path: path}
	var rep daemonrpc.StatReply
	if err := f.ctx.Conns.Invoke(ctx, f.ctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "Stat"), req, &rep); err != nil {
		return metadata.Record{}, err
	}
	if err := apierrors.FromCode(rep.Err); err != nil {
		return metadata.Record{}, err
	}
	return f.ctx.Codec.Parse(rep.Metadata)
}
