package forwarder

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

// ListRoot implements "Dirents of /" (spec.md §4.6): query every daemon
// in the federated table and deduplicate by (name, file-type), since
// any daemon holding an entry under "/" is an authoritative source for
// it and the same name can't legitimately collide across instances.
func (f *Forwarder) ListRoot(ctx context.Context) ([]DirentEntry, error) {
	_, end := f.ctx.Distributor.LocateDirectory("/")

	type reply struct {
		entries []daemonrpc.Dirent
		err     error
	}
	replies := make(chan reply, end)

	g, gctx := errgroup.WithContext(ctx)
	for dest := 0; dest < end; dest++ {
		dest := dest
		g.Go(func() error {
			req := &daemonrpc.GetDirentsRequest{Path: "/"}
			var rep daemonrpc.GetDirentsReply
			err := f.ctx.Conns.Invoke(gctx, f.ctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "GetDirents"), req, &rep)
			if err == nil {
				err = apierrors.FromCode(rep.Err)
			}
			replies <- reply{entries: rep.Entries, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(replies)

	seen := make(map[dirKey]bool)
	var out []DirentEntry
	var lastErr error
	for rep := range replies {
		if rep.err != nil {
			lastErr = rep.err
			continue
		}
		for _, e := range rep.entries {
			k := dirKey{name: e.Name, isDir: e.IsDir}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, DirentEntry{Name: e.Name, IsDir: e.IsDir})
		}
	}
	if out == nil && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

type dirKey struct {
	name  string
	isDir bool
}
