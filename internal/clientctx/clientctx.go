// Package clientctx holds the per-process state one GekkoFS client
// needs to forward intercepted calls (spec.md §9's design note:
// explicit context objects in place of process-global state).
package clientctx

import (
	"golang.org/x/exp/rand"

	"github.com/gekkofs/gekkofs-go/internal/distributor"
	"github.com/gekkofs/gekkofs-go/internal/hostmap"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

// ClientContext bundles the distributor, the daemon address table, a
// pooled transport, and the seeded PRNG replica retry draws from
// (spec.md §7: "the implementation must seed a PRNG at startup when
// R>0"), grounded on the teacher's own golang.org/x/exp/rand use in
// internal/cluster_service/raft_cluster_service.go.
type ClientContext struct {
	Distributor *distributor.Distributor
	Daemons     []hostmap.Daemon
	Conns       *transport.ConnPool
	Codec       metadata.Codec
	Log         logging.LogService

	Replicas  int   // R: configured replica count
	ChunkSize int64 // learned once from chunk_stat() at mount time (spec.md §4.5)
	rng       *rand.Rand
}

// New builds a ClientContext. seed should come from a process-startup
// entropy source; replicas is R from spec.md §7; chunkSize is learned
// from a chunk_stat() call against any daemon at mount time.
func New(dist *distributor.Distributor, daemons []hostmap.Daemon, conns *transport.ConnPool, codec metadata.Codec, log logging.LogService, replicas int, chunkSize int64, seed uint64) *ClientContext {
	return &ClientContext{
		Distributor: dist,
		Daemons:     daemons,
		Conns:       conns,
		Codec:       codec,
		Log:         log,
		Replicas:    replicas,
		ChunkSize:   chunkSize,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Addr returns the dialable transport URI for a global daemon index.
func (c *ClientContext) Addr(globalDaemonIdx int) string {
	return c.Daemons[globalDaemonIdx].URI
}

// RandomOtherReplica picks a uniform random replica index in [1,R],
// excluding any already in failed, for a read retry (spec.md §7:
// "Replica selection on retry uses a uniform random choice among
// [1..R]"). Returns -1 if every replica has already failed.
func (c *ClientContext) RandomOtherReplica(failed map[int]bool) int {
	var candidates []int
	for r := 1; r <= c.Replicas; r++ {
		if !failed[r] {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[c.rng.Intn(len(candidates))]
}
