// Package daemonctx holds the per-process state one GekkoFS daemon
// needs to serve RPCs (spec.md §9's design note: explicit context
// objects in place of the original's process-global state). A
// DaemonContext owns persistent engine handles for the process
// lifetime (spec.md §5: "Each daemon maintains persistent engine
// handles (KV, storage, RPC) for the process lifetime").
package daemonctx

import (
	"github.com/gekkofs/gekkofs-go/internal/chunkstore"
	"github.com/gekkofs/gekkofs-go/internal/kvstore"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

// DaemonContext bundles one daemon's engine (B+C), chunk storage (D)
// and identity.
type DaemonContext struct {
	Engine     kvstore.Engine
	Chunks     *chunkstore.Store
	Codec      metadata.Codec
	Log        logging.LogService
	DaemonIdx  int  // this daemon's global index in the federated host table
	ChunkZeroCoLocated bool // config flag: remove_metadata also drops local chunk 0 (spec.md §4.5)
}

// New builds a DaemonContext. engine and chunks must already be
// constructed with matching codecs (kvstore.NewLSMEngine/NewLockEngine,
// chunkstore.New).
func New(engine kvstore.Engine, chunks *chunkstore.Store, codec metadata.Codec, log logging.LogService, daemonIdx int, chunkZeroCoLocated bool) *DaemonContext {
	return &DaemonContext{
		Engine:             engine,
		Chunks:             chunks,
		Codec:              codec,
		Log:                log,
		DaemonIdx:          daemonIdx,
		ChunkZeroCoLocated: chunkZeroCoLocated,
	}
}
