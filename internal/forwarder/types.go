// Package forwarder implements the client-side RPC forwarders (spec.md
// §4.6, component G): Write, Read, Truncate, Stat and root-directory
// listing, each fanning concurrent daemonrpc calls out across the
// destinations internal/distributor resolves and reducing their replies
// back into one client-visible result.
package forwarder

import (
	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

// WriteResult is the reduced outcome of a Write fan-out (spec.md §4.6).
type WriteResult struct {
	Err          error
	BytesWritten int64
}

// ReadResult is the reduced outcome of a Read fan-out.
type ReadResult struct {
	Err       error
	BytesRead int64
}

// StatResult is the reduced outcome of a Stat fan-out.
type StatResult struct {
	Err    error
	Record metadata.Record
	Winner int // global daemon index whose reply won
}

// DirentEntry is one deduplicated entry from a root-directory listing.
type DirentEntry struct {
	Name  string
	IsDir bool
}
