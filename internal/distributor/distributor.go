// Package distributor implements the client-side placement logic
// (spec.md §4.4, component E): path → instance, then instance-local
// hashing → daemon, for both metadata keys and chunks.
package distributor

import (
	"hash/crc32"
	"strconv"
	"sync"
)

// HostTable is the federated placement table: a vector of per-instance
// daemon counts H[0..N] and per-instance priorities P[0..N] (spec.md
// §4.4). Built by internal/hostmap from the registry's merged view.
type HostTable struct {
	Sizes      []int // H[i]: daemon count of instance i
	Priorities []int // P[i]: lower number = higher priority
}

// DaemonCount is the federated table's total daemon count.
func (t HostTable) DaemonCount() int {
	n := 0
	for _, s := range t.Sizes {
		n += s
	}
	return n
}

// instanceOffset returns Σ_{k<i} H[k], the first global daemon index
// belonging to instance i.
func (t HostTable) instanceOffset(i int) int {
	off := 0
	for k := 0; k < i; k++ {
		off += t.Sizes[k]
	}
	return off
}

// Distributor resolves a path (or a path+chunk_id) to a global daemon
// index, per spec.md §4.4's locate_* functions.
type Distributor struct {
	table HostTable
	local int // L: local-instance index

	mu    sync.RWMutex
	cache map[string]int // C: path -> instance
}

// New builds a Distributor over table, with local as this process's own
// instance index (spec.md §4.4: "a local-instance index L").
func New(table HostTable, local int) *Distributor {
	return &Distributor{table: table, local: local, cache: make(map[string]int)}
}

// LocateInstance returns the GekkoFS instance owning path: the cached
// instance if the path cache has an entry, else the local instance.
func (d *Distributor) LocateInstance(path string) int {
	d.mu.RLock()
	i, ok := d.cache[path]
	d.mu.RUnlock()
	if ok {
		return i
	}
	return d.local
}

// CachePath records that path's metadata lives on instance i, the first
// time a stat() against that instance succeeds (spec.md §4.4: "if
// multiple instances reply, the instance with the smallest priority
// value wins"). Callers resolve the race across instances themselves
// and call this once with the winner.
func (d *Distributor) CachePath(path string, instance int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.cache[path]; ok {
		if d.table.Priorities[cur] <= d.table.Priorities[instance] {
			return
		}
	}
	d.cache[path] = instance
}

// LocateMetadata resolves the global daemon index owning path's
// metadata key for the given replica (spec.md §4.4).
func (d *Distributor) LocateMetadata(path string, replica int) int {
	i := d.LocateInstance(path)
	return d.resolve(i, replica, hashString(path))
}

// InstanceCount returns the number of federated instances in the host
// table, used by the Stat forwarder to decide whether to skip the
// multi-instance fan-out (spec.md §4.6: "When the host table comprises
// a single instance, send one RPC").
func (d *Distributor) InstanceCount() int {
	return len(d.table.Sizes)
}

// Priority returns instance i's configured priority (lower wins).
func (d *Distributor) Priority(instance int) int {
	return d.table.Priorities[instance]
}

// LocateMetadataInInstance resolves path's metadata daemon within a
// specific instance, bypassing the path cache/local fallback — used by
// the Stat forwarder's multi-instance fan-out, which must query every
// instance regardless of which one the cache currently favors.
func (d *Distributor) LocateMetadataInInstance(path string, instance, replica int) int {
	return d.resolve(instance, replica, hashString(path))
}

// LocateChunk resolves the global daemon index owning (path, chunk_id)
// for the given replica (spec.md §4.4).
func (d *Distributor) LocateChunk(path string, chunkID int64, replica int) int {
	i := d.LocateInstance(path)
	return d.resolve(i, replica, hashChunk(path, chunkID))
}

func (d *Distributor) resolve(instance, replica int, h uint32) int {
	size := d.table.Sizes[instance]
	offset := (int(h) + replica) % size
	return d.table.instanceOffset(instance) + offset
}

// LocateDirectory returns the half-open [start, end) global daemon index
// range to fan a directory operation out to (spec.md §4.4):
// the whole federated table for "/", the owning instance's range if the
// path cache knows it, or the whole table otherwise.
func (d *Distributor) LocateDirectory(path string) (start, end int) {
	if path == "/" {
		return 0, d.table.DaemonCount()
	}
	d.mu.RLock()
	i, ok := d.cache[path]
	d.mu.RUnlock()
	if !ok {
		return 0, d.table.DaemonCount()
	}
	start = d.table.instanceOffset(i)
	return start, start + d.table.Sizes[i]
}

// hashString is the deterministic, client/daemon-shared placement hash
// for metadata keys (spec.md §4.4: "any string hash with good
// distribution and no adversarial-input requirement is acceptable").
// Grounded on cubefs-inodedb's own use of crc32 for key sharding
// (shard/catalog/shard.go:getKeyLock).
func hashString(s string) uint32 {
	return crc32.ChecksumIEEE([]byte(s))
}

// hashChunk hashes path and chunk_id together, per spec.md §4.4:
// "hash(path || chunk_id) in place of hash(path)".
func hashChunk(path string, chunkID int64) uint32 {
	return crc32.ChecksumIEEE([]byte(path + "||" + strconv.FormatInt(chunkID, 10)))
}
