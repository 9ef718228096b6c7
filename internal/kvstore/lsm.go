package kvstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gekkofs/gekkofs-go/internal/mergeop"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

// logSuffix isolates each key's operand log from its resolved base value
// in the underlying RawStore's flat namespace.
const logSuffix = "\x00mergelog"

// LSMEngine is the first of the two engine shapes spec.md §4.2 allows: a
// log-structured merge engine with a built-in merge-operator hook.
// merge() appends to a key's operand log without reading the current
// value; resolution happens lazily, on the next Get, and the resolved
// value is written back (compaction), so the log never grows past one
// pending batch. This mirrors how a real LSM engine's merge operator
// folds operands at compaction or read time rather than at write time.
type LSMEngine struct {
	raw      RawStore
	codec    metadata.Codec
	resolver *mergeop.Resolver
	idAlloc  *mergeop.IDAllocator

	mu sync.Mutex // guards the read-resolve-compact-write sequence per engine
}

// NewLSMEngine builds an Engine over raw using resolver for operand
// folding. idAlloc mints merge ids for append-size submissions.
func NewLSMEngine(raw RawStore, codec metadata.Codec, resolver *mergeop.Resolver, idAlloc *mergeop.IDAllocator) *LSMEngine {
	return &LSMEngine{raw: raw, codec: codec, resolver: resolver, idAlloc: idAlloc}
}

// Get returns the stored value unchanged when key has no pending operand
// log, and otherwise folds the log and returns the resolved record.
func (e *LSMEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	logKey := append(append([]byte(nil), key...), logSuffix...)
	e.mu.Lock()
	pending, err := e.raw.Exists(ctx, logKey)
	if err == nil && !pending {
		value, err := e.raw.Get(ctx, key)
		e.mu.Unlock()
		return value, err
	}
	e.mu.Unlock()
	rec, err := e.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.codec.Serialize(rec), nil
}

// resolve reads the base value and pending operand log for key, folds
// them, writes the resolved record back as the new base, and clears the
// log (compaction). Returns ErrNotFound if the key has never been
// created.
func (e *LSMEngine) resolve(ctx context.Context, key []byte) (metadata.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var base *metadata.Record
	if raw, err := e.raw.Get(ctx, key); err == nil {
		rec, err := e.codec.Parse(raw)
		if err != nil {
			return metadata.Record{}, fmt.Errorf("kvstore: parsing base record for %q: %w", key, err)
		}
		base = &rec
	} else if err != ErrNotFound {
		return metadata.Record{}, err
	}

	logKey := append(append([]byte(nil), key...), logSuffix...)
	rawLog, err := e.raw.Get(ctx, logKey)
	if err != nil && err != ErrNotFound {
		return metadata.Record{}, err
	}
	operands, err := decodeLog(rawLog, e.codec)
	if err != nil {
		return metadata.Record{}, err
	}

	if base == nil && len(operands) == 0 {
		return metadata.Record{}, ErrNotFound
	}

	resolved, err := e.resolver.Resolve(base, operands)
	if err != nil {
		return metadata.Record{}, err
	}

	if err := e.raw.Put(ctx, key, e.codec.Serialize(resolved)); err != nil {
		return metadata.Record{}, err
	}
	if len(operands) > 0 {
		if err := e.raw.Remove(ctx, logKey); err != nil && err != ErrNotFound {
			return metadata.Record{}, err
		}
	}
	return resolved, nil
}

func (e *LSMEngine) Put(ctx context.Context, key, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raw.Put(ctx, key, value)
}

func (e *LSMEngine) PutIfAbsent(ctx context.Context, key, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raw.PutIfAbsent(ctx, key, value)
}

func (e *LSMEngine) Remove(ctx context.Context, key []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	logKey := append(append([]byte(nil), key...), logSuffix...)
	_ = e.raw.Remove(ctx, logKey)
	return e.raw.Remove(ctx, key)
}

func (e *LSMEngine) Exists(ctx context.Context, key []byte) (bool, error) {
	return e.raw.Exists(ctx, key)
}

func (e *LSMEngine) Update(ctx context.Context, oldKey, newKey, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	oldLogKey := append(append([]byte(nil), oldKey...), logSuffix...)
	_ = e.raw.Remove(ctx, oldLogKey)
	return e.raw.Update(ctx, oldKey, newKey, value)
}

// Merge appends operand to key's pending operand log without reading or
// resolving the current value; it holds the engine mutex only for the
// log append itself.
func (e *LSMEngine) Merge(ctx context.Context, key, operand []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	logKey := append(append([]byte(nil), key...), logSuffix...)
	existing, err := e.raw.Get(ctx, logKey)
	if err != nil && err != ErrNotFound {
		return err
	}
	return e.raw.Put(ctx, logKey, appendFramed(existing, operand))
}

func (e *LSMEngine) ScanPrefix(ctx context.Context, prefix []byte) (Iterator, error) {
	return e.raw.ScanPrefix(ctx, prefix)
}

func (e *LSMEngine) IncreaseSize(ctx context.Context, key []byte, ioSize, offset int64, appendMode bool) (int64, error) {
	mergeID := e.idAlloc.Next()
	op := mergeop.IncreaseSizeOperand(ioSize, offset, appendMode, mergeID)
	if err := e.Merge(ctx, key, op.Encode(e.codec)); err != nil {
		return 0, err
	}
	if !appendMode {
		return offset, nil
	}
	if _, err := e.resolve(ctx, key); err != nil {
		return 0, err
	}
	chosen, ok := e.resolver.IDMap.TakeAndErase(mergeID)
	if !ok {
		return 0, fmt.Errorf("kvstore: merge id %d was not published by resolution", mergeID)
	}
	return chosen, nil
}

func (e *LSMEngine) DecreaseSize(ctx context.Context, key []byte, newSize int64) error {
	op := mergeop.DecreaseSizeOperand(newSize)
	return e.Merge(ctx, key, op.Encode(e.codec))
}

func (e *LSMEngine) Close() error { return e.raw.Close() }

// appendFramed adds a 4-byte length-prefixed frame to an existing framed
// log blob, so that serialized operand payloads (which may embed
// arbitrary path bytes) never need escaping.
func appendFramed(existing, frame []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	out := make([]byte, 0, len(existing)+4+len(frame))
	out = append(out, existing...)
	out = append(out, lenBuf[:]...)
	out = append(out, frame...)
	return out
}

func decodeLog(raw []byte, codec metadata.Codec) ([]mergeop.Operand, error) {
	var operands []mergeop.Operand
	for len(raw) > 0 {
		if len(raw) < 4 {
			return nil, fmt.Errorf("kvstore: truncated operand log frame header")
		}
		n := binary.BigEndian.Uint32(raw[:4])
		raw = raw[4:]
		if uint32(len(raw)) < n {
			return nil, fmt.Errorf("kvstore: truncated operand log frame body")
		}
		op, err := mergeop.Decode(raw[:n], codec)
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
		raw = raw[n:]
	}
	return operands, nil
}
