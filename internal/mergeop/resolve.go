package mergeop

import (
	"time"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

// Clock supplies the current time for mtime bumps; a field so tests can
// pin it instead of depending on wall-clock time.
type Clock func() int64

// RealClock is the default Clock, returning Unix seconds.
func RealClock() int64 { return time.Now().Unix() }

// Resolver runs the resolution algorithm of spec.md §4.2 over a base
// record (or none) and a chronologically ordered operand log, publishing
// any append-size reservations into idMap as it goes.
type Resolver struct {
	Codec metadata.Codec
	IDMap *Map
	Clock Clock
}

// NewResolver builds a Resolver. A nil Clock defaults to RealClock.
func NewResolver(codec metadata.Codec, idMap *Map, clock Clock) *Resolver {
	if clock == nil {
		clock = RealClock
	}
	return &Resolver{Codec: codec, IDMap: idMap, Clock: clock}
}

// Resolve folds operands onto an optional base record, in order, per the
// resolution algorithm of spec.md §4.2:
//
//  1. If there is no base and the first operand is not create, the key is
//     malformed (apierrors.ErrCorrupt).
//  2. create is ignored once a record already exists (idempotent).
//  3. increase_size(append) reserves [size, size+payload.size) and
//     publishes the reservation's start offset under its merge id.
//  4. increase_size(non-append) grows size to max(size, offset+size).
//  5. decrease_size sets size unconditionally.
//  6. mtime is touched on every size-changing operand, if enabled.
//
// Resolving a single operand alone is legal (spec.md §4.2 contract).
func (r *Resolver) Resolve(base *metadata.Record, operands []Operand) (metadata.Record, error) {
	var rec metadata.Record
	haveBase := base != nil
	if haveBase {
		rec = *base
	}

	for _, op := range operands {
		if !haveBase {
			if op.Kind != KindCreate {
				return metadata.Record{}, apierrors.ErrCorrupt
			}
			rec = op.CreateRecord
			haveBase = true
			continue
		}

		switch op.Kind {
		case KindCreate:
			// idempotent: a create on an already-existing key is a no-op.
			continue
		case KindIncreaseSize:
			if op.Append {
				startOffset := rec.Size
				rec.Size += op.Size
				if r.IDMap != nil {
					r.IDMap.Publish(op.MergeID, startOffset)
				}
			} else {
				if grown := op.Offset + op.Size; grown > rec.Size {
					rec.Size = grown
				}
			}
			r.touchMtime(&rec)
		case KindDecreaseSize:
			rec.Size = op.NewSize
			r.touchMtime(&rec)
		default:
			return metadata.Record{}, apierrors.ErrCorrupt
		}
	}

	return rec, nil
}

func (r *Resolver) touchMtime(rec *metadata.Record) {
	if !r.Codec.Fields.Mtime {
		return
	}
	rec.Mtime = r.Clock()
}
