// Package kvstore defines the minimal key/value back-end abstraction of
// spec.md §4.1 (component B) and the merge-operator engine (component C)
// that sits on top of it. The real embedded engine (RocksDB/Parallax) is
// out of scope per spec.md §1 ("used only through the abstract back-end
// interface"); per spec.md §9's design note it is modeled as a sum type
// with variants {RocksDB, Parallax} selected at startup, with no runtime
// polymorphism required — so this package ships one concrete in-process
// RawStore and two Engine implementations (the two shapes spec.md §4.2
// explicitly allows), rather than cgo bindings to an external engine.
//
// Layering follows the teacher's (cubefs-inodedb's common/kvstore) shape:
// RawStore is the dumb byte-level back-end; Engine composes a RawStore
// with the merge-operator resolution machinery from internal/mergeop.
package kvstore

import (
	"context"
	"fmt"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
)

// The sentinels wrap their apierrors counterparts so apierrors.ToCode
// reports them as NotFound/Exists.
var (
	ErrNotFound = fmt.Errorf("kvstore: key not found: %w", apierrors.ErrNotFound)
	ErrExists   = fmt.Errorf("kvstore: key already exists: %w", apierrors.ErrExists)
)

// Iterator walks keys under a prefix in lexicographic order with stable
// snapshot semantics for the scan's duration (spec.md §4.1).
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// RawStore is the dumb byte-level back-end: no merge operator, no
// domain awareness, just bytes in and bytes out. Both Engine
// implementations are built on top of one of these.
type RawStore interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	PutIfAbsent(ctx context.Context, key, value []byte) error
	Remove(ctx context.Context, key []byte) error
	Exists(ctx context.Context, key []byte) (bool, error)
	Update(ctx context.Context, oldKey, newKey, value []byte) error
	ScanPrefix(ctx context.Context, prefix []byte) (Iterator, error)
	Close() error
}

// Engine is the full surface spec.md §4.1 lists, including the
// increase_size/decrease_size convenience wrappers over the merge
// operator (spec.md §4.2, component C).
type Engine interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Put(ctx context.Context, key, value []byte) error
	PutIfAbsent(ctx context.Context, key, value []byte) error
	Remove(ctx context.Context, key []byte) error
	Exists(ctx context.Context, key []byte) (bool, error)
	Update(ctx context.Context, oldKey, newKey, value []byte) error
	// Merge appends a raw encoded mergeop.Operand to key's operand log.
	Merge(ctx context.Context, key, operand []byte) error
	ScanPrefix(ctx context.Context, prefix []byte) (Iterator, error)
	// IncreaseSize submits an increase_size operand and returns the
	// offset the caller should write at (spec.md §4.1, §4.2).
	IncreaseSize(ctx context.Context, key []byte, ioSize, offset int64, appendMode bool) (chosenOffset int64, err error)
	// DecreaseSize submits a decrease_size operand.
	DecreaseSize(ctx context.Context, key []byte, newSize int64) error
	Close() error
}
