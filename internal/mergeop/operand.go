// Package mergeop implements the merge-operator engine (spec.md §4.2,
// component C): the operand taxonomy, the merge-id allocation map, and the
// resolution algorithm that folds a chronological operand log into an
// up-to-date metadata.Record without per-key locks on the submission path.
package mergeop

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

// Kind is the one-byte operand tag (spec.md §4.2: "one byte tag, followed
// by ':' separator, followed by kind-specific payload").
type Kind byte

const (
	KindCreate       Kind = 'c'
	KindIncreaseSize Kind = 'i'
	KindDecreaseSize Kind = 'd'
)

const kindSeparator = ':'

// MergeID is the 16-bit tag linking an append-size operand to its
// submitter (spec.md glossary, §4.2).
type MergeID uint16

// Operand is a single entry in a key's operand log.
type Operand struct {
	Kind Kind

	// Create
	CreateRecord metadata.Record

	// IncreaseSize
	Size    int64
	Offset  int64 // explicit offset field: this implementation's choice for the §4.2/§9 open question, see DESIGN.md
	Append  bool
	MergeID MergeID

	// DecreaseSize
	NewSize int64
}

// CreateOperand builds the operand submitted for a key's first write.
func CreateOperand(rec metadata.Record) Operand {
	return Operand{Kind: KindCreate, CreateRecord: rec}
}

// IncreaseSizeOperand builds an append or positioned-extend operand.
// When append is true, mergeID must be a value obtained from
// IDAllocator.Next; the reserved interval's start offset is published under
// that id once this operand resolves (see Resolver.Resolve / Map).
func IncreaseSizeOperand(size, offset int64, append bool, mergeID MergeID) Operand {
	return Operand{Kind: KindIncreaseSize, Size: size, Offset: offset, Append: append, MergeID: mergeID}
}

// DecreaseSizeOperand builds the operand submitted by truncate-down.
func DecreaseSizeOperand(newSize int64) Operand {
	return Operand{Kind: KindDecreaseSize, NewSize: newSize}
}

// Encode serializes an operand to the wire format persisted by the KV
// back-end's merge() call (spec.md §4.1, §6).
func (o Operand) Encode(codec metadata.Codec) []byte {
	switch o.Kind {
	case KindCreate:
		payload := codec.Serialize(o.CreateRecord)
		return append([]byte{byte(KindCreate), kindSeparator}, payload...)
	case KindIncreaseSize:
		appendFlag := "0"
		if o.Append {
			appendFlag = "1"
		}
		fields := []string{
			strconv.FormatInt(o.Size, 10),
			strconv.FormatInt(o.Offset, 10),
			appendFlag,
			strconv.FormatUint(uint64(o.MergeID), 10),
		}
		return append([]byte{byte(KindIncreaseSize), kindSeparator}, []byte(strings.Join(fields, ","))...)
	case KindDecreaseSize:
		return append([]byte{byte(KindDecreaseSize), kindSeparator}, []byte(strconv.FormatInt(o.NewSize, 10))...)
	default:
		return nil
	}
}

// Decode parses a single operand previously produced by Encode.
func Decode(data []byte, codec metadata.Codec) (Operand, error) {
	if len(data) < 2 || data[1] != kindSeparator {
		return Operand{}, fmt.Errorf("mergeop: malformed operand header: %q", data)
	}
	kind := Kind(data[0])
	payload := data[2:]

	switch kind {
	case KindCreate:
		rec, err := codec.Parse(payload)
		if err != nil {
			return Operand{}, fmt.Errorf("mergeop: decoding create payload: %w", err)
		}
		return CreateOperand(rec), nil
	case KindIncreaseSize:
		fields := strings.Split(string(payload), ",")
		if len(fields) != 4 {
			return Operand{}, fmt.Errorf("mergeop: decoding increase_size payload %q: want 4 fields, got %d", payload, len(fields))
		}
		size, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("mergeop: decoding increase_size size: %w", err)
		}
		offset, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("mergeop: decoding increase_size offset: %w", err)
		}
		id, err := strconv.ParseUint(fields[3], 10, 16)
		if err != nil {
			return Operand{}, fmt.Errorf("mergeop: decoding increase_size merge id: %w", err)
		}
		return IncreaseSizeOperand(size, offset, fields[2] == "1", MergeID(id)), nil
	case KindDecreaseSize:
		newSize, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("mergeop: decoding decrease_size payload %q: %w", payload, err)
		}
		return DecreaseSizeOperand(newSize), nil
	default:
		return Operand{}, fmt.Errorf("mergeop: unknown operand kind %q", kind)
	}
}
