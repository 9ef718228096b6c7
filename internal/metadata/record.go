// Package metadata implements the fixed-schema metadata record and its
// textual serialization (spec.md §3, component A).
package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// separator is the single-byte token delimiter spec.md §6 mandates.
const separator = '|'

// FileType is encoded in the top bits of Mode; exactly one is set per record.
type FileType uint8

const (
	TypeRegular FileType = iota
	TypeDirectory
	TypeSymlink
)

// RenameTombstoneBlocks is the sentinel value of Blocks that marks a
// rename tombstone (spec.md §3 invariants): such a record must be
// excluded from directory listings.
const RenameTombstoneBlocks = int64(-1)

const fileTypeShift = 24

// Record is the per-path metadata record (spec.md §3). Field order here
// mirrors the mandated wire order: mode, size, atime, mtime, ctime,
// link_count, blocks, target_path, rename_path.
type Record struct {
	Mode       uint32
	Size       int64
	Atime      int64
	Mtime      int64
	Ctime      int64
	LinkCount  uint32
	Blocks     int64
	TargetPath string
	RenamePath string
}

// NewRecord builds a record of the given type with the given permission
// bits (low 12 bits of mode), zeroed timestamps and sizes.
func NewRecord(ft FileType, perm uint32) Record {
	return Record{Mode: encodeMode(ft, perm)}
}

func encodeMode(ft FileType, perm uint32) uint32 {
	return uint32(ft)<<fileTypeShift | (perm & 0xFFF)
}

// FileType extracts the file-type bits of Mode.
func (r Record) FileType() FileType { return FileType(r.Mode >> fileTypeShift) }

func (r Record) IsRegular() bool   { return r.FileType() == TypeRegular }
func (r Record) IsDirectory() bool { return r.FileType() == TypeDirectory }
func (r Record) IsSymlink() bool   { return r.FileType() == TypeSymlink }

// Permissions extracts the permission bits of Mode.
func (r Record) Permissions() uint32 { return r.Mode & 0xFFF }

// IsRenameTombstone reports whether this record is a tombstone pointer
// left behind by a rename (spec.md §3 invariant on Blocks == -1).
func (r Record) IsRenameTombstone() bool { return r.Blocks == RenameTombstoneBlocks }

// Validate enforces the invariants spec.md §3 lists.
func (r Record) Validate() error {
	if r.Size < 0 {
		return fmt.Errorf("metadata: size must be >= 0, got %d", r.Size)
	}
	if r.TargetPath != "" && !r.IsSymlink() {
		return fmt.Errorf("metadata: target_path set on non-symlink record")
	}
	if r.IsDirectory() && r.Size != 0 {
		return fmt.Errorf("metadata: directory record has nonzero size")
	}
	return nil
}

// FieldSet selects which of the independently-optional fields (spec.md §3:
// atime, mtime, ctime, link_count) this deployment's serializer carries.
// In the original these are compile-time build flags; here they are a
// startup-time configuration shared by every process in a job so that the
// wire format stays self-consistent without being embedded per-record.
type FieldSet struct {
	Atime     bool
	Mtime     bool
	Ctime     bool
	LinkCount bool
}

// AllFields is the default, fully-featured field set.
var AllFields = FieldSet{Atime: true, Mtime: true, Ctime: true, LinkCount: true}

// Codec serializes/parses Records under a fixed FieldSet.
type Codec struct {
	Fields FieldSet
}

// NewCodec builds a Codec for the given field set.
func NewCodec(fields FieldSet) Codec { return Codec{Fields: fields} }

// Serialize encodes r into the '|'-separated textual wire format. The
// first two tokens (mode, size) are always present; optional fields are
// included per c.Fields; the two trailing path fields are dropped off the
// end of the string, not written as empty tokens, when both they and
// everything after them are empty (spec.md §6: "the last token's absence
// is implied by end-of-string, not by a trailing separator").
func (c Codec) Serialize(r Record) []byte {
	tokens := make([]string, 0, 9)
	tokens = append(tokens, strconv.FormatUint(uint64(r.Mode), 10))
	tokens = append(tokens, strconv.FormatInt(r.Size, 10))
	if c.Fields.Atime {
		tokens = append(tokens, strconv.FormatInt(r.Atime, 10))
	}
	if c.Fields.Mtime {
		tokens = append(tokens, strconv.FormatInt(r.Mtime, 10))
	}
	if c.Fields.Ctime {
		tokens = append(tokens, strconv.FormatInt(r.Ctime, 10))
	}
	if c.Fields.LinkCount {
		tokens = append(tokens, strconv.FormatUint(uint64(r.LinkCount), 10))
	}
	tokens = append(tokens, strconv.FormatInt(r.Blocks, 10))
	tokens = append(tokens, r.TargetPath)
	tokens = append(tokens, r.RenamePath)

	// Trim trailing empty tokens (only ever TargetPath/RenamePath, since
	// every earlier token is a non-empty decimal integer).
	end := len(tokens)
	for end > 0 && tokens[end-1] == "" {
		end--
	}
	return []byte(strings.Join(tokens[:end], string(separator)))
}

// Parse decodes data produced by Serialize under the same FieldSet.
// parse(serialize(m)) == m for every enabled-field subset (spec.md §3, §8).
func (c Codec) Parse(data []byte) (Record, error) {
	tokens := strings.Split(string(data), string(separator))
	baseline := 2 + optionalCount(c.Fields) + 1 // mode,size + optional + blocks
	if len(tokens) < baseline {
		return Record{}, fmt.Errorf("metadata: truncated record: have %d tokens, need at least %d", len(tokens), baseline)
	}
	if len(tokens) > baseline+2 {
		return Record{}, fmt.Errorf("metadata: malformed record: %d trailing tokens", len(tokens)-baseline)
	}

	var r Record
	idx := 0
	mode, err := strconv.ParseUint(tokens[idx], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("metadata: parsing mode: %w", err)
	}
	r.Mode = uint32(mode)
	idx++

	size, err := strconv.ParseInt(tokens[idx], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("metadata: parsing size: %w", err)
	}
	r.Size = size
	idx++

	if c.Fields.Atime {
		r.Atime, err = strconv.ParseInt(tokens[idx], 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("metadata: parsing atime: %w", err)
		}
		idx++
	}
	if c.Fields.Mtime {
		r.Mtime, err = strconv.ParseInt(tokens[idx], 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("metadata: parsing mtime: %w", err)
		}
		idx++
	}
	if c.Fields.Ctime {
		r.Ctime, err = strconv.ParseInt(tokens[idx], 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("metadata: parsing ctime: %w", err)
		}
		idx++
	}
	if c.Fields.LinkCount {
		lc, err := strconv.ParseUint(tokens[idx], 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("metadata: parsing link_count: %w", err)
		}
		r.LinkCount = uint32(lc)
		idx++
	}

	blocks, err := strconv.ParseInt(tokens[idx], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("metadata: parsing blocks: %w", err)
	}
	r.Blocks = blocks
	idx++

	if idx < len(tokens) {
		r.TargetPath = tokens[idx]
		idx++
	}
	if idx < len(tokens) {
		r.RenamePath = tokens[idx]
	}

	return r, nil
}

func optionalCount(f FieldSet) int {
	n := 0
	if f.Atime {
		n++
	}
	if f.Mtime {
		n++
	}
	if f.Ctime {
		n++
	}
	if f.LinkCount {
		n++
	}
	return n
}
