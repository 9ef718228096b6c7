package metadata

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		fields FieldSet
		rec    Record
	}{
		{
			name:   "all fields, regular file",
			fields: AllFields,
			rec: Record{
				Mode: encodeMode(TypeRegular, 0644), Size: 4096,
				Atime: 10, Mtime: 20, Ctime: 30, LinkCount: 1, Blocks: 8,
			},
		},
		{
			name:   "all fields, symlink with target",
			fields: AllFields,
			rec: Record{
				Mode: encodeMode(TypeSymlink, 0777), Size: 0,
				Atime: 1, Mtime: 2, Ctime: 3, LinkCount: 1, Blocks: 0,
				TargetPath: "/some/target",
			},
		},
		{
			name:   "all fields, rename tombstone",
			fields: AllFields,
			rec: Record{
				Mode: encodeMode(TypeRegular, 0600), Size: 0,
				Atime: 1, Mtime: 2, Ctime: 3, LinkCount: 0, Blocks: RenameTombstoneBlocks,
				RenamePath: "/new/path",
			},
		},
		{
			name:   "no optional fields",
			fields: FieldSet{},
			rec: Record{
				Mode: encodeMode(TypeDirectory, 0755), Size: 0, Blocks: 0,
			},
		},
		{
			name:   "only link count enabled",
			fields: FieldSet{LinkCount: true},
			rec: Record{
				Mode: encodeMode(TypeRegular, 0644), Size: 123, LinkCount: 4, Blocks: 1,
			},
		},
		{
			name:   "only mtime enabled, target set without rename",
			fields: FieldSet{Mtime: true},
			rec: Record{
				Mode: encodeMode(TypeSymlink, 0777), Size: 0, Mtime: 99, Blocks: 0,
				TargetPath: "/t",
			},
		},
		{
			name:   "empty target but non-empty rename path",
			fields: FieldSet{},
			rec: Record{
				Mode: encodeMode(TypeRegular, 0644), Size: 0, Blocks: RenameTombstoneBlocks,
				RenamePath: "/renamed/to",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := NewCodec(tt.fields)
			data := codec.Serialize(tt.rec)
			got, err := codec.Parse(data)
			if err != nil {
				t.Fatalf("Parse() error = %v (data=%q)", err, data)
			}
			if got != tt.rec {
				t.Errorf("round trip mismatch:\n got  = %+v\n want = %+v\n wire = %q", got, tt.rec, data)
			}
		})
	}
}

func TestCodecSeparator(t *testing.T) {
	codec := NewCodec(AllFields)
	rec := Record{Mode: encodeMode(TypeRegular, 0644), Size: 10, Blocks: 1}
	data := codec.Serialize(rec)
	if got, want := string(data), "420|10|0|0|0|0|1"; got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"valid regular", Record{Mode: encodeMode(TypeRegular, 0644), Size: 10}, false},
		{"negative size", Record{Mode: encodeMode(TypeRegular, 0644), Size: -1}, true},
		{"target on regular file", Record{Mode: encodeMode(TypeRegular, 0644), TargetPath: "/x"}, true},
		{"directory with size", Record{Mode: encodeMode(TypeDirectory, 0755), Size: 10}, true},
		{"valid symlink", Record{Mode: encodeMode(TypeSymlink, 0777), TargetPath: "/x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordFileType(t *testing.T) {
	r := NewRecord(TypeDirectory, 0755)
	if !r.IsDirectory() || r.IsRegular() || r.IsSymlink() {
		r2 := r
		t.Errorf("unexpected file type bits on %+v", r2)
	}
	if r.Permissions() != 0755 {
		t.Errorf("Permissions() = %o, want %o", r.Permissions(), 0755)
	}
}

func TestRecordIsRenameTombstone(t *testing.T) {
	r := Record{Blocks: RenameTombstoneBlocks}
	if !r.IsRenameTombstone() {
		t.Errorf("expected rename tombstone")
	}
	r.Blocks = 0
	if r.IsRenameTombstone() {
		t.Errorf("did not expect rename tombstone")
	}
}
