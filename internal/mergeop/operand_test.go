package mergeop

import (
	"testing"

	"github.com/gekkofs/gekkofs-go/internal/metadata"
)

func TestOperandEncodeDecodeRoundTrip(t *testing.T) {
	codec := metadata.NewCodec(metadata.AllFields)
	tests := []Operand{
		CreateOperand(metadata.NewRecord(metadata.TypeRegular, 0644)),
		IncreaseSizeOperand(4096, 0, true, 7),
		IncreaseSizeOperand(128, 512, false, 0),
		DecreaseSizeOperand(0),
		DecreaseSizeOperand(1 << 30),
	}

	for _, op := range tests {
		data := op.Encode(codec)
		got, err := Decode(data, codec)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", data, err)
		}
		if got != op {
			t.Errorf("round trip mismatch:\n got  = %+v\n want = %+v\n wire = %q", got, op, data)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	codec := metadata.NewCodec(metadata.AllFields)
	if _, err := Decode([]byte("x"), codec); err == nil {
		t.Errorf("expected error for too-short operand")
	}
	if _, err := Decode([]byte("i:not,enough"), codec); err == nil {
		t.Errorf("expected error for malformed increase_size payload")
	}
	if _, err := Decode([]byte("z:whatever"), codec); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}
