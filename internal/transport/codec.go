// Package transport provides the RPC plumbing shared by the daemon,
// client and registry surfaces (spec.md §4.5, §4.6, §4.7): a
// google.golang.org/grpc server/dial wrapper using plain Go structs as
// request/response types instead of protoc-generated stubs.
//
// grpc-go's wire codec is selected by name, defaulting to "proto" and
// requiring a proto.Message. Registering our own codec under that same
// name (encoding.RegisterCodec) replaces it with a JSON encoder/decoder
// for any Go value, so hand-written grpc.ServiceDesc values work with
// ordinary structs. In spirit this is the teacher's own JSON-over-grpc
// technique (internal/communication/grpc/grpc_communicator.go marshals
// payloads to JSON bytes around a protoc-generated envelope message);
// here the JSON marshaling happens at the codec layer itself, so no
// envelope message — generated or hand-written — is needed at all.
package transport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
