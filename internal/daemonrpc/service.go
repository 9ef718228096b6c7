package daemonrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/gekkofs/gekkofs-go/internal/transport"
)

// ServiceName is the daemon RPC service's grpc.ServiceDesc name.
const ServiceName = "gekkofs.daemon.Daemon"

// ServiceDesc builds the grpc.ServiceDesc exposing every Handlers
// method, for registration on a transport.Server via RegisterService.
func ServiceDesc(h *Handlers) grpc.ServiceDesc {
	return transport.NewServiceDesc(ServiceName, []transport.Method{
		{Name: "Create", NewArg: func() any { return new(CreateRequest) }, Handler: wrap(h.Create)},
		{Name: "Stat", NewArg: func() any { return new(StatRequest) }, Handler: wrap(h.Stat)},
		{Name: "RemoveMetadata", NewArg: func() any { return new(RemoveMetadataRequest) }, Handler: wrap(h.RemoveMetadata)},
		{Name: "RemoveData", NewArg: func() any { return new(RemoveDataRequest) }, Handler: wrap(h.RemoveData)},
		{Name: "DecrSize", NewArg: func() any { return new(DecrSizeRequest) }, Handler: wrap(h.DecrSize)},
		{Name: "UpdateMetadentry", NewArg: func() any { return new(UpdateMetadentryRequest) }, Handler: wrap(h.UpdateMetadentry)},
		{Name: "UpdateMetadentrySize", NewArg: func() any { return new(UpdateMetadentrySizeRequest) }, Handler: wrap(h.UpdateMetadentrySize)},
		{Name: "GetMetadentrySize", NewArg: func() any { return new(GetMetadentrySizeRequest) }, Handler: wrap(h.GetMetadentrySize)},
		{Name: "GetDirents", NewArg: func() any { return new(GetDirentsRequest) }, Handler: wrap(h.GetDirents)},
		{Name: "GetDirentsExtended", NewArg: func() any { return new(GetDirentsRequest) }, Handler: wrap(h.GetDirentsExtended)},
		{Name: "MkSymlink", NewArg: func() any { return new(MkSymlinkRequest) }, Handler: wrap(h.MkSymlink)},
		{Name: "WriteData", NewArg: func() any { return new(WriteDataRequest) }, Handler: wrap(h.WriteData)},
		{Name: "ReadData", NewArg: func() any { return new(ReadDataRequest) }, Handler: wrap(h.ReadData)},
		{Name: "TruncData", NewArg: func() any { return new(TruncDataRequest) }, Handler: wrap(h.TruncData)},
		{Name: "ChunkStat", NewArg: func() any { return new(ChunkStatRequest) }, Handler: wrap(h.ChunkStat)},
	})
}

// wrap adapts a typed Handlers method to transport.Method's untyped
// (context.Context, any) -> (any, error) handler shape.
func wrap[Req, Rep any](fn func(context.Context, *Req) (*Rep, error)) func(context.Context, any) (any, error) {
	return func(ctx context.Context, arg any) (any, error) {
		return fn(ctx, arg.(*Req))
	}
}
