package transport

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/gekkofs/gekkofs-go/internal/logging"
)

// ReqIDKey is the grpc metadata key a request id travels under, mirroring
// the teacher corpus's own req-id propagation (cubefs-inodedb's
// proto.ReqIdKey: client attaches it, server picks it back up for
// correlated logging across a single call's daemon hops).
const ReqIDKey = "req-id"

type reqIDCtxKey struct{}

// ReqIDFromContext returns the request id a server interceptor attached
// to ctx, if any.
func ReqIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(reqIDCtxKey{}).(string)
	return id, ok
}

// clientTraceInterceptor stamps every outgoing call with a fresh request
// id unless the caller already set one deeper in the chain (a forwarder
// RPC that itself started from a client-visible call already carrying one).
func clientTraceInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if md, ok := metadata.FromOutgoingContext(ctx); !ok || len(md.Get(ReqIDKey)) == 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, ReqIDKey, uuid.NewString())
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// serverTraceInterceptor recovers the request id (or mints one, for a
// call that arrived without metadata) and logs the RPC at debug level,
// the way the teacher's communicators log each inbound message.
func serverTraceInterceptor(log logging.LogService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqID := uuid.NewString()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(ReqIDKey); len(vals) > 0 {
				reqID = vals[0]
			}
		}
		ctx = context.WithValue(ctx, reqIDCtxKey{}, reqID)
		log.Debug(logging.LogEvent{
			Message:  "handling rpc",
			Metadata: map[string]any{"method": info.FullMethod, "req_id": reqID},
		})
		return handler(ctx, req)
	}
}
