package transport

import (
	"context"

	"google.golang.org/grpc"
)

// Method describes one RPC method on a hand-rolled ServiceDesc: its
// name, a constructor for its request value (so the generic server
// handler below has something concrete to decode into), and the
// business logic handler.
type Method struct {
	Name    string
	NewArg  func() any
	Handler func(ctx context.Context, arg any) (any, error)
}

// NewServiceDesc builds a grpc.ServiceDesc for serviceName from methods
// without any protoc-generated handler type. Registered with a nil
// server object (grpc.Server.RegisterService's HandlerType assertion is
// skipped when ss == nil), since each Method closes over its own
// handler instead of dispatching through a shared interface.
func NewServiceDesc(serviceName string, methods []Method) grpc.ServiceDesc {
	descs := make([]grpc.MethodDesc, len(methods))
	for i, m := range methods {
		m := m
		descs[i] = grpc.MethodDesc{
			MethodName: m.Name,
			Handler: func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := m.NewArg()
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return m.Handler(ctx, in)
				}
				info := &grpc.UnaryServerInfo{FullMethod: "/" + serviceName + "/" + m.Name}
				return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
					return m.Handler(ctx, req)
				})
			},
		}
	}
	return grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Methods:     descs,
		Streams:     []grpc.StreamDesc{},
		Metadata:    serviceName,
	}
}

// FullMethod builds the "/service/method" string grpc.ClientConn.Invoke
// expects.
func FullMethod(serviceName, methodName string) string {
	return "/" + serviceName + "/" + methodName
}
