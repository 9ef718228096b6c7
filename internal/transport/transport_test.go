package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/gekkofs/gekkofs-go/internal/logging"
)

type echoRequest struct {
	Text string `json:"text"`
}

type echoReply struct {
	Text string `json:"text"`
}

func startEchoServer(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	grpcServer := grpc.NewServer()
	sd := NewServiceDesc("gekkofs.test.Echo", []Method{
		{
			Name:   "Echo",
			NewArg: func() any { return new(echoRequest) },
			Handler: func(_ context.Context, arg any) (any, error) {
				req := arg.(*echoRequest)
				return &echoReply{Text: "echo:" + req.Text}, nil
			},
		},
	})
	grpcServer.RegisterService(&sd, nil)

	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.GracefulStop)

	return lis.Addr().String()
}

func TestInvokeRoundTrip(t *testing.T) {
	addr := startEchoServer(t)

	pool := NewConnPool(logging.Nop())
	t.Cleanup(func() { _ = pool.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var reply echoReply
	err := pool.Invoke(ctx, addr, FullMethod("gekkofs.test.Echo", "Echo"), &echoRequest{Text: "hi"}, &reply)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if reply.Text != "echo:hi" {
		t.Errorf("reply.Text = %q, want %q", reply.Text, "echo:hi")
	}
}

func TestConnPoolReusesConnection(t *testing.T) {
	addr := startEchoServer(t)
	pool := NewConnPool(logging.Nop())
	t.Cleanup(func() { _ = pool.Close() })

	c1, err := pool.Get(addr)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	c2, err := pool.Get(addr)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c1 != c2 {
		t.Errorf("Get() returned distinct connections for the same address")
	}
}

func TestServerLifecycle(t *testing.T) {
	s := NewServer("127.0.0.1:0", logging.Nop())
	sd := NewServiceDesc("gekkofs.test.Noop", nil)
	s.RegisterService(&sd)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	// Give the listener a moment to bind before stopping.
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve() did not return after Stop()")
	}
}
