package transport

import (
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/gekkofs/gekkofs-go/internal/logging"
)

// Server is a thin lifecycle wrapper around *grpc.Server, grounded on
// the teacher's GRPCCommunicator.Start/Stop (internal/communication/
// grpc/grpc_communicator.go), generalized to host an arbitrary set of
// hand-rolled service descriptors instead of one fixed message service.
type Server struct {
	addr string
	log  logging.LogService

	grpcServer *grpc.Server
	mu         sync.Mutex
	stopped    bool
	boundAddr  string
	ready      chan struct{}
}

// NewServer builds a Server listening on addr once Serve is called.
// Register services with RegisterService before calling Serve. addr may
// use port 0 to bind an ephemeral port; call Addr() after starting
// Serve in a goroutine to learn which one was assigned.
func NewServer(addr string, log logging.LogService) *Server {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(serverTraceInterceptor(log)))
	return &Server{addr: addr, log: log, grpcServer: grpcServer, ready: make(chan struct{})}
}

// Addr blocks until Serve has successfully bound its listener, then
// returns the actual address (with the real port if addr specified 0).
func (s *Server) Addr() string {
	<-s.ready
	return s.boundAddr
}

// RegisterService mounts sd (built via NewServiceDesc) on the
// underlying grpc.Server. ss is always nil here since hand-rolled
// Methods close over their own handlers.
func (s *Server) RegisterService(sd *grpc.ServiceDesc) {
	s.grpcServer.RegisterService(sd, nil)
}

// Serve starts listening and blocks until the server stops. Callers
// typically run this in a goroutine.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.log.Error(logging.LogEvent{
			Message:  "failed to listen",
			Metadata: map[string]any{"address": s.addr, "error": err.Error()},
		})
		return fmt.Errorf("transport: listening on %s: %w", s.addr, err)
	}
	s.boundAddr = lis.Addr().String()
	close(s.ready)
	s.log.Info(logging.LogEvent{
		Message:  "transport server listening",
		Metadata: map[string]any{"address": s.boundAddr},
	})
	return s.grpcServer.Serve(lis)
}

// Stop gracefully shuts the server down; idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.grpcServer.GracefulStop()
	s.stopped = true
	s.log.Info(logging.LogEvent{
		Message:  "transport server stopped",
		Metadata: map[string]any{"address": s.addr},
	})
}
