package transport

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gekkofs/gekkofs-go/internal/logging"
)

// Dial opens a *grpc.ClientConn to addr using insecure transport
// credentials, matching the teacher's own client construction
// (internal/communication/grpc/grpc_communicator.go: "grpc.NewClient(to,
// grpc.WithTransportCredentials(insecure.NewCredentials()))"). GekkoFS's
// real transports (libfabric endpoints, spec.md §6) are out of scope;
// this stands in for them uniformly across daemon/client/registry.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(clientTraceInterceptor()),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", addr, err)
	}
	return conn, nil
}

// ConnPool caches one *grpc.ClientConn per daemon address for the
// lifetime of a client or daemon process, the same caching
// GRPCCommunicator.Send does over its own c.clients map.
type ConnPool struct {
	log logging.LogService

	mu    sync.RWMutex
	conns map[string]*grpc.ClientConn
}

// NewConnPool builds an empty connection cache.
func NewConnPool(log logging.LogService) *ConnPool {
	return &ConnPool{log: log, conns: make(map[string]*grpc.ClientConn)}
}

// Get returns the cached connection to addr, dialing and caching one on
// first use.
func (p *ConnPool) Get(addr string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.conns[addr]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[addr]; ok {
		return conn, nil
	}
	conn, err := Dial(addr)
	if err != nil {
		return nil, err
	}
	p.conns[addr] = conn
	p.log.Debug(logging.LogEvent{
		Message:  "dialed new connection",
		Metadata: map[string]any{"address": addr},
	})
	return conn, nil
}

// Invoke calls method on addr via the pooled connection, decoding into
// reply.
func (p *ConnPool) Invoke(ctx context.Context, addr, fullMethod string, arg, reply any) error {
	conn, err := p.Get(addr)
	if err != nil {
		return err
	}
	if err := conn.Invoke(ctx, fullMethod, arg, reply); err != nil {
		return fmt.Errorf("transport: invoking %s on %s: %w", fullMethod, addr, err)
	}
	return nil
}

// Close closes every pooled connection.
func (p *ConnPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("transport: closing connection to %s: %w", addr, err)
		}
	}
	p.conns = make(map[string]*grpc.ClientConn)
	return firstErr
}
