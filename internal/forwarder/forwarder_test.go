package forwarder

import (
	"context"
	"testing"

	"github.com/gekkofs/gekkofs-go/internal/chunkstore"
	"github.com/gekkofs/gekkofs-go/internal/clientctx"
	"github.com/gekkofs/gekkofs-go/internal/daemonctx"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/distributor"
	"github.com/gekkofs/gekkofs-go/internal/hostmap"
	"github.com/gekkofs/gekkofs-go/internal/kvstore"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/mergeop"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

const testChunkSize = 64

// newFederation builds a ClientContext fronting n real daemon servers,
// each with its own storage, federated into one instance of n daemons.
func newFederation(t *testing.T, n int) (*clientctx.ClientContext, func()) {
	t.Helper()
	var daemons []hostmap.Daemon
	var servers []*transport.Server

	for i := 0; i < n; i++ {
		codec := metadata.NewCodec(metadata.AllFields)
		idMap := mergeop.NewMap()
		resolver := mergeop.NewResolver(codec, idMap, nil)
		engine := kvstore.NewLockEngine(kvstore.NewMemRawStore(), codec, resolver, &mergeop.IDAllocator{})

		chunks, err := chunkstore.New(t.TempDir(), testChunkSize, logging.Nop())
		if err != nil {
			t.Fatalf("chunkstore.New() error = %v", err)
		}

		dctx := daemonctx.New(engine, chunks, codec, logging.Nop(), i, false)
		handlers := daemonrpc.New(dctx)
		sd := daemonrpc.ServiceDesc(handlers)

		srv := transport.NewServer("127.0.0.1:0", logging.Nop())
		srv.RegisterService(&sd)
		go func() { _ = srv.Serve() }()
		servers = append(servers, srv)

		daemons = append(daemons, hostmap.Daemon{Hostname: "d", URI: srv.Addr()})
	}

	table := distributor.HostTable{Sizes: []int{n}, Priorities: []int{0}}
	dist := distributor.New(table, 0)
	conns := transport.NewConnPool(logging.Nop())
	codec := metadata.NewCodec(metadata.AllFields)

	cctx := clientctx.New(dist, daemons, conns, codec, logging.Nop(), 0, testChunkSize, 1)

	cleanup := func() {
		for _, s := range servers {
			s.Stop()
		}
		_ = conns.Close()
	}
	return cctx, cleanup
}

func TestForwarderWriteReadRoundTrip(t *testing.T) {
	cctx, cleanup := newFederation(t, 3)
	defer cleanup()
	fw := New(cctx)
	ctx := context.Background()

	// Create the metadata entry on whichever daemon owns it so stat/size
	// bookkeeping has somewhere to live; the write/read path under test
	// only exercises chunk placement, so a bare create suffices.
	dest := cctx.Distributor.LocateMetadata("/big", 0)
	createReq := &daemonrpc.CreateRequest{Path: "/big", Mode: 0o644}
	var createRep daemonrpc.CreateReply
	if err := cctx.Conns.Invoke(ctx, cctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "Create"), createReq, &createRep); err != nil {
		t.Fatalf("Invoke(Create) error = %v", err)
	}

	payload := make([]byte, 200) // spans multiple chunks, likely multiple daemons
	for i := range payload {
		payload[i] = byte(i)
	}

	wr := fw.Write(ctx, "/big", payload, 0)
	if wr.Err != nil || wr.BytesWritten != int64(len(payload)) {
		t.Fatalf("Write() = %+v, want BytesWritten=%d, Err=nil", wr, len(payload))
	}

	out := make([]byte, len(payload))
	rr := fw.Read(ctx, "/big", out, 0)
	if rr.Err != nil || rr.BytesRead != int64(len(payload)) {
		t.Fatalf("Read() = %+v, want BytesRead=%d, Err=nil", rr, len(payload))
	}
	for i := range payload {
		if out[i] != payload[i] {
			t.Fatalf("Read() byte %d = %d, want %d", i, out[i], payload[i])
		}
	}
}

func TestForwarderTruncateDropsChunks(t *testing.T) {
	cctx, cleanup := newFederation(t, 2)
	defer cleanup()
	fw := New(cctx)
	ctx := context.Background()

	payload := make([]byte, 192)
	wr := fw.Write(ctx, "/f", payload, 0)
	if wr.Err != nil {
		t.Fatalf("Write() error = %v", wr.Err)
	}

	if err := fw.Truncate(ctx, "/f", 192, 70); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}

	out := make([]byte, 192)
	rr := fw.Read(ctx, "/f", out, 0)
	if rr.Err != nil {
		t.Fatalf("Read() error = %v", rr.Err)
	}
	for i := 70; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("Read() byte %d = %d after truncate to 70, want 0", i, out[i])
		}
	}
}

func TestForwarderStatSingleInstance(t *testing.T) {
	cctx, cleanup := newFederation(t, 2)
	defer cleanup()
	fw := New(cctx)
	ctx := context.Background()

	dest := cctx.Distributor.LocateMetadata("/s", 0)
	createReq := &daemonrpc.CreateRequest{Path: "/s", Mode: 0o644}
	var createRep daemonrpc.CreateReply
	if err := cctx.Conns.Invoke(ctx, cctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "Create"), createReq, &createRep); err != nil {
		t.Fatalf("Invoke(Create) error = %v", err)
	}

	res := fw.Stat(ctx, "/s")
	if res.Err != nil {
		t.Fatalf("Stat() error = %v", res.Err)
	}
	if res.Record.Permissions() != 0o644 {
		t.Errorf("Stat() Record.Permissions() = %o, want %o", res.Record.Permissions(), 0o644)
	}
}

func TestForwarderStatNotFound(t *testing.T) {
	cctx, cleanup := newFederation(t, 2)
	defer cleanup()
	fw := New(cctx)

	res := fw.Stat(context.Background(), "/missing")
	if res.Err == nil {
		t.Fatalf("Stat() on missing path returned nil error")
	}
}
