// Command clientsim is a driver exercising the client context (I) and
// the client RPC forwarders (G) end to end, standing in for the real
// POSIX interception layer spec.md §1 explicitly scopes out. It mounts
// against a host file/host-config file pair (written directly, or
// pulled from a running registry), learns the chunk size from any
// daemon's chunk_stat, then runs a fixed write/read/truncate/stat
// exercise against a path given on the command line.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/gekkofs/gekkofs-go/internal/apierrors"
	"github.com/gekkofs/gekkofs-go/internal/clientctx"
	"github.com/gekkofs/gekkofs-go/internal/config"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/distributor"
	"github.com/gekkofs/gekkofs-go/internal/forwarder"
	"github.com/gekkofs/gekkofs-go/internal/hostmap"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
	"github.com/gekkofs/gekkofs-go/internal/registryrpc"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to client TOML config (env vars used if empty)")
		registryAddr = flag.String("registry", "", "registry transport address; if set, -workflows is requested from it, which writes the configured host file/host-config file before they are read")
		workflows    = flag.String("workflows", "", "semicolon-separated workflow names to request from the registry")
		path         = flag.String("path", "/clientsim-demo", "path to exercise")
		payloadSize  = flag.Int("size", 4096, "bytes to write and read back")
	)
	flag.Parse()

	cfg := config.MustLoadClient(*configPath)
	if *workflows != "" {
		cfg.Workflows = []string{*workflows}
	}

	ls, err := logging.New(logging.Options{Component: "clientsim", Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer ls.Sync()

	table, daemons := resolveHostTable(cfg, *registryAddr, ls)

	conns := transport.NewConnPool(ls)
	defer conns.Close()
	dist := distributor.New(table, 0)
	codec := metadata.NewCodec(metadata.AllFields)

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	chunkSize := learnChunkSize(conns, daemons[0].URI)
	cctx := clientctx.New(dist, daemons, conns, codec, ls, cfg.ReplicaCount, chunkSize, uint64(seed))
	fw := forwarder.New(cctx)

	color.Cyan("clientsim mounted: %d daemon(s), chunk_size=%d, replicas=%d", len(daemons), chunkSize, cfg.ReplicaCount)

	ctx := context.Background()
	runDemo(ctx, cctx, fw, *path, *payloadSize, ls)
}

// resolveHostTable reads the host file/host-config file pair off disk,
// per spec.md §6. When registryAddr is set it first asks that registry
// to write the merged federation view to those same two paths.
func resolveHostTable(cfg *config.ClientConfig, registryAddr string, ls logging.LogService) (distributor.HostTable, []hostmap.Daemon) {
	if registryAddr != "" {
		conns := transport.NewConnPool(ls)
		defer conns.Close()

		req := &registryrpc.RequestRequest{
			FlowList:             joinWorkflows(cfg.Workflows),
			OutputHostConfigFile: cfg.HostConfigFile,
			OutputHostFile:       cfg.HostFile,
		}
		var rep registryrpc.RequestReply
		if err := conns.Invoke(context.Background(), registryAddr, transport.FullMethod(registryrpc.ServiceName, "Request"), req, &rep); err != nil {
			log.Fatalf("requesting federation from registry %s: %v", registryAddr, err)
		}
		if rep.Err != "" {
			log.Fatalf("registry request failed: %s", rep.Err)
		}
	}

	configFile, err := os.Open(cfg.HostConfigFile)
	if err != nil {
		log.Fatalf("opening host-config file %s: %v", cfg.HostConfigFile, err)
	}
	defer configFile.Close()
	configs, err := hostmap.ParseHostConfigFile(configFile)
	if err != nil {
		log.Fatalf("parsing host-config file: %v", err)
	}

	hostFile, err := os.Open(cfg.HostFile)
	if err != nil {
		log.Fatalf("opening host file %s: %v", cfg.HostFile, err)
	}
	defer hostFile.Close()
	daemons, err := hostmap.ParseHostFile(hostFile)
	if err != nil {
		log.Fatalf("parsing host file: %v", err)
	}
	if len(daemons) == 0 {
		log.Fatalf("host file %s lists no daemons", cfg.HostFile)
	}

	table := distributor.HostTable{
		Sizes:      make([]int, len(configs)),
		Priorities: make([]int, len(configs)),
	}
	for i, c := range configs {
		table.Sizes[i] = c.HostCount
		table.Priorities[i] = c.Priority
	}
	return table, daemons
}

func joinWorkflows(workflows []string) string {
	out := ""
	for i, w := range workflows {
		if i > 0 {
			out += ";"
		}
		out += w
	}
	return out
}

// learnChunkSize calls chunk_stat on the first daemon, the way a real
// mount would (spec.md §4.5, §4.3): the chunk size is a daemon-side
// startup config value, not something the client assumes.
func learnChunkSize(conns *transport.ConnPool, addr string) int64 {
	req := &daemonrpc.ChunkStatRequest{}
	var rep daemonrpc.ChunkStatReply
	if err := conns.Invoke(context.Background(), addr, transport.FullMethod(daemonrpc.ServiceName, "ChunkStat"), req, &rep); err != nil {
		log.Fatalf("chunk_stat against %s: %v", addr, err)
	}
	if err := apierrors.FromCode(rep.Err); err != nil {
		log.Fatalf("chunk_stat against %s: %v", addr, err)
	}
	return rep.ChunkSize
}

func runDemo(ctx context.Context, cctx *clientctx.ClientContext, fw *forwarder.Forwarder, path string, size int, ls logging.LogService) {
	dest := cctx.Distributor.LocateMetadata(path, 0)
	createReq := &daemonrpc.CreateRequest{Path: path, Mode: 0o644}
	var createRep daemonrpc.CreateReply
	if err := cctx.Conns.Invoke(ctx, cctx.Addr(dest), transport.FullMethod(daemonrpc.ServiceName, "Create"), createReq, &createRep); err != nil {
		log.Fatalf("create %s: %v", path, err)
	}
	if err := apierrors.FromCode(createRep.Err); err != nil && err != apierrors.ErrExists {
		log.Fatalf("create %s: %v", path, err)
	}

	payload := make([]byte, size)
	rand.New(rand.NewSource(1)).Read(payload)

	wr := fw.Write(ctx, path, payload, 0)
	if wr.Err != nil {
		log.Fatalf("write %s: %v", path, wr.Err)
	}
	ls.Info(logging.LogEvent{Message: "wrote file", Metadata: map[string]any{"path": path, "bytes": wr.BytesWritten}})

	out := make([]byte, size)
	rr := fw.Read(ctx, path, out, 0)
	if rr.Err != nil {
		log.Fatalf("read %s: %v", path, rr.Err)
	}
	ls.Info(logging.LogEvent{Message: "read file", Metadata: map[string]any{"path": path, "bytes": rr.BytesRead}})

	res := fw.Stat(ctx, path)
	if res.Err != nil {
		log.Fatalf("stat %s: %v", path, res.Err)
	}
	color.Green("stat %s: size=%d mode=%o", path, res.Record.Size, res.Record.Permissions())

	half := int64(size / 2)
	if err := fw.Truncate(ctx, path, int64(size), half); err != nil {
		log.Fatalf("truncate %s: %v", path, err)
	}
	color.Green("truncated %s to %d bytes", path, half)
}
