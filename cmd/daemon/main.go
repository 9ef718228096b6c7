// Command daemon runs one GekkoFS storage node: metadata engine (B+C),
// chunk storage (D), and the RPC surface (F) serving both to clients.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/snowflake"
	"github.com/fatih/color"
	"github.com/pkg/profile"

	"github.com/gekkofs/gekkofs-go/internal/chunkstore"
	"github.com/gekkofs/gekkofs-go/internal/config"
	"github.com/gekkofs/gekkofs-go/internal/daemonctx"
	"github.com/gekkofs/gekkofs-go/internal/daemonrpc"
	"github.com/gekkofs/gekkofs-go/internal/kvstore"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/mergeop"
	"github.com/gekkofs/gekkofs-go/internal/metadata"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to daemon TOML config (env vars used if empty)")
		daemonIdx   = flag.Int("daemon-idx", 0, "this daemon's global index in the federated host table")
		nodeID      = flag.Int64("node-id", 0, "snowflake node id, must be unique per daemon on the same host file")
		profileMode = flag.String("profile", "", "optional profiling mode: cpu, mem, or empty to disable")
	)
	flag.Parse()

	cfg := config.MustLoadDaemon(*configPath)

	if *profileMode != "" {
		defer startProfile(*profileMode, cfg.RootDir).Stop()
	}

	ls, err := logging.New(logging.Options{Component: "daemon", Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer ls.Sync()

	if cfg.HostID == "" {
		node, err := snowflake.NewNode(*nodeID)
		if err != nil {
			log.Fatalf("allocating snowflake node id %d: %v", *nodeID, err)
		}
		cfg.HostID = node.Generate().String()
	}

	codec := metadata.NewCodec(metadata.AllFields)
	idMap := mergeop.NewMap()
	resolver := mergeop.NewResolver(codec, idMap, nil)
	raw := kvstore.NewMemRawStore()

	var engine kvstore.Engine
	switch cfg.KVEngine {
	case "lockstore":
		engine = kvstore.NewLockEngine(raw, codec, resolver, &mergeop.IDAllocator{})
	default:
		engine = kvstore.NewLSMEngine(raw, codec, resolver, &mergeop.IDAllocator{})
	}

	chunks, err := chunkstore.New(cfg.RootDir, cfg.ChunkSizeBytes, ls)
	if err != nil {
		log.Fatalf("building chunkstore under %s: %v", cfg.RootDir, err)
	}

	dctx := daemonctx.New(engine, chunks, codec, ls, *daemonIdx, cfg.FirstChunkOwnerRemovesLocalChunks)
	handlers := daemonrpc.New(dctx)
	sd := daemonrpc.ServiceDesc(handlers)

	srv := transport.NewServer(cfg.ListenAddress, ls)
	srv.RegisterService(&sd)

	color.Cyan("gekkofs daemon %s listening on %s (chunk_size=%d, kv_engine=%s)",
		cfg.HostID, cfg.ListenAddress, cfg.ChunkSizeBytes, cfg.KVEngine)

	go func() {
		if err := srv.Serve(); err != nil {
			log.Fatalf("daemon server exited: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ls.Info(logging.LogEvent{Message: "shutting down daemon"})
	srv.Stop()
	ls.Info(logging.LogEvent{Message: "daemon stopped"})
}

// startProfile dispatches to the pkg/profile mode named by mode.
func startProfile(mode, dir string) interface{ Stop() } {
	switch mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath(dir))
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath(dir))
	default:
		log.Fatalf("unknown -profile mode %q (want cpu or mem)", mode)
		return nil
	}
}
