// Command registry runs the standalone Registry service (spec.md §4.7,
// component H): workflows register their host-config/host file pair,
// clients request a merged, priority-ordered federated view of one or
// more workflows.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/gekkofs/gekkofs-go/internal/config"
	"github.com/gekkofs/gekkofs-go/internal/hostmap"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/registryrpc"
	"github.com/gekkofs/gekkofs-go/internal/registryservice"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to registry TOML config (env vars used if empty)")
	flag.Parse()

	cfg := config.MustLoadRegistry(*configPath)

	ls, err := logging.New(logging.Options{Component: "registry", Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer ls.Sync()

	registry := registryservice.New(ls)
	handlers := registryrpc.New(registry)
	sd := registryrpc.ServiceDesc(handlers)

	srv := transport.NewServer(cfg.ListenAddress, ls)
	srv.RegisterService(&sd)

	go func() {
		if err := srv.Serve(); err != nil {
			log.Fatalf("registry server exited: %v", err)
		}
	}()

	if err := hostmap.WriteRegistryFile(cfg.RegistryFile, srv.Addr()); err != nil {
		log.Fatalf("writing registry file %s: %v", cfg.RegistryFile, err)
	}
	color.Cyan("gekkofs registry listening on %s (registry file: %s)", srv.Addr(), cfg.RegistryFile)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ls.Info(logging.LogEvent{Message: "shutting down registry"})
	srv.Stop()
	_ = os.Remove(cfg.RegistryFile)
	ls.Info(logging.LogEvent{Message: "registry stopped"})
}
