package registryrpc

import (
	"context"
	"os"
	"testing"

	"github.com/gekkofs/gekkofs-go/internal/hostmap"
	"github.com/gekkofs/gekkofs-go/internal/logging"
	"github.com/gekkofs/gekkofs-go/internal/registryservice"
)

func writeHostPair(t *testing.T, configPath, hostPath string, configs []hostmap.InstanceConfig, daemons []hostmap.Daemon) {
	t.Helper()
	cf, err := os.Create(configPath)
	if err != nil {
		t.Fatalf("creating host-config file: %v", err)
	}
	defer cf.Close()
	if err := hostmap.WriteHostConfigFile(cf, configs); err != nil {
		t.Fatalf("WriteHostConfigFile() error = %v", err)
	}

	hf, err := os.Create(hostPath)
	if err != nil {
		t.Fatalf("creating host file: %v", err)
	}
	defer hf.Close()
	if err := hostmap.WriteHostFile(hf, daemons); err != nil {
		t.Fatalf("WriteHostFile() error = %v", err)
	}
}

func TestRegisterThenRequestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	hostConfigPath := dir + "/hosts.config"
	hostPath := dir + "/hosts.txt"
	writeHostPair(t, hostConfigPath, hostPath,
		[]hostmap.InstanceConfig{{HostCount: 2, Priority: 0}},
		[]hostmap.Daemon{{Hostname: "a", URI: "u1"}, {Hostname: "b", URI: "u2"}})

	h := New(registryservice.New(logging.Nop()))

	regRep, err := h.Register(context.Background(), &RegisterRequest{
		WorkflowName:   "wf1",
		HostConfigFile: hostConfigPath,
		HostFile:       hostPath,
	})
	if err != nil || regRep.Err != "" {
		t.Fatalf("Register() = %+v, err = %v", regRep, err)
	}

	reqRep, err := h.Request(context.Background(), &RequestRequest{
		FlowList:             "wf1",
		OutputHostConfigFile: dir + "/merged.config",
		OutputHostFile:       dir + "/merged.txt",
	})
	if err != nil || reqRep.Err != "" {
		t.Fatalf("Request() = %+v, err = %v", reqRep, err)
	}
}

func TestRequestUnknownWorkflowReturnsErr(t *testing.T) {
	h := New(registryservice.New(logging.Nop()))
	rep, err := h.Request(context.Background(), &RequestRequest{
		FlowList:             "missing",
		OutputHostConfigFile: t.TempDir() + "/c",
		OutputHostFile:       t.TempDir() + "/h",
	})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if rep.Err == "" {
		t.Fatalf("Request() on unregistered workflow returned no error")
	}
}
