package hostmap

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseHostFile(t *testing.T) {
	input := "node03 ofi+sockets://10.0.0.3:52000\nnode04#spare na+sm://10.0.0.4\n"
	got, err := ParseHostFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseHostFile() error = %v", err)
	}
	want := []Daemon{
		{Hostname: "node03", URI: "ofi+sockets://10.0.0.3:52000"},
		{Hostname: "node04", URI: "na+sm://10.0.0.4"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d daemons, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("daemon[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseHostConfigFile(t *testing.T) {
	input := "4 0\n3 1\n"
	got, err := ParseHostConfigFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseHostConfigFile() error = %v", err)
	}
	want := []InstanceConfig{{HostCount: 4, Priority: 0}, {HostCount: 3, Priority: 1}}
	if len(got) != len(want) {
		t.Fatalf("got %d configs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("config[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHostFileRoundTrip(t *testing.T) {
	daemons := []Daemon{
		{Hostname: "node01", URI: "ofi+verbs://10.0.0.1:1"},
		{Hostname: "node02", URI: "ofi+verbs://10.0.0.2:1"},
	}
	var buf bytes.Buffer
	if err := WriteHostFile(&buf, daemons); err != nil {
		t.Fatalf("WriteHostFile() error = %v", err)
	}
	got, err := ParseHostFile(&buf)
	if err != nil {
		t.Fatalf("ParseHostFile() error = %v", err)
	}
	if len(got) != len(daemons) {
		t.Fatalf("got %d daemons, want %d", len(got), len(daemons))
	}
	for i := range daemons {
		if got[i] != daemons[i] {
			t.Errorf("daemon[%d] = %+v, want %+v", i, got[i], daemons[i])
		}
	}
}

func TestRegistryFileRoundTrip(t *testing.T) {
	path := t.TempDir() + "/registry"
	if err := WriteRegistryFile(path, "ofi+sockets://10.0.0.9:9999"); err != nil {
		t.Fatalf("WriteRegistryFile() error = %v", err)
	}
	got, err := ReadRegistryFile(path)
	if err != nil {
		t.Fatalf("ReadRegistryFile() error = %v", err)
	}
	if got != "ofi+sockets://10.0.0.9:9999" {
		t.Errorf("ReadRegistryFile() = %q", got)
	}
}

func TestFederateConcatenatesInPriorityOrder(t *testing.T) {
	instances := []Instance{
		{Daemons: []Daemon{{Hostname: "a0"}, {Hostname: "a1"}}, Priority: 0},
		{Daemons: []Daemon{{Hostname: "b0"}, {Hostname: "b1"}, {Hostname: "b2"}}, Priority: 1},
	}
	table, daemons := Federate(instances)

	if table.DaemonCount() != 5 {
		t.Errorf("DaemonCount() = %d, want 5", table.DaemonCount())
	}
	if len(table.Sizes) != 2 || table.Sizes[0] != 2 || table.Sizes[1] != 3 {
		t.Errorf("Sizes = %v, want [2 3]", table.Sizes)
	}
	if len(daemons) != 5 || daemons[0].Hostname != "a0" || daemons[4].Hostname != "b2" {
		t.Errorf("daemons = %+v", daemons)
	}
}
