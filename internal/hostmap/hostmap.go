// Package hostmap parses the host file, host-config file, and registry
// file text formats (spec.md §6) into a distributor.HostTable, and
// folds multiple per-workflow tables into one federated table (spec.md
// §4.7, component H's client-side counterpart).
package hostmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gekkofs/gekkofs-go/internal/distributor"
)

// Daemon is one entry of a host file: a short hostname and its
// transport endpoint (spec.md §6: "<hostname> <transport_uri>").
type Daemon struct {
	Hostname string
	URI      string
}

// InstanceConfig is one line of a host-config file: a daemon count and
// a priority (spec.md §6: "<host_count> <priority>").
type InstanceConfig struct {
	HostCount int
	Priority  int
}

// ParseHostFile reads a host file: one "<hostname> <transport_uri>"
// line per daemon, with any trailing "#suffix" on the hostname stripped
// (spec.md §6).
func ParseHostFile(r io.Reader) ([]Daemon, error) {
	var daemons []Daemon
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("hostmap: malformed host file line %q", line)
		}
		hostname := fields[0]
		if i := strings.IndexByte(hostname, '#'); i >= 0 {
			hostname = hostname[:i]
		}
		daemons = append(daemons, Daemon{Hostname: hostname, URI: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hostmap: reading host file: %w", err)
	}
	return daemons, nil
}

// ParseHostConfigFile reads a host-config file: one "<host_count>
// <priority>" line per instance (spec.md §6).
func ParseHostConfigFile(r io.Reader) ([]InstanceConfig, error) {
	var configs []InstanceConfig
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("hostmap: malformed host-config file line %q", line)
		}
		count, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("hostmap: parsing host_count: %w", err)
		}
		priority, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("hostmap: parsing priority: %w", err)
		}
		configs = append(configs, InstanceConfig{HostCount: count, Priority: priority})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hostmap: reading host-config file: %w", err)
	}
	return configs, nil
}

// WriteHostFile writes daemons as one "<hostname> <transport_uri>" line
// per entry, in order.
func WriteHostFile(w io.Writer, daemons []Daemon) error {
	bw := bufio.NewWriter(w)
	for _, d := range daemons {
		if _, err := fmt.Fprintf(bw, "%s %s\n", d.Hostname, d.URI); err != nil {
			return fmt.Errorf("hostmap: writing host file: %w", err)
		}
	}
	return bw.Flush()
}

// WriteHostConfigFile writes configs as one "<host_count> <priority>"
// line per instance, in order.
func WriteHostConfigFile(w io.Writer, configs []InstanceConfig) error {
	bw := bufio.NewWriter(w)
	for _, c := range configs {
		if _, err := fmt.Fprintf(bw, "%d %d\n", c.HostCount, c.Priority); err != nil {
			return fmt.Errorf("hostmap: writing host-config file: %w", err)
		}
	}
	return bw.Flush()
}

// ReadRegistryFile reads the registry file: a single line carrying the
// Registry's transport URI (spec.md §6).
func ReadRegistryFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hostmap: reading registry file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteRegistryFile writes the Registry's transport URI as the
// registry file's sole line.
func WriteRegistryFile(path, uri string) error {
	if err := os.WriteFile(path, []byte(uri+"\n"), 0o644); err != nil {
		return fmt.Errorf("hostmap: writing registry file: %w", err)
	}
	return nil
}

// Instance is one federated instance: its daemons (aligned with its
// InstanceConfig, summing host_count must equal len(Daemons)) and
// priority.
type Instance struct {
	Daemons  []Daemon
	Priority int
}

// Federate concatenates instances, in the given order, into one
// distributor.HostTable plus the flat daemon list a transport layer
// dials against (spec.md §3: "A federated host table is the
// concatenation, in priority order, of per-instance host tables").
// Instances here are expected to already be ordered by the caller
// (e.g. by the Registry's request() response); Federate does not
// re-sort.
func Federate(instances []Instance) (distributor.HostTable, []Daemon) {
	table := distributor.HostTable{
		Sizes:      make([]int, len(instances)),
		Priorities: make([]int, len(instances)),
	}
	var daemons []Daemon
	for i, inst := range instances {
		table.Sizes[i] = len(inst.Daemons)
		table.Priorities[i] = inst.Priority
		daemons = append(daemons, inst.Daemons...)
	}
	return table, daemons
}
