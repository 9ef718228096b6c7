package registryservice

import (
	"fmt"
	"os"

	"github.com/gekkofs/gekkofs-go/internal/hostmap"
	"gopkg.in/yaml.v3"
)

// manifestInstance is one instance's operator-facing view in the YAML
// manifest mirror.
type manifestInstance struct {
	Priority int      `yaml:"priority"`
	Daemons  []string `yaml:"daemons"`
}

// manifest is the single merged-view alternative to the host file/
// host-config file pair spec.md §6 mandates (see SPEC_FULL.md's DOMAIN
// STACK section). The registry only writes it; it never reads one back.
type manifest struct {
	Instances []manifestInstance `yaml:"instances"`
}

// WriteManifest renders the merged federation view Request() just
// computed as a single YAML file, in addition to the mandatory
// two-file host file/host-config file output.
func WriteManifest(path string, daemons []hostmap.Daemon, configs []hostmap.InstanceConfig) error {
	m := manifest{Instances: make([]manifestInstance, len(configs))}
	offset := 0
	for i, c := range configs {
		names := make([]string, c.HostCount)
		for j := 0; j < c.HostCount; j++ {
			names[j] = daemons[offset+j].URI
		}
		m.Instances[i] = manifestInstance{Priority: c.Priority, Daemons: names}
		offset += c.HostCount
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("registryservice: marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("registryservice: writing manifest: %w", err)
	}
	return nil
}

// RequestWithManifest behaves like Request but additionally writes the
// YAML manifest mirror to manifestPath when manifestPath is non-empty.
func (r *Registry) RequestWithManifest(flowList, outputHostConfigFile, outputHostFile, manifestPath string) error {
	if err := r.Request(flowList, outputHostConfigFile, outputHostFile); err != nil {
		return err
	}
	if manifestPath == "" {
		return nil
	}

	configFile, err := os.Open(outputHostConfigFile)
	if err != nil {
		return fmt.Errorf("registryservice: reopening merged host-config file: %w", err)
	}
	defer configFile.Close()
	configs, err := hostmap.ParseHostConfigFile(configFile)
	if err != nil {
		return err
	}

	hostFile, err := os.Open(outputHostFile)
	if err != nil {
		return fmt.Errorf("registryservice: reopening merged host file: %w", err)
	}
	defer hostFile.Close()
	daemons, err := hostmap.ParseHostFile(hostFile)
	if err != nil {
		return err
	}

	return WriteManifest(manifestPath, daemons, configs)
}
