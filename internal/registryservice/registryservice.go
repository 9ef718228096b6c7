// Package registryservice implements the Registry (spec.md §4.7,
// component H): the standalone service that records, per workflow,
// where its host-config/host file pair lives, and that composes a
// semicolon-separated list of workflows into one merged, priority-
// ordered federated view.
package registryservice

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gekkofs/gekkofs-go/internal/hostmap"
	"github.com/gekkofs/gekkofs-go/internal/logging"
)

var (
	ErrWorkflowAlreadyExists = errors.New("registryservice: workflow already registered")
	ErrWorkflowNotFound      = errors.New("registryservice: workflow not found")
)

// Association is what Register stores for one workflow: the paths to
// its host-config file and host file (spec.md §4.7: "no persistence
// required").
type Association struct {
	HostConfigFile string
	HostFile       string
}

// Registry tracks `registered_workflows: name -> (host_config_file_path,
// host_file_path)`. Grounded on the teacher's
// internal/node_registry.InMemoryNodeRegistry shape: a small mutex-
// guarded map, no persistence.
type Registry struct {
	mu        sync.RWMutex
	workflows map[string]Association
	log       logging.LogService
}

// New builds an empty Registry. log may be logging.Nop().
func New(log logging.LogService) *Registry {
	return &Registry{workflows: make(map[string]Association), log: log}
}

// Register stores the (host_config_file, host_file) association for
// workflow_name, overwriting any prior registration (spec.md §4.7 does
// not forbid re-registration; it only says "stores the association").
func (r *Registry) Register(workflowName, hostConfigFile, hostFile string) error {
	if workflowName == "" {
		return fmt.Errorf("registryservice: empty workflow name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[workflowName] = Association{HostConfigFile: hostConfigFile, HostFile: hostFile}
	r.log.Info(logging.LogEvent{
		Message:  "registered workflow",
		Metadata: map[string]any{"workflow": workflowName},
	})
	return nil
}

// instanceEntry is one (host_count, priority) line from a workflow's
// host-config file, together with the daemons it covers and the
// ranking key spec.md §4.7 folds on: (list_position_of_workflow,
// original_priority), lower wins.
type instanceEntry struct {
	listPosition int
	priority     int
	daemons      []hostmap.Daemon
}

// Request implements spec.md §4.7's request(): loads every workflow
// named in flowList (semicolon-separated, in list order), folds their
// instances into one deduplicated, priority-ordered union, and writes
// that union to outputHostFile/outputHostConfigFile.
func (r *Registry) Request(flowList, outputHostConfigFile, outputHostFile string) error {
	names := strings.Split(flowList, ";")

	var entries []instanceEntry
	for pos, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		assoc, err := r.lookup(name)
		if err != nil {
			return err
		}
		workflowEntries, err := r.loadWorkflow(pos, assoc)
		if err != nil {
			return fmt.Errorf("registryservice: loading workflow %q: %w", name, err)
		}
		entries = append(entries, workflowEntries...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].listPosition != entries[j].listPosition {
			return entries[i].listPosition < entries[j].listPosition
		}
		return entries[i].priority < entries[j].priority
	})

	seen := make(map[string]bool)
	var mergedDaemons []hostmap.Daemon
	var mergedConfigs []hostmap.InstanceConfig
	// spec.md §8 scenario 6's worked example ranks the merged output
	// starting at 1, not 0.
	rank := 1
	for _, e := range entries {
		var kept []hostmap.Daemon
		for _, d := range e.daemons {
			if seen[d.URI] {
				continue
			}
			seen[d.URI] = true
			kept = append(kept, d)
		}
		if len(kept) == 0 {
			continue
		}
		mergedDaemons = append(mergedDaemons, kept...)
		mergedConfigs = append(mergedConfigs, hostmap.InstanceConfig{HostCount: len(kept), Priority: rank})
		rank++
	}

	if err := writeHostFile(outputHostFile, mergedDaemons); err != nil {
		return err
	}
	if err := writeHostConfigFile(outputHostConfigFile, mergedConfigs); err != nil {
		return err
	}
	return nil
}

func (r *Registry) lookup(workflowName string) (Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assoc, ok := r.workflows[workflowName]
	if !ok {
		return Association{}, ErrWorkflowNotFound
	}
	return assoc, nil
}

// loadWorkflow reads one workflow's host-config/host file pair and
// splits the flat daemon list across its instances per host_count.
func (r *Registry) loadWorkflow(listPosition int, assoc Association) ([]instanceEntry, error) {
	configFile, err := os.Open(assoc.HostConfigFile)
	if err != nil {
		return nil, fmt.Errorf("opening host-config file: %w", err)
	}
	defer configFile.Close()
	configs, err := hostmap.ParseHostConfigFile(configFile)
	if err != nil {
		return nil, err
	}

	hostFile, err := os.Open(assoc.HostFile)
	if err != nil {
		return nil, fmt.Errorf("opening host file: %w", err)
	}
	defer hostFile.Close()
	daemons, err := hostmap.ParseHostFile(hostFile)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range configs {
		total += c.HostCount
	}
	if total != len(daemons) {
		return nil, fmt.Errorf("host-config total %d does not match host file line count %d", total, len(daemons))
	}

	entries := make([]instanceEntry, 0, len(configs))
	offset := 0
	for _, c := range configs {
		entries = append(entries, instanceEntry{
			listPosition: listPosition,
			priority:     c.Priority,
			daemons:      append([]hostmap.Daemon(nil), daemons[offset:offset+c.HostCount]...),
		})
		offset += c.HostCount
	}
	return entries, nil
}

func writeHostFile(path string, daemons []hostmap.Daemon) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("registryservice: creating host file: %w", err)
	}
	defer f.Close()
	return hostmap.WriteHostFile(f, daemons)
}

func writeHostConfigFile(path string, configs []hostmap.InstanceConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("registryservice: creating host-config file: %w", err)
	}
	defer f.Close()
	return hostmap.WriteHostConfigFile(f, configs)
}
