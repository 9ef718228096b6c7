// Package config loads the TOML configuration for the three GekkoFS
// processes (daemon, registry, client context), following the MustLoad /
// cleanenv pattern used for server configuration in the reference corpus.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DaemonConfig is the per-daemon process configuration: where it stores
// metadata and chunks, which KV engine to use, and its RPC listen address.
type DaemonConfig struct {
	ListenAddress string `toml:"listen_address" env:"GEKKO_DAEMON_LISTEN" env-default:":9000"`
	HostID        string `toml:"host_id" env:"GEKKO_DAEMON_HOST_ID"`
	RootDir       string `toml:"root_dir" env:"GEKKO_DAEMON_ROOT" env-default:"./gekko-daemon-data"`
	// ChunkSizeBytes is CHUNK_SIZE (spec.md §3): a build-time constant in
	// the original, a startup-time config value here — must be a power of two.
	ChunkSizeBytes int64 `toml:"chunk_size_bytes" env:"GEKKO_CHUNK_SIZE" env-default:"67108864"`
	// KVEngine selects between the two acceptable back-ends of spec.md §4.1:
	// "lsm" (merge-operator engine, default) or "lockstore" (coarse-lock
	// read-modify-write emulation).
	KVEngine string `toml:"kv_engine" env:"GEKKO_KV_ENGINE" env-default:"lsm"`
	// FirstChunkOwnerRemovesLocalChunks implements the config flag from
	// spec.md §4.5's delete optimization paragraph.
	FirstChunkOwnerRemovesLocalChunks bool          `toml:"remove_metadata_removes_local_chunk0" env-default:"true"`
	RPCTimeout                        time.Duration `toml:"rpc_timeout" env:"GEKKO_RPC_TIMEOUT" env-default:"30s"`
	LogLevel                          string        `toml:"log_level" env:"GEKKO_LOG_LEVEL" env-default:"info"`
}

// RegistryConfig is the registry process configuration.
type RegistryConfig struct {
	ListenAddress  string `toml:"listen_address" env:"GEKKO_REGISTRY_LISTEN" env-default:":9090"`
	RegistryFile   string `toml:"registry_file" env:"GEKKO_REGISTRY_FILE" env-default:"./gekko_registry.uri"`
	LogLevel       string `toml:"log_level" env:"GEKKO_LOG_LEVEL" env-default:"info"`
}

// ClientConfig is a client process's startup configuration: where its
// federated host file/host-config file live, how many replicas to expect,
// and per-request tunables (spec.md §3 host table, §5 client context).
type ClientConfig struct {
	RegistryURIFile  string        `toml:"registry_uri_file" env:"GEKKO_REGISTRY_URI_FILE"`
	Workflows        []string      `toml:"workflows" env:"GEKKO_WORKFLOWS" env-separator:";"`
	HostFile         string        `toml:"host_file" env:"GEKKO_HOST_FILE" env-default:"./gekko_hosts.txt"`
	HostConfigFile   string        `toml:"host_config_file" env:"GEKKO_HOSTCONFIG_FILE" env-default:"./gekko_hosts.config"`
	ReplicaCount     int           `toml:"replica_count" env:"GEKKO_REPLICAS" env-default:"0"`
	RPCTimeout       time.Duration `toml:"rpc_timeout" env:"GEKKO_RPC_TIMEOUT" env-default:"30s"`
	ReadRetryAttempts int          `toml:"read_retry_attempts" env:"GEKKO_READ_RETRIES" env-default:"3"`
	LogLevel         string        `toml:"log_level" env:"GEKKO_LOG_LEVEL" env-default:"info"`
	// RandomSeed seeds the replica-selection PRNG (spec.md §7, §9); zero
	// means "seed from process entropy", set explicitly in tests.
	RandomSeed int64 `toml:"random_seed"`
}

// MustLoadDaemon reads and environment-expands a daemon TOML config file.
// Panics on error, mirroring the teacher's MustLoad for process-boot
// configuration that should simply abort startup if broken.
func MustLoadDaemon(path string) *DaemonConfig {
	var cfg DaemonConfig
	mustLoad(path, &cfg)
	return &cfg
}

func MustLoadRegistry(path string) *RegistryConfig {
	var cfg RegistryConfig
	mustLoad(path, &cfg)
	return &cfg
}

func MustLoadClient(path string) *ClientConfig {
	var cfg ClientConfig
	mustLoad(path, &cfg)
	return &cfg
}

func mustLoad(path string, cfg any) {
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			panic(fmt.Sprintf("config: reading from environment: %v", err))
		}
		return
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic(fmt.Sprintf("config: file does not exist: %s", path))
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		panic(fmt.Sprintf("config: cannot read %s: %v", path, err))
	}
}
