// Package config loads the example daemon's (cmd/routerfabricd)
// configuration. The routing fabric core itself takes no CLI, env-vars,
// or persisted state (spec.md §6); this package only configures the
// Router-Factory's default address and the admin/bridge listeners around
// it, the ambient concern spec.md's filtered-down teacher pack didn't
// retain a file for, grounded instead on
// Chris-Alexander-Pop-go-hyperforge's pkg/config use of
// github.com/ilyakaznacheev/cleanenv and github.com/joho/godotenv.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tinode/jsonco"
)

// Config is the example daemon's top-level configuration.
type Config struct {
	// DefaultAddress seeds the Router-Factory's default-address variant
	// (spec.md §4.G).
	DefaultAddress string `env:"ROUTEFABRIC_DEFAULT_ADDRESS" env-default:"me"`

	// AdminAddr is the admin HTTP surface's listen address.
	AdminAddr string `env:"ROUTEFABRIC_ADMIN_ADDR" env-default:":8090"`

	// BridgeListenAddr is the websocket bridge's listen address, if
	// cluster bridging is enabled.
	BridgeListenAddr string `env:"ROUTEFABRIC_BRIDGE_ADDR" env-default:":9090"`

	// NATSURL is the NATS server the nats-backed bridge connects to, if
	// configured.
	NATSURL string `env:"ROUTEFABRIC_NATS_URL" env-default:"nats://127.0.0.1:4222"`

	// SnowflakeWorkerID distinguishes this process's cluster-node id
	// generator from any peer sharing the same cluster.
	SnowflakeWorkerID uint32 `env:"ROUTEFABRIC_WORKER_ID" env-default:"0"`
}

// Peers holds the static address-to-peer directory for the cluster
// bridge, loaded separately from a JSON-with-comments file via
// github.com/tinode/jsonco (a direct teacher dependency, used upstream
// for tinode.conf) so operators can annotate peer entries.
type Peers struct {
	Entries []PeerEntry `json:"peers"`
}

// PeerEntry binds one logical address to the peer that owns it.
type PeerEntry struct {
	Address string `json:"address"`
	Peer    string `json:"peer"`
}

// Load reads .env (if present, via godotenv) then environment variables
// (via cleanenv) into a Config.
func Load() (Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	return cfg, nil
}

// LoadPeers reads a JSON-with-comments peer directory file from path.
func LoadPeers(path string) (Peers, error) {
	f, err := os.Open(path)
	if err != nil {
		return Peers{}, fmt.Errorf("config: open peers file: %w", err)
	}
	defer f.Close()

	var peers Peers
	dec := json.NewDecoder(jsonco.New(f))
	if err := dec.Decode(&peers); err != nil {
		return Peers{}, fmt.Errorf("config: decode peers file: %w", err)
	}
	return peers, nil
}
