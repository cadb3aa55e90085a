// Package config loads the node's genesis/chain-config file: the initial
// witness list, initial account balances, hardfork schedule, and the
// constants table spec.md §1 says "should be externalized" rather than
// compiled in.
//
// Grounded on beacon-chain/config/params' YAML-loaded parameter-set pattern
// (github.com/prysmaticlabs/prysm): a single struct unmarshaled from a
// config file at startup, validated once, then treated as read-only for the
// rest of the process's life.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// InitialWitness seeds one witness record at genesis.
type InitialWitness struct {
	Name       string `yaml:"name"`
	SigningKey string `yaml:"signing_key"`
}

// InitialAccount seeds one account record at genesis.
type InitialAccount struct {
	Name          string `yaml:"name"`
	OwnerKey      string `yaml:"owner_key"`
	ActiveKey     string `yaml:"active_key"`
	PostingKey    string `yaml:"posting_key"`
	Balance       uint64 `yaml:"balance"`
	VestingShares uint64 `yaml:"vesting_shares"`
}

// HardforkEntry is one line of the compiled-in hardfork schedule (spec.md
// §4.10).
type HardforkEntry struct {
	Number  uint32    `yaml:"number"`
	Version string    `yaml:"version"`
	Time    time.Time `yaml:"time"`
}

// Constants holds the externalized numeric parameters spec.md §1 calls out,
// rather than compiling them in as untouchable literals.
type Constants struct {
	BlockIntervalSeconds   uint32 `yaml:"block_interval_seconds"`
	MaxSigCheckDepth       uint8  `yaml:"max_sig_check_depth"`
	IrreversibleThresholdBP uint16 `yaml:"irreversible_threshold_bp"`
	MaxVirtualBandwidth    uint64 `yaml:"max_virtual_bandwidth"`
	FlushBlocksMin         uint32 `yaml:"flush_blocks_min"`
	FlushBlocksMax         uint32 `yaml:"flush_blocks_max"`
}

// DefaultConstants returns spec-default values for every externalized
// constant, used when a genesis file omits the "constants" section.
func DefaultConstants() Constants {
	return Constants{
		BlockIntervalSeconds:    3,
		MaxSigCheckDepth:        2,
		IrreversibleThresholdBP: 7000,
		MaxVirtualBandwidth:     10_000_000_000_000,
		FlushBlocksMin:          900,
		FlushBlocksMax:          1000,
	}
}

// Genesis is the full genesis/chain-config file of SPEC_FULL.md's
// Configuration section.
type Genesis struct {
	ChainID   string           `yaml:"chain_id"`
	InitTime  time.Time        `yaml:"init_time"`
	Witnesses []InitialWitness `yaml:"witnesses"`
	Accounts  []InitialAccount `yaml:"accounts"`
	Hardforks []HardforkEntry  `yaml:"hardforks"`
	Constants Constants        `yaml:"constants"`
}

// LoadGenesis reads and validates a genesis file at path.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading genesis file")
	}
	var g Genesis
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return nil, errors.Wrap(err, "parsing genesis file")
	}
	if g.Constants == (Constants{}) {
		g.Constants = DefaultConstants()
	}
	if len(g.Witnesses) == 0 {
		return nil, errors.New("genesis file names no witnesses")
	}
	if g.ChainID == "" {
		return nil, errors.New("genesis file has no chain_id")
	}
	return &g, nil
}

// NodeConfig is the node binary's own runtime configuration, bound from CLI
// flags in cmd/ladderchaind (SPEC_FULL.md Configuration section). It has no
// p2p or rpc settings: networking and RPC are out-of-scope external
// collaborators per spec.md §1.
type NodeConfig struct {
	DataDir      string
	GenesisPath  string
	WitnessName  string
	SigningKeyWIF string
	LogLevel     string
}
