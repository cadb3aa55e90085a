package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleGenesis = `
chain_id: test-chain
init_time: 2020-01-01T00:00:00Z
witnesses:
  - name: init-witness
    signing_key: STM-test-key
accounts:
  - name: init-witness
    owner_key: STM-owner
    active_key: STM-active
    posting_key: STM-posting
    balance: 1000
    vesting_shares: 1000
`

func writeGenesis(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadGenesisAppliesDefaultConstants(t *testing.T) {
	path := writeGenesis(t, sampleGenesis)
	g, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Equal(t, "test-chain", g.ChainID)
	require.Len(t, g.Witnesses, 1)
	require.Equal(t, DefaultConstants(), g.Constants)
}

func TestLoadGenesisMissingWitnessesErrors(t *testing.T) {
	path := writeGenesis(t, "chain_id: test-chain\ninit_time: 2020-01-01T00:00:00Z\n")
	_, err := LoadGenesis(path)
	require.Error(t, err)
}

func TestLoadGenesisMissingChainIDErrors(t *testing.T) {
	path := writeGenesis(t, "init_time: 2020-01-01T00:00:00Z\nwitnesses:\n  - name: a\n    signing_key: k\n")
	_, err := LoadGenesis(path)
	require.Error(t, err)
}

func TestLoadGenesisMissingFileErrors(t *testing.T) {
	_, err := LoadGenesis(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
