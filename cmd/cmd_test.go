package cmd

import (
	"testing"

	"github.com/arlindoconceicao/vertex-sub000/enclave"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestWalletCommands(t *testing.T) {
	kdf := enclave.DefaultKdf
	enclave.DefaultKdf.Memory, enclave.DefaultKdf.Time = 1024, 1
	defer func() { enclave.DefaultKdf = kdf }()

	dir := t.TempDir()
	common := []string{
		"--wallet-dir", dir,
		"--wallet-name", "cli",
		"--wallet-key", "key1",
	}
	with := func(args ...string) []string {
		return append(append([]string{}, args...), common...)
	}

	t.Run("dry run only validates", func(t *testing.T) {
		require.NoError(t, execute(t, with("wallet", "create", "--dry-run")...))
		require.False(t, enclave.Exists(dir, "cli"))
	})
	t.Run("create", func(t *testing.T) {
		require.NoError(t, execute(t, with("wallet", "create", "--dry-run=false",
			"--seed", "000000000000000000000000Trustee1")...))
		require.True(t, enclave.Exists(dir, "cli"))
	})
	t.Run("create twice", func(t *testing.T) {
		require.Error(t, execute(t, with("wallet", "create", "--dry-run=false",
			"--seed", "")...))
	})
	t.Run("did list", func(t *testing.T) {
		require.NoError(t, execute(t, with("did", "list", "--dry-run=false",
			"--type", "own")...))
	})
	t.Run("bad did type", func(t *testing.T) {
		require.Error(t, execute(t, with("did", "list", "--dry-run=false",
			"--type", "theirs")...))
	})
}

func TestTree(t *testing.T) {
	require.NoError(t, execute(t, "tree", "wallet"))
	require.NoError(t, execute(t, "version"))
}
