package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSchemeParamsDecodesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheme.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
Rows = 64
NumServers = 3
Threshold = 3
Columns = 16
RecordBytes = 8
`), 0644))

	sp, err := LoadSchemeParams(path)
	require.NoError(t, err)
	require.Equal(t, 64, sp.Rows)
	require.Equal(t, 3, sp.NumServers)
	require.Equal(t, 16, sp.Columns)

	params, err := sp.HybridParams()
	require.NoError(t, err)
	require.Equal(t, 64, params.ITPIR.Rows)
	require.Equal(t, 16, params.CPIR.Columns)
}

func TestLoadTargetsDecodesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
servers:
  - 127.0.0.1:7000
  - 127.0.0.1:7001
  - 127.0.0.1:7002
`), 0644))

	targets, err := LoadTargets(path)
	require.NoError(t, err)
	require.Equal(t, []string{"127.0.0.1:7000", "127.0.0.1:7001", "127.0.0.1:7002"}, targets.Servers)
}

func TestLoadTargetsRejectsEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`servers: []`), 0644))

	_, err := LoadTargets(path)
	require.Error(t, err)
}
