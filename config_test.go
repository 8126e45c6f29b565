package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func Test_readConfig_Defaults(t *testing.T) {
	cfg, err := readConfig(writeConfig(t, "doc_root: docs\n"))
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.DocRoot)
	assert.Equal(t, "servicelog.db", cfg.DB)
	assert.Equal(t, TransportSSE, cfg.Transport)
	assert.Equal(t, 500*time.Millisecond, cfg.MergeEventsDelay())
	assert.Equal(t, records.English, cfg.Labels())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func Test_readConfig_Full(t *testing.T) {
	cfg, err := readConfig(writeConfig(t, `
log: server.log
db: ":memory:"
doc_root: manuals
write_debounce_ms: 100
server_addr: 0.0.0.0:9000
transport: stdio
locale: de
timezone: UTC
`))
	require.NoError(t, err)

	assert.Equal(t, "server.log", cfg.LogFile)
	assert.Equal(t, ":memory:", cfg.DB)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, records.German, cfg.Labels())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func Test_readConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"transport", "transport: grpc\n", `invalid transport "grpc"`},
		{"locale", "locale: fr\n", `invalid locale "fr"`},
		{"db", "db: \"\"\n", `invalid db ""`},
		{"sse address", "server_addr: \"\"\n", "invalid server_addr"},
		{"timezone", "timezone: Mars/Olympus\n", `unknown timezone "Mars/Olympus"`},
		{"debounce", "write_debounce_ms: -1\n", "write_debounce_ms"},
		{"unknown key", "chunk_size: 10\n", "unable to parse config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readConfig(writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func Test_readConfig_Missing(t *testing.T) {
	_, err := readConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "unable to open config file")
}

func Test_readConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVICELOG_DB", "override.db")
	t.Setenv("SERVICELOG_TRANSPORT", "stdio")
	t.Setenv("SERVICELOG_WRITE_DEBOUNCE_MS", "42")

	cfg, err := readConfig(writeConfig(t, "db: file.db\ntransport: sse\nserver_addr: \"\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "override.db", cfg.DB)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, 42*time.Millisecond, cfg.MergeEventsDelay())

	t.Setenv("SERVICELOG_WRITE_DEBOUNCE_MS", "soon")
	_, err = readConfig(writeConfig(t, "db: file.db\n"))
	assert.ErrorContains(t, err, "SERVICELOG_WRITE_DEBOUNCE_MS")
}

func Test_loadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVICELOG_LOCALE=de\n"), 0o644))
	t.Setenv("SERVICELOG_LOCALE", "")
	require.NoError(t, os.Unsetenv("SERVICELOG_LOCALE"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "de", os.Getenv("SERVICELOG_LOCALE"))

	cfg, err := readConfig(writeConfig(t, "db: file.db\n"))
	require.NoError(t, err)
	assert.Equal(t, records.German, cfg.Labels())
}
