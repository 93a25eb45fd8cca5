package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/calstore/internal/access"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "/run/calstore/calstore.sock", cfg.Socket)
	assert.Equal(t, 30*time.Second, cfg.ReminderInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, access.GrantReadWrite, cfg.Access.Default)
	assert.Empty(t, cfg.Access.Users)
}

func TestParse_File(t *testing.T) {
	cfg, err := Parse([]byte(`
socket: "/tmp/cal.sock"
reminder_interval: "5m"
log_level: "debug"
access: {
	default: "read"
	users: "1000": "read,write"
	groups: "50": "none"
}
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cal.sock", cfg.Socket)
	assert.Equal(t, 5*time.Minute, cfg.ReminderInterval)
	assert.Equal(t, access.GrantRead, cfg.Access.Default)
	assert.Equal(t, access.GrantReadWrite, cfg.Access.Users[1000])
	assert.Equal(t, access.GrantNone, cfg.Access.Groups[50])
}

func TestParse_SchemaViolations(t *testing.T) {
	for name, src := range map[string]string{
		"bad grant":    `access: default: "admin"`,
		"bad uid":      `access: users: "root": "read"`,
		"bad level":    `log_level: "chatty"`,
		"bad interval": `reminder_interval: "soon"`,
		"unknown key":  `sockett: "/tmp/x"`,
	} {
		_, err := Parse([]byte(src))
		assert.Error(t, err, name)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calstore.cue")
	require.NoError(t, os.WriteFile(path, []byte(`database: "/from/file.db"`), 0o644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CALSTORE_NOTIFY_DIR=/from/dotenv\n"), 0o644))

	t.Setenv("CALSTORE_SOCKET", "/from/env.sock")
	t.Setenv("CALSTORE_NOTIFY_DIR", "")
	os.Unsetenv("CALSTORE_NOTIFY_DIR")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.Database)
	assert.Equal(t, "/from/env.sock", cfg.Socket)
	assert.Equal(t, "/from/dotenv", cfg.NotifyDir)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Database)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"), "")
	assert.Error(t, err)
}
