// Package config loads the daemon configuration: an optional CUE file
// checked against the embedded schema, then CALSTORE_* environment
// overrides (optionally read from a .env file).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"

	"github.com/roach88/calstore/internal/access"
)

//go:embed schema.cue
var schemaCUE string

// Config is the resolved daemon configuration.
type Config struct {
	Socket           string
	ReminderSocket   string
	Database         string
	NotifyDir        string
	MetricsAddr      string
	ReminderInterval time.Duration
	LogLevel         string
	Access           access.Policy
}

// fileConfig mirrors #Config for decoding.
type fileConfig struct {
	Socket           string `json:"socket"`
	ReminderSocket   string `json:"reminder_socket"`
	Database         string `json:"database"`
	NotifyDir        string `json:"notify_dir"`
	MetricsAddr      string `json:"metrics_addr"`
	ReminderInterval string `json:"reminder_interval"`
	LogLevel         string `json:"log_level"`
	Access           struct {
		Default string            `json:"default"`
		Users   map[string]string `json:"users"`
		Groups  map[string]string `json:"groups"`
	} `json:"access"`
}

// Load resolves the configuration. path names a CUE file and may be empty
// for defaults only; envFile names a dotenv file and is skipped when
// missing.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var src []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		src = b
	}
	fc, err := decode(path, src)
	if err != nil {
		return nil, err
	}
	applyEnv(fc)
	return resolve(fc)
}

// Parse resolves a configuration from CUE source, without environment
// overrides.
func Parse(src []byte) (*Config, error) {
	fc, err := decode("config.cue", src)
	if err != nil {
		return nil, err
	}
	return resolve(fc)
}

func decode(filename string, src []byte) (*fileConfig, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		file := ctx.CompileBytes(src, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return nil, fmt.Errorf("compile %s: %w", filename, err)
		}
		v = v.Unify(file)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate %s: %w", filename, err)
	}

	var fc fileConfig
	if err := v.Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return &fc, nil
}

var envVars = []struct {
	name string
	dst  func(*fileConfig) *string
}{
	{"CALSTORE_SOCKET", func(c *fileConfig) *string { return &c.Socket }},
	{"CALSTORE_REMINDER_SOCKET", func(c *fileConfig) *string { return &c.ReminderSocket }},
	{"CALSTORE_DATABASE", func(c *fileConfig) *string { return &c.Database }},
	{"CALSTORE_NOTIFY_DIR", func(c *fileConfig) *string { return &c.NotifyDir }},
	{"CALSTORE_METRICS_ADDR", func(c *fileConfig) *string { return &c.MetricsAddr }},
	{"CALSTORE_REMINDER_INTERVAL", func(c *fileConfig) *string { return &c.ReminderInterval }},
	{"CALSTORE_LOG_LEVEL", func(c *fileConfig) *string { return &c.LogLevel }},
	{"CALSTORE_ACCESS_DEFAULT", func(c *fileConfig) *string { return &c.Access.Default }},
}

func applyEnv(fc *fileConfig) {
	for _, e := range envVars {
		if v, ok := os.LookupEnv(e.name); ok {
			*e.dst(fc) = v
		}
	}
}

func resolve(fc *fileConfig) (*Config, error) {
	interval, err := time.ParseDuration(fc.ReminderInterval)
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("invalid reminder_interval %q", fc.ReminderInterval)
	}
	switch fc.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log_level %q", fc.LogLevel)
	}

	policy, err := access.ParsePolicy(fc.Access.Default, fc.Access.Users, fc.Access.Groups)
	if err != nil {
		return nil, fmt.Errorf("access.%w", err)
	}

	return &Config{
		Socket:           fc.Socket,
		ReminderSocket:   fc.ReminderSocket,
		Database:         fc.Database,
		NotifyDir:        fc.NotifyDir,
		MetricsAddr:      fc.MetricsAddr,
		ReminderInterval: interval,
		LogLevel:         fc.LogLevel,
		Access:           policy,
	}, nil
}
