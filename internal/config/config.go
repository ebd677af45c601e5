package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigDir is where the host configuration lives.
	DefaultConfigDir = "/etc/dsmr-provision"

	// ConfigFileName is the TOML configuration file name.
	ConfigFileName = "config.toml"

	// DefaultConflictPattern matches the diagnostic Proxmox emits when an
	// AppArmor profile override conflicts with the nesting feature. The
	// exact wording is tool-version-specific, so it stays configurable.
	DefaultConflictPattern = `(?i)(apparmor|lxc\.apparmor\.profile).*(conflict|not allowed|nesting)|nesting.*(conflict|apparmor)`
)

// Environment override variables.
const (
	EnvForceNesting = "DSMR_FORCE_NESTING"
	EnvKeepNesting  = "DSMR_KEEP_NESTING"
	EnvVerbose      = "DSMR_VERBOSE"
)

// HostConfig holds provisioning defaults and host-specific settings,
// loaded from config.toml with built-in fallbacks.
type HostConfig struct {
	// Container sizing and placement defaults.
	Hostname        string `toml:"hostname"`
	Cores           int    `toml:"cores"`
	MemoryMB        int    `toml:"memory_mb"`
	DiskGB          int    `toml:"disk_gb"`
	Bridge          string `toml:"bridge"`
	TemplateStorage string `toml:"template_storage"`
	RootfsStorage   string `toml:"rootfs_storage"`

	// Template is the container template name downloaded via pveam when
	// it is not already cached.
	Template string `toml:"template"`

	// Features is the ordered LXC feature flag list, comma-separated,
	// e.g. "nesting=1,fuse=1,keyctl=1".
	Features string `toml:"features"`

	// ConflictPattern is the regexp matched against pct start diagnostics
	// to recognize the AppArmor/nesting conflict that permits a retry.
	ConflictPattern string `toml:"conflict_pattern"`

	// ComposeURL and EnvURL are the upstream template file locations.
	ComposeURL string `toml:"compose_url"`
	EnvURL     string `toml:"env_url"`

	// ServiceUser is the in-container account that owns the compose stack.
	ServiceUser string `toml:"service_user"`

	// InstallDir is the in-container directory holding the compose files.
	InstallDir string `toml:"install_dir"`

	// Environment overrides, never read from the file.
	ForceNesting bool `toml:"-"`
	KeepNesting  bool `toml:"-"`
	Verbose      bool `toml:"-"`
}

// Default returns the built-in host configuration.
func Default() *HostConfig {
	return &HostConfig{
		Hostname:        "dsmr",
		Cores:           2,
		MemoryMB:        2048,
		DiskGB:          8,
		Bridge:          "vmbr0",
		TemplateStorage: "local",
		RootfsStorage:   "local-lvm",
		Template:        "debian-12-standard_12.7-1_amd64.tar.zst",
		Features:        "nesting=1,fuse=1,keyctl=1",
		ConflictPattern: DefaultConflictPattern,
		ComposeURL:      "https://raw.githubusercontent.com/dsmrreader/dsmr-reader-docker/master/docker-compose.example.yml",
		EnvURL:          "https://raw.githubusercontent.com/dsmrreader/dsmr-reader-docker/master/env.template",
		ServiceUser:     "dsmr",
		InstallDir:      "/opt/dsmr",
	}
}

// Load reads config.toml from dir (if present) over the defaults and
// applies environment overrides from the process environment.
func Load(dir string) (*HostConfig, error) {
	cfg := Default()

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv applies environment overrides using the given lookup function.
func (c *HostConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvForceNesting); ok && isTruthy(v) {
		c.ForceNesting = true
	}
	if v, ok := lookup(EnvKeepNesting); ok && isTruthy(v) {
		c.KeepNesting = true
	}
	if v, ok := lookup(EnvVerbose); ok && isTruthy(v) {
		c.Verbose = true
	}
}

// Validate checks the configuration for values that cannot work.
func (c *HostConfig) Validate() error {
	if c.Cores < 1 {
		return fmt.Errorf("cores must be at least 1, got %d", c.Cores)
	}
	if c.MemoryMB < 256 {
		return fmt.Errorf("memory_mb must be at least 256, got %d", c.MemoryMB)
	}
	if c.DiskGB < 2 {
		return fmt.Errorf("disk_gb must be at least 2, got %d", c.DiskGB)
	}
	if c.Bridge == "" {
		return fmt.Errorf("bridge must not be empty")
	}
	if _, err := regexp.Compile(c.ConflictPattern); err != nil {
		return fmt.Errorf("invalid conflict_pattern: %w", err)
	}
	return nil
}

// ConflictRegexp compiles the conflict signature pattern. Validate has
// already checked it, so a compile failure here falls back to the default.
func (c *HostConfig) ConflictRegexp() *regexp.Regexp {
	re, err := regexp.Compile(c.ConflictPattern)
	if err != nil {
		return regexp.MustCompile(DefaultConflictPattern)
	}
	return re
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
