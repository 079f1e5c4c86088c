package dirchecker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the dirchecker configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
}

// WalkConfig represents traversal policy configuration
type WalkConfig struct {
	FollowSymlinks bool
	IncludeHidden  bool
	Exclude        []string // doublestar globs
	IgnoreFile     string   // gitignore-syntax file name at the root
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int    // 0 means one per available CPU
	HashBuffer  string // read buffer per worker, e.g. "2M"
}

// VerifyConfig represents verification and strictness configuration
type VerifyConfig struct {
	ForceFullHash bool
	Strict        bool
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // 0=quiet, 1=basic, 2=detailed, 3=trace
	Debug string // comma-separated debug flags
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash        *HashConfig
	Walk        *WalkConfig
	Performance *PerformanceConfig
	Verify      *VerifyConfig
	Verbose     *VerboseConfig
}

// iniLoadOptions lets exclude be given on several lines of [walk]
var iniLoadOptions = ini.LoadOptions{AllowShadows: true}

// LoadConfig loads configuration from configPath. A missing file yields the defaults
// without creating anything on disk.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{configPath: configPath}

	if configPath == "" {
		cfg.ini = ini.Empty(iniLoadOptions)
		return cfg, cfg.setDefaults()
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		cfg.ini = ini.Empty(iniLoadOptions)
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		return cfg, nil
	}

	iniFile, err := ini.LoadSources(iniLoadOptions, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.ini = iniFile
	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section, key, value string
	}{
		{"filehash", "default", DefaultHashAlgorithm},
		{"walk", "follow_symlinks", "false"},
		{"walk", "include_hidden", "true"},
		{"walk", "exclude", ""},
		{"walk", "ignore_file", ""},
		{"performance", "hash_workers", "0"},
		{"performance", "hash_buffer", DefaultHashBuffer},
		{"verify", "force_full_hash", "true"},
		{"verify", "strict", "false"},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
	}

	for _, d := range defaults {
		section := c.ini.Section(d.section)
		if _, err := section.NewKey(d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", d.section, d.key, err)
		}
	}
	return nil
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	return &HashConfig{
		Default: c.ini.Section("filehash").Key("default").MustString(DefaultHashAlgorithm),
	}
}

// GetWalkConfig returns the traversal configuration
func (c *Config) GetWalkConfig() *WalkConfig {
	section := c.ini.Section("walk")
	return &WalkConfig{
		FollowSymlinks: section.Key("follow_symlinks").MustBool(false),
		IncludeHidden:  section.Key("include_hidden").MustBool(true),
		Exclude:        excludePatterns(section.Key("exclude")),
		IgnoreFile:     strings.TrimSpace(section.Key("ignore_file").String()),
	}
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	section := c.ini.Section("performance")
	return &PerformanceConfig{
		HashWorkers: section.Key("hash_workers").MustInt(0),
		HashBuffer:  section.Key("hash_buffer").MustString(DefaultHashBuffer),
	}
}

// GetVerifyConfig returns the verification configuration
func (c *Config) GetVerifyConfig() *VerifyConfig {
	section := c.ini.Section("verify")
	return &VerifyConfig{
		ForceFullHash: section.Key("force_full_hash").MustBool(true),
		Strict:        section.Key("strict").MustBool(false),
	}
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	section := c.ini.Section("verbose")
	return &VerboseConfig{
		Level: section.Key("level").MustInt(0),
		Debug: section.Key("debug").String(),
	}
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:        c.GetHashConfig(),
		Walk:        c.GetWalkConfig(),
		Performance: c.GetPerformanceConfig(),
		Verify:      c.GetVerifyConfig(),
		Verbose:     c.GetVerboseConfig(),
	}
}

// Options converts the configuration into checker options, validating every value
func (c *Config) Options() (Options, error) {
	if err := c.Validate(); err != nil {
		return Options{}, err
	}

	all := c.GetAllConfig()
	opts := DefaultOptions()
	opts.Policy = Policy{
		FollowSymlinks: all.Walk.FollowSymlinks,
		IncludeHidden:  all.Walk.IncludeHidden,
		HashAlgorithm:  strings.ToLower(all.Hash.Default),
		Exclude:        all.Walk.Exclude,
		IgnoreFile:     all.Walk.IgnoreFile,
	}
	if all.Performance.HashWorkers > 0 {
		opts.HashWorkers = all.Performance.HashWorkers
	}
	bufferSize, err := ParseHumanSize(all.Performance.HashBuffer)
	if err != nil {
		return Options{}, fmt.Errorf("invalid hash buffer: %w", err)
	}
	opts.HashBuffer = bufferSize
	opts.ForceFullHash = all.Verify.ForceFullHash
	opts.Strict = all.Verify.Strict
	return opts, nil
}

// Validate checks every configured value
func (c *Config) Validate() error {
	all := c.GetAllConfig()

	if err := ValidateHashAlgorithm(all.Hash.Default); err != nil {
		return err
	}
	for _, pattern := range all.Walk.Exclude {
		if err := ValidatePattern(pattern); err != nil {
			return err
		}
	}
	if all.Performance.HashWorkers != 0 {
		if err := ValidateHashWorkers(all.Performance.HashWorkers); err != nil {
			return err
		}
	}
	if err := ValidateHashBuffer(all.Performance.HashBuffer); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return err
	}
	return nil
}

// Set stores a value and writes the file
func (c *Config) Set(section, key, value string) error {
	c.ini.Section(section).Key(key).SetValue(value)
	return c.Save()
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("config has no file path")
	}
	return c.ini.SaveTo(c.configPath)
}

// overrideKeys maps override names to their section and key
var overrideKeys = map[string][2]string{
	"hash":            {"filehash", "default"},
	"follow_symlinks": {"walk", "follow_symlinks"},
	"include_hidden":  {"walk", "include_hidden"},
	"exclude":         {"walk", "exclude"},
	"ignore_file":     {"walk", "ignore_file"},
	"hash_workers":    {"performance", "hash_workers"},
	"hash_buffer":     {"performance", "hash_buffer"},
	"force_full_hash": {"verify", "force_full_hash"},
	"strict":          {"verify", "strict"},
	"level":           {"verbose", "level"},
	"debug":           {"verbose", "debug"},
}

// ApplyOverrides applies command-line overrides to the in-memory configuration
// Accepts strings like "hash:sha512", "strict:true", "hash_workers:8"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		target, ok := overrideKeys[key]
		if !ok {
			return fmt.Errorf("unsupported override key '%s'", key)
		}
		section := c.ini.Section(target[0])
		if section.HasKey(target[1]) {
			// Drop shadows so the override replaces every line from the file
			section.DeleteKey(target[1])
		}
		if _, err := section.NewKey(target[1], value); err != nil {
			return fmt.Errorf("failed to apply override '%s': %w", override, err)
		}
	}

	return c.Validate()
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, ok := HashTypeFromName(algorithm); !ok {
		return fmt.Errorf("unsupported hash algorithm: %s (supported: sha1, sha256, sha512)", algorithm)
	}
	return nil
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > MaxHashWorkers {
		return fmt.Errorf("hash workers should not exceed %d, got: %d", MaxHashWorkers, workers)
	}
	return nil
}

// ValidateHashBuffer validates the per-worker read buffer size
func ValidateHashBuffer(size string) error {
	n, err := ParseHumanSize(size)
	if err != nil {
		return fmt.Errorf("invalid hash buffer: %w", err)
	}
	if n < 512 {
		return fmt.Errorf("hash buffer must be at least 512 bytes, got: %s", size)
	}
	return nil
}

// excludePatterns collects patterns from every exclude line, each of which may
// hold a comma separated list
func excludePatterns(key *ini.Key) []string {
	var out []string
	for _, value := range key.ValueWithShadows() {
		out = append(out, SplitPatterns(value)...)
	}
	return out
}

// formatBool renders a bool the way the config file stores it
func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
