package dirchecker

import "context"

// CreateIndex indexes rootDir with the default options
func CreateIndex(ctx context.Context, rootDir string) (*Index, error) {
	checker, err := NewDirectoryChecker(DefaultOptions())
	if err != nil {
		return nil, err
	}
	return checker.CreateIndex(ctx, rootDir)
}

// IsIndexValid verifies rootDir against idx with the default options
func IsIndexValid(ctx context.Context, idx *Index, rootDir string) (bool, error) {
	checker, err := NewDirectoryChecker(DefaultOptions())
	if err != nil {
		return false, err
	}
	return checker.IsIndexValid(ctx, idx, rootDir)
}

// InitDebugFlags initialises debug flags - for CLI compatibility
func InitDebugFlags(flagsStr string) {
	if flagsStr != "" {
		SetDebugFlags(flagsStr)
	}
}

// ApplyVerboseConfig applies the [verbose] section of cfg to the global log settings
func ApplyVerboseConfig(cfg *Config) {
	verboseConfig := cfg.GetVerboseConfig()
	SetVerboseLevel(verboseConfig.Level)
	InitDebugFlags(verboseConfig.Debug)
}
