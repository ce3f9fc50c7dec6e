// Package brand provides centralized naming constants for uectl.
//
// The identity is loaded from brand.json at compile time via go:embed so
// scripts and docs generators can read the same file.
package brand

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds all naming information
type Brand struct {
	Name             string `json:"name"`
	LowerName        string `json:"lowerName"`
	Description      string `json:"description"`
	Repository       string `json:"repository"`
	ConfigEnvPrefix  string `json:"configEnvPrefix"`
	DefaultConfigDir string `json:"defaultConfigDir"`
	BinaryName       string `json:"binaryName"`
	ConfigFileName   string `json:"configFileName"`
	SimulatorName    string `json:"simulatorName"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	Description = b.Description
	Repository = b.Repository
	ConfigEnvPrefix = b.ConfigEnvPrefix
	DefaultConfigDir = b.DefaultConfigDir
	BinaryName = b.BinaryName
	ConfigFileName = b.ConfigFileName
	SimulatorName = b.SimulatorName
}

var (
	Name             string
	LowerName        string
	Description      string
	Repository       string
	ConfigEnvPrefix  string
	DefaultConfigDir string
	BinaryName       string
	ConfigFileName   string
	SimulatorName    string

	// Version is set at build time via -ldflags
	Version   = "dev"
	BuildTime = "unknown"
)

// GetConfigDir returns the config directory, checking env vars first.
// Priority: UECTL_CONFIG_DIR > UECTL_PREFIX/config > DefaultConfigDir
func GetConfigDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_CONFIG_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(ConfigEnvPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "config")
	}
	return DefaultConfigDir
}

// DefaultConfigPath returns the config file used when --config is not given.
func DefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}
