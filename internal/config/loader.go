package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// LoadFile loads a config file (HCL or JSON), applies defaults and validates.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return LoadJSON(data, path)
	}
	return LoadHCL(data, path)
}

// LoadFileOrDefault loads path when it exists. When the file is missing and
// the caller did not ask for it explicitly, built-in defaults are returned.
func LoadFileOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := LoadFile(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return nil, err
}

// LoadHCL loads config from HCL bytes
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}
	return decode(file)
}

// LoadJSON loads config from HCL-flavoured JSON bytes.
func LoadJSON(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseJSON(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("JSON parse error: %s", diags.Error())
	}
	return decode(file)
}

func decode(file *hcl.File) (*Config, error) {
	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}

	cfg.ApplyDefaults()
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("configuration invalid: %w", errs)
	}
	return &cfg, nil
}
