// Package config loads the tplc HCL configuration file and HCL variable
// files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the decoded configuration file.
type Config struct {
	TemplateDir  string       `hcl:"template_dir,optional"`
	DefaultDir   string       `hcl:"default_dir,optional"`
	SiteDir      string       `hcl:"site_dir,optional"`
	Module       string       `hcl:"module,optional"`
	Locale       string       `hcl:"locale,optional"`
	PostProcess  bool         `hcl:"post_process,optional"`
	Generator    string       `hcl:"generator,optional"`
	LogLevel     string       `hcl:"log_level,optional"`
	LogFormat    string       `hcl:"log_format,optional"`
	Translations string       `hcl:"translations,optional"`
	Records      string       `hcl:"records,optional"`
	Cache        *CacheConfig `hcl:"cache,block"`
}

// CacheConfig selects the include cache store.
type CacheConfig struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		TemplateDir: "Template",
		DefaultDir:  "Default",
		Locale:      "en_US",
		PostProcess: true,
		LogLevel:    "info",
		LogFormat:   "text",
		Cache:       &CacheConfig{Driver: "memory"},
	}
}

// Load decodes the HCL file at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	cfg.Cache = nil
	if diags := gohcl.DecodeBody(file.Body, nil, cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}
	if cfg.Cache == nil {
		cfg.Cache = &CacheConfig{}
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	return cfg, nil
}
