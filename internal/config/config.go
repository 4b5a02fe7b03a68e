// Package config loads the migration tool configuration file.
//
// The file carries the endpoints and credentials for every external
// collaborator: the recipe index, CAPI, the templatiser, and the composer
// integration read/write endpoints. Both JSON and YAML are accepted.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Config holds endpoints and credentials for all external services.
type Config struct {
	CAPIKey             string  `json:"capi_key" yaml:"capi_key"`
	CAPIURL             string  `json:"capi_url" yaml:"capi_url"`
	IndexURL            string  `json:"index_url" yaml:"index_url"`
	TemplatiserURL      string  `json:"templatiser_url" yaml:"templatiser_url"`
	TemplatiserToken    string  `json:"templatiser_token" yaml:"templatiser_token"`
	IntegrationReadURL  string  `json:"integration_read_url" yaml:"integration_read_url"`
	IntegrationWriteURL string  `json:"integration_write_url" yaml:"integration_write_url"`
	CABundlePath        *string `json:"ca_bundle_path,omitempty" yaml:"ca_bundle_path,omitempty"`
}

// DefaultPath returns the conventional config location under the user's
// home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "recipe-migration-config.json"
	}
	return filepath.Join(home, ".gu", "recipe-migration-config.json")
}

// LoadFromPath reads a config file (YAML or JSON) and returns the parsed Config.
// Format is detected by extension (.yaml/.yml -> YAML, .json -> JSON) or by
// content (first non-whitespace char).
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config from bytes. ext is the file extension (e.g. ".json",
// ".yaml") for format hint; empty = detect from content.
func Load(data []byte, ext string) (*Config, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}

	var cfg Config
	switch {
	case ext == ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	case ext == ".json" || strings.HasPrefix(strings.TrimSpace(string(data)), "{"):
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required endpoint is present.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"capi_key", c.CAPIKey},
		{"capi_url", c.CAPIURL},
		{"index_url", c.IndexURL},
		{"templatiser_url", c.TemplatiserURL},
		{"integration_read_url", c.IntegrationReadURL},
		{"integration_write_url", c.IntegrationWriteURL},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("config: %s is required", r.name)
		}
	}
	return nil
}

// HTTPClient builds an HTTP client honoring ca_bundle_path when set.
func (c *Config) HTTPClient() (*http.Client, error) {
	if c.CABundlePath == nil || *c.CABundlePath == "" {
		return &http.Client{}, nil
	}

	pem, err := os.ReadFile(*c.CABundlePath)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca bundle %s: no certificates found", *c.CABundlePath)
	}

	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}, nil
}
