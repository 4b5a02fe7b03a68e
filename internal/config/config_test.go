package config

import (
	"os"
	"path/filepath"
	"testing"
)

const jsonConfig = `{
  "capi_key": "test-key",
  "capi_url": "https://content.example.com",
  "index_url": "https://recipes.example.com/v2/index.json",
  "templatiser_url": "https://templatiser.example.com/api/v1/templatise",
  "templatiser_token": "tok",
  "integration_read_url": "https://composer.example.com/api/read",
  "integration_write_url": "https://composer.example.com/api/write"
}`

const yamlConfig = `capi_key: test-key
capi_url: https://content.example.com
index_url: https://recipes.example.com/v2/index.json
templatiser_url: https://templatiser.example.com/api/v1/templatise
templatiser_token: tok
integration_read_url: https://composer.example.com/api/read
integration_write_url: https://composer.example.com/api/write
ca_bundle_path: /etc/ssl/extra.pem
`

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load([]byte(jsonConfig), ".json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CAPIKey != "test-key" {
		t.Errorf("capi_key = %q", cfg.CAPIKey)
	}
	if cfg.CABundlePath != nil {
		t.Errorf("expected nil ca_bundle_path, got %v", *cfg.CABundlePath)
	}
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load([]byte(yamlConfig), ".yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IntegrationWriteURL != "https://composer.example.com/api/write" {
		t.Errorf("integration_write_url = %q", cfg.IntegrationWriteURL)
	}
	if cfg.CABundlePath == nil || *cfg.CABundlePath != "/etc/ssl/extra.pem" {
		t.Errorf("ca_bundle_path = %v", cfg.CABundlePath)
	}
}

func TestLoad_DetectJSONByContent(t *testing.T) {
	cfg, err := Load([]byte(jsonConfig), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IndexURL == "" {
		t.Error("index_url not parsed")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load([]byte(`{"capi_key": "k"}`), ".json")
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yamlConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.TemplatiserToken != "tok" {
		t.Errorf("templatiser_token = %q", cfg.TemplatiserToken)
	}
}
