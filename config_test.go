package filehttp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetConfigKeepsDefaults(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yml")
	yml := `
server:
  port: 8080
  maxIdleTimeout: 2s
  admin: 127.0.0.1:9090
  maxBodyBytes: 1048576
client:
  cache: cache.db
  retryLimit: 3
`
	if err := os.WriteFile(filename, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := GetConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.Server.Port != 8080 || config.Server.MaxIdleTimeout != 2*time.Second || config.Server.Admin != "127.0.0.1:9090" {
		t.Fatalf("server config is %+v", config.Server)
	}
	if config.Server.MaxBodyBytes != 1<<20 || config.Server.MaxLineBytes != 8<<10 {
		t.Fatalf("server limits are %+v", config.Server)
	}
	if config.Server.Threshold != 200 || config.Server.Storage != "dir" {
		t.Fatalf("server defaults lost: %+v", config.Server)
	}
	if config.Client.Cache != "cache.db" || config.Client.RetryLimit != 3 {
		t.Fatalf("client config is %+v", config.Client)
	}
	if config.Client.RetryBase != 5*time.Second || config.Client.ProbeTimeout != 100*time.Millisecond {
		t.Fatalf("client defaults lost: %+v", config.Client)
	}
}

func TestGetConfigMissingFile(t *testing.T) {
	if _, err := GetConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("no error for missing file")
	}
}

func TestGetConfigMalformed(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(filename, []byte("server: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := GetConfig(filename); err == nil {
		t.Fatal("no error for malformed yaml")
	}
}
