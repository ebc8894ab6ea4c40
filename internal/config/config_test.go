package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.APIBase != "https://www.googleapis.com/drive/v3" {
		t.Errorf("expected default api base, got %s", cfg.APIBase)
	}
	if cfg.Parts != 12 {
		t.Errorf("expected default parts 12, got %d", cfg.Parts)
	}
	if cfg.TargetParts != 12 {
		t.Errorf("expected default target parts 12, got %d", cfg.TargetParts)
	}
	if cfg.ReadSize != 256*1024 {
		t.Errorf("expected default read size 256KiB, got %d", cfg.ReadSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.Timeout != 0 {
		t.Errorf("expected no default timeout, got %v", cfg.Timeout)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
token: file-token
parts: 16
target_parts: 24
read_size: 512KiB
progress: true
log_level: debug
timeout: 30m
max_idle_conns: 8
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Token != "file-token" {
		t.Errorf("expected token file-token, got %s", cfg.Token)
	}
	if cfg.APIBase != DefaultAPIBase {
		t.Errorf("expected api base to keep its default, got %s", cfg.APIBase)
	}
	if cfg.Parts != 16 {
		t.Errorf("expected parts 16, got %d", cfg.Parts)
	}
	if cfg.TargetParts != 24 {
		t.Errorf("expected target parts 24, got %d", cfg.TargetParts)
	}
	if cfg.ReadSize != 512*1024 {
		t.Errorf("expected read size 512KiB, got %d", cfg.ReadSize)
	}
	if !cfg.Progress {
		t.Error("expected progress true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.Timeout != 30*time.Minute {
		t.Errorf("expected timeout 30m, got %v", cfg.Timeout)
	}
	if cfg.MaxIdleConns != 8 {
		t.Errorf("expected max idle conns 8, got %d", cfg.MaxIdleConns)
	}
}

func TestLoadFromYAMLBadValues(t *testing.T) {
	for name, content := range map[string]string{
		"read size": "read_size: lots\n",
		"timeout":   "timeout: soon\n",
	} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("write config file: %v", err)
			}
			if _, err := LoadFromFile(configPath); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DRIVEFETCH_TOKEN", "env-token")
	t.Setenv("DRIVEFETCH_API_BASE", "http://127.0.0.1:9999")
	t.Setenv("DRIVEFETCH_PARTS", "0")
	t.Setenv("DRIVEFETCH_TARGET_PARTS", "48")
	t.Setenv("DRIVEFETCH_READ_SIZE", "1MiB")
	t.Setenv("DRIVEFETCH_PROGRESS", "1")
	t.Setenv("DRIVEFETCH_TIMEOUT", "90s")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Token != "env-token" {
		t.Errorf("expected token env-token, got %s", cfg.Token)
	}
	if cfg.APIBase != "http://127.0.0.1:9999" {
		t.Errorf("expected api base override, got %s", cfg.APIBase)
	}
	if cfg.Parts != 0 {
		t.Errorf("expected parts 0, got %d", cfg.Parts)
	}
	if cfg.TargetParts != 48 {
		t.Errorf("expected target parts 48, got %d", cfg.TargetParts)
	}
	if cfg.ReadSize != 1<<20 {
		t.Errorf("expected read size 1MiB, got %d", cfg.ReadSize)
	}
	if !cfg.Progress {
		t.Error("expected progress true")
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Timeout)
	}
}

func TestLoadDotEnv(t *testing.T) {
	// Registered for restore, then unset so the file can set it.
	t.Setenv("DRIVEFETCH_TOKEN", "")
	os.Unsetenv("DRIVEFETCH_TOKEN")
	t.Setenv("DRIVEFETCH_TARGET_PARTS", "7")

	envPath := filepath.Join(t.TempDir(), "drivefetch.env")
	content := "DRIVEFETCH_TOKEN=dotenv-token\nDRIVEFETCH_TARGET_PARTS=99\n"
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Token != "dotenv-token" {
		t.Errorf("expected token from file, got %q", cfg.Token)
	}
	if cfg.TargetParts != 7 {
		t.Errorf("expected existing variable to win, got %d", cfg.TargetParts)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := LoadDotEnv(""); err != nil {
		t.Errorf("missing ./.env should be ignored: %v", err)
	}
	if err := LoadDotEnv("/nonexistent/drivefetch.env"); err == nil {
		t.Error("expected error for explicit missing file")
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("DRIVEFETCH_PARTS", "many")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for non-numeric DRIVEFETCH_PARTS")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Token = "tok"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "partitioning disabled", mutate: func(c *Config) { c.Parts = 0 }},
		{name: "missing token", mutate: func(c *Config) { c.Token = "" }},
		{name: "missing api base", mutate: func(c *Config) { c.APIBase = "" }, wantErr: true},
		{name: "negative parts", mutate: func(c *Config) { c.Parts = -1 }, wantErr: true},
		{name: "invalid target parts", mutate: func(c *Config) { c.TargetParts = 0 }, wantErr: true},
		{name: "invalid read size", mutate: func(c *Config) { c.ReadSize = 0 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Token = "base-token"
	base.Parts = 16

	override := Config{
		Parts:    32,
		LogLevel: "warn",
	}

	merged := base.Merge(override)

	if merged.Token != "base-token" {
		t.Errorf("expected Token preserved, got %s", merged.Token)
	}
	if merged.TargetParts != DefaultParts {
		t.Errorf("expected TargetParts preserved, got %d", merged.TargetParts)
	}
	if merged.ReadSize != DefaultReadSize {
		t.Errorf("expected ReadSize preserved, got %d", merged.ReadSize)
	}

	if merged.Parts != 32 {
		t.Errorf("expected Parts overridden to 32, got %d", merged.Parts)
	}
	if merged.LogLevel != "warn" {
		t.Errorf("expected LogLevel overridden to warn, got %s", merged.LogLevel)
	}
}

func TestLoadYAMLFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
