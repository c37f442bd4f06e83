package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Iterations != 10000 || cfg.Workers != 1 || cfg.Seed != 0 {
		t.Errorf("unexpected simulation defaults: %+v", cfg)
	}
	if cfg.Log.Level != "warn" || cfg.Report.Format != "text" {
		t.Errorf("unexpected output defaults: %+v", cfg)
	}
	if cfg.Export.Resolved != "fields.resolutiondate" {
		t.Errorf("unexpected export default %q", cfg.Export.Resolved)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, "loomcast.yaml", "iterations: 500\nworkers: 4\nlog:\n  level: debug\nreport:\n  format: json\n")
	t.Setenv("LOOMCAST_WORKERS", "8")
	t.Setenv("LOOMCAST_LOG_FORMAT", "json")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Iterations != 500 {
		t.Errorf("expected iterations from file, got %d", cfg.Iterations)
	}
	if cfg.Workers != 8 {
		t.Errorf("expected environment to override workers, got %d", cfg.Workers)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Report.Format != "json" {
		t.Errorf("unexpected log/report config: %+v %+v", cfg.Log, cfg.Report)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "custom.env", "LOOMCAST_SEED=1234\n")
	t.Chdir(dir)
	// Registered so the variable set by godotenv is removed after the test.
	t.Setenv("LOOMCAST_SEED", "")
	os.Unsetenv("LOOMCAST_SEED")

	cfg, err := Load(Options{EnvFile: env})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed != 1234 {
		t.Errorf("expected seed from env file, got %d", cfg.Seed)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if _, err := Load(Options{ConfigFile: filepath.Join(dir, "missing.yaml")}); err == nil {
		t.Error("expected error for missing explicit config file")
	}
	if _, err := Load(Options{EnvFile: filepath.Join(dir, "missing.env")}); err == nil {
		t.Error("expected error for missing explicit env file")
	}

	bad := writeFile(t, dir, "bad.yaml", "iterations: 0\n")
	if _, err := Load(Options{ConfigFile: bad}); err == nil {
		t.Error("expected validation error for zero iterations")
	}

	format := writeFile(t, dir, "format.yaml", "report:\n  format: pdf\n")
	if _, err := Load(Options{ConfigFile: format}); err == nil {
		t.Error("expected validation error for unknown report format")
	}
}
