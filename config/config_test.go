package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	writeFile(t, path, `
dynamicSpawning:
  enabled: true
templates:
  bedwars:
    maxPlayers: 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JavaPath != "java" {
		t.Errorf("want default javaPath=java, got %q", cfg.JavaPath)
	}
	if cfg.HealthCheckIntervalSeconds != 30 {
		t.Errorf("want default healthCheckIntervalSeconds=30, got %d", cfg.HealthCheckIntervalSeconds)
	}
	if cfg.ProcessStartTimeoutSeconds != 60 {
		t.Errorf("want default processStartTimeoutSeconds=60, got %d", cfg.ProcessStartTimeoutSeconds)
	}
	if !cfg.DynamicSpawning.Enabled {
		t.Errorf("want dynamicSpawning.enabled=true preserved from file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/no/such/config.yml"); err == nil {
		t.Fatalf("expected an error reading a missing config file")
	}
}

func TestTemplateForCaseInsensitiveAndAbsent(t *testing.T) {
	cfg := &Orchestrator{Templates: map[string]TemplateConfig{
		"bedwars": {MaxPlayers: 8},
	}}
	if tc := cfg.TemplateFor("BedWars"); tc.MaxPlayers != 8 {
		t.Errorf("want case-insensitive lookup to find maxPlayers=8, got %d", tc.MaxPlayers)
	}
	if tc := cfg.TemplateFor("skywars"); tc.MaxPlayers != 0 {
		t.Errorf("want zero value for an undeclared template, got %+v", tc)
	}
}

func TestLoadManifestSynthesizesDefaultsWhenAbsent(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yml"), "BedWars")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Name != "BedWars" {
		t.Errorf("want synthesized name BedWars, got %q", m.Name)
	}
	if m.ServerIDPrefix != "bedwars" {
		t.Errorf("want lowercased prefix bedwars, got %q", m.ServerIDPrefix)
	}
	if m.MaxPlayers != 16 {
		t.Errorf("want default maxPlayers=16, got %d", m.MaxPlayers)
	}
	if m.WorldResetOnShutdown == nil || !*m.WorldResetOnShutdown {
		t.Errorf("want default worldResetOnShutdown=true")
	}
	if m.ServerJar != "HytaleServer.jar" {
		t.Errorf("want default serverJar, got %q", m.ServerJar)
	}
}

func TestLoadManifestFillsMissingFieldsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yml")
	writeFile(t, path, `
maxPlayers: 4
`)
	m, err := LoadManifest(path, "skywars")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.MaxPlayers != 4 {
		t.Errorf("explicit maxPlayers must be preserved, got %d", m.MaxPlayers)
	}
	if m.MemoryAllocation != "2G" {
		t.Errorf("want default memoryAllocation, got %q", m.MemoryAllocation)
	}
	if m.Name != "skywars" {
		t.Errorf("want name synthesized from dirName, got %q", m.Name)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
