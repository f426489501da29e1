// Package config loads servers/config.yml and template manifests into typed
// structures, applying the documented defaults for absent fields.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DynamicSpawning holds the dynamicSpawning.* block.
type DynamicSpawning struct {
	Enabled           bool `yaml:"enabled"`
	AutoCleanup       bool `yaml:"autoCleanup"`
	MaxConcurrent     int  `yaml:"maxConcurrent"`
	MinAvailablePorts int  `yaml:"minAvailablePorts"`
}

// PortAllocation holds the portAllocation.* block.
type PortAllocation struct {
	StaticRangeStart  int `yaml:"staticRangeStart"`
	StaticRangeEnd    int `yaml:"staticRangeEnd"`
	DynamicRangeStart int `yaml:"dynamicRangeStart"`
	DynamicRangeEnd   int `yaml:"dynamicRangeEnd"`
}

// StaticServer holds one staticServers[id] entry.
type StaticServer struct {
	Port        int               `yaml:"port"`
	MaxPlayers  int               `yaml:"maxPlayers"`
	AlwaysOn    bool              `yaml:"alwaysOn"`
	Memory      string            `yaml:"memory"`
	JVMArgs     []string          `yaml:"jvmArgs"`
	Environment map[string]string `yaml:"environment"`
}

// TemplateConfig holds one templates[name] entry: per-template overrides on
// top of the template manifest's own defaults.
type TemplateConfig struct {
	DisplayName                    string            `yaml:"displayName"`
	MaxPlayers                     int               `yaml:"maxPlayers"`
	PortRangeStart                 int               `yaml:"portRangeStart"`
	PortRangeEnd                   int               `yaml:"portRangeEnd"`
	Memory                         string            `yaml:"memory"`
	WorldReset                     *bool             `yaml:"worldReset"`
	AutoCleanupDelaySeconds        int               `yaml:"autoCleanupDelaySeconds"`
	GracefulShutdownTimeoutSeconds int               `yaml:"gracefulShutdownTimeoutSeconds"`
	JVMArgs                        []string          `yaml:"jvmArgs"`
	Environment                    map[string]string `yaml:"environment"`
}

// Orchestrator is the parsed servers/config.yml document.
type Orchestrator struct {
	JavaPath                   string                    `yaml:"javaPath"`
	DefaultFallbackServer      string                    `yaml:"defaultFallbackServer"`
	HealthCheckIntervalSeconds int                       `yaml:"healthCheckIntervalSeconds"`
	ProcessStartTimeoutSeconds int                       `yaml:"processStartTimeoutSeconds"`
	DynamicSpawning            DynamicSpawning           `yaml:"dynamicSpawning"`
	PortAllocation             PortAllocation            `yaml:"portAllocation"`
	StaticServers              map[string]StaticServer   `yaml:"staticServers"`
	Templates                  map[string]TemplateConfig `yaml:"templates"`
}

// applyDefaults fills in every field recognised-but-absent default named in
// the orchestrator config surface.
func (o *Orchestrator) applyDefaults() {
	if o.JavaPath == "" {
		o.JavaPath = "java"
	}
	if o.HealthCheckIntervalSeconds <= 0 {
		o.HealthCheckIntervalSeconds = 30
	}
	if o.ProcessStartTimeoutSeconds <= 0 {
		o.ProcessStartTimeoutSeconds = 60
	}
}

// Load reads and parses path, applying defaults.
func Load(path string) (*Orchestrator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var o Orchestrator
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	o.applyDefaults()
	return &o, nil
}

// TemplateFor returns the per-template override block for name, or a zero
// value if none is declared — absence means "use manifest defaults".
func (o *Orchestrator) TemplateFor(name string) TemplateConfig {
	if tc, ok := o.Templates[strings.ToLower(name)]; ok {
		return tc
	}
	return TemplateConfig{}
}

// Manifest is a template's manifest.yml, recognised fields all optional.
type Manifest struct {
	Name                    string    `yaml:"name"`
	Type                    string    `yaml:"type"`
	ServerIDPrefix          string    `yaml:"serverIdPrefix"`
	MaxPlayers              int       `yaml:"maxPlayers"`
	MemoryAllocation        string    `yaml:"memoryAllocation"`
	WorldResetOnShutdown    *bool     `yaml:"worldResetOnShutdown"`
	GracefulShutdownTimeout int       `yaml:"gracefulShutdownTimeout"`
	RespawnLocation         *Location `yaml:"respawnLocation"`
	ServerJar               string    `yaml:"serverJar"`
	StartupArgs             []string  `yaml:"startupArgs"`
	OCIArtifact             string    `yaml:"ociArtifact"`
}

// Location is an {x,y,z} triple.
type Location struct {
	X, Y, Z float64
}

// LoadManifest reads a template manifest from path, applying the documented
// default to every absent field, whether or not the file exists. dirName
// seeds the name (and, lower-cased, the prefix) when the file is absent or
// leaves them unset.
func LoadManifest(path, dirName string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m := &Manifest{Name: dirName, ServerIDPrefix: strings.ToLower(dirName)}
		m.applyDefaults()
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = dirName
	}
	if m.ServerIDPrefix == "" {
		m.ServerIDPrefix = strings.ToLower(m.Name)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.MaxPlayers <= 0 {
		m.MaxPlayers = 16
	}
	if m.MemoryAllocation == "" {
		m.MemoryAllocation = "2G"
	}
	if m.WorldResetOnShutdown == nil {
		b := true
		m.WorldResetOnShutdown = &b
	}
	if m.GracefulShutdownTimeout <= 0 {
		m.GracefulShutdownTimeout = 30
	}
	if m.ServerJar == "" {
		m.ServerJar = "HytaleServer.jar"
	}
}
