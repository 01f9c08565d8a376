// Package config handles configuration loading for the annotation
// server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Studies StudiesConfig `yaml:"studies"`
	Cache   CacheConfig   `yaml:"cache"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Render  RenderConfig  `yaml:"render"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StudyConfig locates one study's conversion output: the directory
// that holds its ideogram_exp_means files.
type StudyConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// StudiesConfig maps study names to their outputs, preserving the
// order they appear in the file. Two YAML forms are accepted:
//
//	studies:
//	  oligodendroglioma: /data/oligo/out
//	  glioma:
//	    output_dir: /data/glioma/out
type StudiesConfig struct {
	Studies map[string]StudyConfig
	order   []string
}

// UnmarshalYAML decodes the mapping while recording key order.
func (s *StudiesConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("studies: expected a mapping")
	}
	s.Studies = make(map[string]StudyConfig, len(value.Content)/2)
	s.order = s.order[:0]
	for i := 0; i+1 < len(value.Content); i += 2 {
		var name string
		if err := value.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("studies: %w", err)
		}
		var sc StudyConfig
		node := value.Content[i+1]
		if node.Kind == yaml.ScalarNode {
			if err := node.Decode(&sc.OutputDir); err != nil {
				return fmt.Errorf("study %s: %w", name, err)
			}
		} else if err := node.Decode(&sc); err != nil {
			return fmt.Errorf("study %s: %w", name, err)
		}
		if _, dup := s.Studies[name]; !dup {
			s.order = append(s.order, name)
		}
		s.Studies[name] = sc
	}
	return nil
}

// StudyIDs returns study names in file order.
func (s *StudiesConfig) StudyIDs() []string {
	return append([]string(nil), s.order...)
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	PayloadSizeMB     int `yaml:"payload_size_mb"`
	PayloadTTLMinutes int `yaml:"payload_ttl_minutes"`
	DocumentEntries   int `yaml:"document_entries"`
}

// JobsConfig contains conversion job settings.
type JobsConfig struct {
	SQLitePath    string `yaml:"sqlite_path"`
	Backlog       int    `yaml:"backlog"`
	RetentionDays int    `yaml:"retention_days"`
	Workers       int    `yaml:"workers"`
}

// RenderConfig contains preview rendering settings.
type RenderConfig struct {
	Width           int    `yaml:"width"`
	TrackHeight     int    `yaml:"track_height"`
	DefaultColormap string `yaml:"default_colormap"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Cache: CacheConfig{
			PayloadSizeMB:     128,
			PayloadTTLMinutes: 10,
			DocumentEntries:   64,
		},
		Jobs: JobsConfig{
			SQLitePath:    "./data/convert_jobs.db",
			Backlog:       16,
			RetentionDays: 7,
		},
		Render: RenderConfig{
			Width:           1024,
			TrackHeight:     64,
			DefaultColormap: "bluewhitered",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Cache.PayloadSizeMB == 0 {
		cfg.Cache.PayloadSizeMB = defaults.Cache.PayloadSizeMB
	}
	if cfg.Cache.PayloadTTLMinutes == 0 {
		cfg.Cache.PayloadTTLMinutes = defaults.Cache.PayloadTTLMinutes
	}
	if cfg.Cache.DocumentEntries == 0 {
		cfg.Cache.DocumentEntries = defaults.Cache.DocumentEntries
	}
	if cfg.Jobs.SQLitePath == "" {
		cfg.Jobs.SQLitePath = defaults.Jobs.SQLitePath
	}
	if cfg.Jobs.Backlog == 0 {
		cfg.Jobs.Backlog = defaults.Jobs.Backlog
	}
	if cfg.Jobs.RetentionDays == 0 {
		cfg.Jobs.RetentionDays = defaults.Jobs.RetentionDays
	}
	if cfg.Render.Width == 0 {
		cfg.Render.Width = defaults.Render.Width
	}
	if cfg.Render.TrackHeight == 0 {
		cfg.Render.TrackHeight = defaults.Render.TrackHeight
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}
}
