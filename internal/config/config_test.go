package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ShorthandStudy(t *testing.T) {
	content := `
server:
  port: 9000
studies:
  oligodendroglioma: "/data/oligo/out"
cache:
  payload_size_mb: 256
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	st, ok := cfg.Studies.Studies["oligodendroglioma"]
	if !ok {
		t.Fatal("expected 'oligodendroglioma' study")
	}
	if st.OutputDir != "/data/oligo/out" {
		t.Errorf("unexpected output_dir: %s", st.OutputDir)
	}
	if cfg.Cache.PayloadSizeMB != 256 {
		t.Errorf("expected cache size 256, got %d", cfg.Cache.PayloadSizeMB)
	}
}

func TestLoad_MultiStudyFormat(t *testing.T) {
	content := `
server:
  port: 8080
studies:
  oligodendroglioma:
    output_dir: "/data/oligo/out"
  glioblastoma:
    output_dir: "/data/gbm/out"
  melanoma: "/data/mel/out"
`
	cfg := loadFromString(t, content)

	if len(cfg.Studies.Studies) != 3 {
		t.Fatalf("expected 3 studies, got %d", len(cfg.Studies.Studies))
	}

	gbm, ok := cfg.Studies.Studies["glioblastoma"]
	if !ok {
		t.Fatal("expected 'glioblastoma' study")
	}
	if gbm.OutputDir != "/data/gbm/out" {
		t.Errorf("unexpected glioblastoma output_dir: %s", gbm.OutputDir)
	}

	mel, ok := cfg.Studies.Studies["melanoma"]
	if !ok {
		t.Fatal("expected 'melanoma' study")
	}
	if mel.OutputDir != "/data/mel/out" {
		t.Errorf("unexpected melanoma output_dir: %s", mel.OutputDir)
	}

	// Check order preserved
	ids := cfg.Studies.StudyIDs()
	if len(ids) != 3 || ids[0] != "oligodendroglioma" || ids[1] != "glioblastoma" || ids[2] != "melanoma" {
		t.Errorf("unexpected study order: %v", ids)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
studies:
  test: "/test/out"
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.PayloadSizeMB != 128 {
		t.Errorf("expected default cache size 128, got %d", cfg.Cache.PayloadSizeMB)
	}
	if cfg.Jobs.SQLitePath != "./data/convert_jobs.db" {
		t.Errorf("expected default jobs db path, got %q", cfg.Jobs.SQLitePath)
	}
	if cfg.Jobs.RetentionDays != 7 {
		t.Errorf("expected default retention 7, got %d", cfg.Jobs.RetentionDays)
	}
	if cfg.Render.Width != 1024 {
		t.Errorf("expected default render width 1024, got %d", cfg.Render.Width)
	}
	if cfg.Render.DefaultColormap != "bluewhitered" {
		t.Errorf("expected default colormap bluewhitered, got %q", cfg.Render.DefaultColormap)
	}
}

func TestLoad_NoStudiesSection(t *testing.T) {
	content := `
server:
  port: 8080
`
	cfg := loadFromString(t, content)

	if len(cfg.Studies.Studies) != 0 {
		t.Errorf("expected no studies, got %d", len(cfg.Studies.Studies))
	}
	if ids := cfg.Studies.StudyIDs(); len(ids) != 0 {
		t.Errorf("unexpected study order: %v", ids)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Render.TrackHeight != 64 {
		t.Errorf("expected default track height 64, got %d", cfg.Render.TrackHeight)
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
