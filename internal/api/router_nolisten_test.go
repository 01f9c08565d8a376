package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/cache"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/render"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/service"
)

func TestAnnotationsEndpoint_NoListen(t *testing.T) {
	outputDir := t.TempDir()
	annotDir := filepath.Join(outputDir, "ideogram_exp_means")
	if err := os.MkdirAll(annotDir, 0o755); err != nil {
		t.Fatalf("failed to create annot dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(annotDir, testClusterFile), []byte(testAnnotDoc), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cacheManager, err := cache.NewManager(cache.Config{
		PayloadSizeMB:   8,
		PayloadTTL:      1 * time.Minute,
		DocumentEntries: 8,
	})
	if err != nil {
		t.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	annotService := service.NewAnnotService(service.AnnotServiceConfig{
		StudyID:   "oligo",
		OutputDir: outputDir,
		Cache:     cacheManager,
		Renderer:  render.NewRenderer(render.DefaultConfig()),
	})

	// Create registry with single study
	registry := NewStudyRegistry("oligo", []string{"oligo"})
	registry.Register("oligo", annotService)

	router := NewRouter(RouterConfig{
		Registry:    registry,
		CORSOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/studies/oligo/annotations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if got, _ := payload["study"].(string); got != "oligo" {
		t.Fatalf("unexpected study: got %q want %q", got, "oligo")
	}
	annots, _ := payload["annotations"].([]any)
	if len(annots) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(annots))
	}
}

// Serving mode without a job manager still answers read endpoints; the
// convert endpoints report that conversion is not configured.
func TestConvertEndpoints_NoJobManager(t *testing.T) {
	registry := NewStudyRegistry("", nil)
	router := NewRouter(RouterConfig{
		Registry: registry,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/convert/jobs", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected %d, got %d: %s", http.StatusNotImplemented, rec.Code, rec.Body.String())
	}
}
