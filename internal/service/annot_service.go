// Package service provides business logic for the annotation server.
package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/cache"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/render"
)

// AnnotServiceConfig contains annotation service configuration.
type AnnotServiceConfig struct {
	StudyID   string
	OutputDir string // conversion output dir holding the ideogram_exp_means subdir
	Cache     *cache.Manager
	Renderer  *render.Renderer
}

// AnnotService serves one study's converted annotation files: the
// listing, the raw documents, and rendered previews. It reads whatever
// the converter last wrote, so a completed conversion job shows up
// without a restart.
type AnnotService struct {
	studyID   string
	outputDir string
	annotDir  string
	cache     *cache.Manager
	renderer  *render.Renderer
}

// AnnotationInfo describes one annotation file for the API response.
type AnnotationInfo struct {
	File       string `json:"file"`
	Group      string `json:"group"`
	Clustering string `json:"clustering"`
	Scope      string `json:"scope"`
}

// NewAnnotService creates a new annotation service.
func NewAnnotService(cfg AnnotServiceConfig) *AnnotService {
	studyID := cfg.StudyID
	if studyID == "" {
		studyID = "default"
	}
	return &AnnotService{
		studyID:   studyID,
		outputDir: cfg.OutputDir,
		annotDir:  filepath.Join(cfg.OutputDir, ideogram.OutputSubdir),
		cache:     cfg.Cache,
		renderer:  cfg.Renderer,
	}
}

// StudyID returns the study this service serves.
func (s *AnnotService) StudyID() string {
	return s.studyID
}

// OutputDir returns the study's conversion output directory.
func (s *AnnotService) OutputDir() string {
	return s.outputDir
}

// ListAnnotations scans the study's annotation directory and returns
// the files the converter emitted, sorted by name. A study that has
// not been converted yet lists as empty. Files whose names the
// converter would not have produced are ignored.
func (s *AnnotService) ListAnnotations() ([]AnnotationInfo, error) {
	entries, err := os.ReadDir(s.annotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan annotations: %w", err)
	}

	var infos []AnnotationInfo
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		group, clustering, scope, ok := ideogram.ParseFileName(e.Name())
		if !ok {
			continue
		}
		infos = append(infos, AnnotationInfo{
			File:       e.Name(),
			Group:      group,
			Clustering: clustering,
			Scope:      string(scope),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].File < infos[j].File })
	return infos, nil
}

// GetAnnotation returns the raw bytes of one annotation file.
func (s *AnnotService) GetAnnotation(file string) ([]byte, error) {
	if err := s.checkFileName(file); err != nil {
		return nil, err
	}

	// Check cache (prefix with study ID)
	cacheKey := cache.AnnotKey(s.studyID, file)
	if b, ok := s.cache.GetPayload(cacheKey); ok {
		return b, nil
	}

	b, err := os.ReadFile(filepath.Join(s.annotDir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &data.LookupError{Kind: data.LookupDocument, Name: file, Path: s.annotDir}
		}
		return nil, fmt.Errorf("failed to read annotation: %w", err)
	}

	s.cache.SetPayload(cacheKey, b)
	return b, nil
}

// GetDocument returns the parsed form of one annotation file.
func (s *AnnotService) GetDocument(file string) (*ideogram.Document, error) {
	cacheKey := cache.DocumentKey(s.studyID, file)
	if doc, ok := s.cache.GetDocument(cacheKey); ok {
		return doc, nil
	}

	b, err := s.GetAnnotation(file)
	if err != nil {
		return nil, err
	}
	var doc ideogram.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	s.cache.SetDocument(cacheKey, &doc)
	return &doc, nil
}

// Preview renders one track of one chromosome as a PNG strip. The
// track is addressed by its label; the chromosome by its emitted
// (unprefixed) name. A zero width and an empty colormap fall back to
// the renderer defaults.
func (s *AnnotService) Preview(file, chromosome, track string, width int, colormap string) ([]byte, error) {
	// Check cache (prefix with study ID)
	cacheKey := cache.PreviewKey(s.studyID, file, chromosome, track, width, colormap)
	if b, ok := s.cache.GetPayload(cacheKey); ok {
		return b, nil
	}

	doc, err := s.GetDocument(file)
	if err != nil {
		return nil, err
	}

	trackIdx := -1
	for i, label := range doc.Tracks() {
		if label == track {
			trackIdx = i
			break
		}
	}
	if trackIdx < 0 {
		return nil, &data.LookupError{Kind: data.LookupTrack, Name: track, Path: file}
	}

	b, err := s.renderer.Preview(doc, chromosome, render.Options{
		Track:    trackIdx,
		Width:    width,
		Colormap: colormap,
	})
	if err != nil {
		return nil, err
	}

	s.cache.SetPayload(cacheKey, b)
	return b, nil
}

// ArchivePath returns the study's annotation archive location, if the
// converter has produced one.
func (s *AnnotService) ArchivePath() (string, bool) {
	path := filepath.Join(s.outputDir, ideogram.ArchiveName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// checkFileName rejects names the converter could not have emitted,
// which also keeps path traversal out of GetAnnotation.
func (s *AnnotService) checkFileName(file string) error {
	if file != filepath.Base(file) {
		return &data.LookupError{Kind: data.LookupDocument, Name: file, Path: s.annotDir}
	}
	if _, _, _, ok := ideogram.ParseFileName(file); !ok {
		return &data.LookupError{Kind: data.LookupDocument, Name: file, Path: s.annotDir}
	}
	return nil
}
