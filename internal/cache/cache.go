// Package cache provides caching for annotation payloads and parsed
// documents.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
)

// Config contains cache configuration.
type Config struct {
	PayloadSizeMB   int
	PayloadTTL      time.Duration
	DocumentEntries int
}

// Manager manages the payload and document caches. The payload cache
// holds raw bytes served to clients (annotation JSON, preview PNGs);
// the document cache holds parsed documents for the render path.
type Manager struct {
	payloadCache  *bigcache.BigCache
	documentCache *lru.Cache[string, *ideogram.Document]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	// Configure payload cache
	payloadCacheConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.PayloadTTL,
		CleanWindow:        cfg.PayloadTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       512 * 1024, // typical annotation document
		HardMaxCacheSize:   cfg.PayloadSizeMB,
		Verbose:            false,
	}

	payloadCache, err := bigcache.New(context.Background(), payloadCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create payload cache: %w", err)
	}

	// Create document cache
	documentCache, err := lru.New[string, *ideogram.Document](cfg.DocumentEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	return &Manager{
		payloadCache:  payloadCache,
		documentCache: documentCache,
	}, nil
}

// GetPayload retrieves a payload from cache.
func (m *Manager) GetPayload(key string) ([]byte, bool) {
	data, err := m.payloadCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetPayload stores a payload in cache.
func (m *Manager) SetPayload(key string, data []byte) error {
	return m.payloadCache.Set(key, data)
}

// GetDocument retrieves a parsed document from cache.
func (m *Manager) GetDocument(key string) (*ideogram.Document, bool) {
	return m.documentCache.Get(key)
}

// SetDocument stores a parsed document in cache.
func (m *Manager) SetDocument(key string, doc *ideogram.Document) {
	m.documentCache.Add(key, doc)
}

// AnnotKey generates a cache key for an annotation file payload.
func AnnotKey(study, file string) string {
	return fmt.Sprintf("annot:%s/%s", study, file)
}

// DocumentKey generates a cache key for a parsed document.
func DocumentKey(study, file string) string {
	return fmt.Sprintf("doc:%s/%s", study, file)
}

// PreviewKey generates a cache key for a rendered preview image.
func PreviewKey(study, file, chromosome, track string, width int, colormap string) string {
	return fmt.Sprintf("preview:%s/%s:chr%s:%s:w=%d:%s", study, file, chromosome, track, width, colormap)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"payload_cache_len":  m.payloadCache.Len(),
		"payload_cache_cap":  m.payloadCache.Capacity(),
		"document_cache_len": m.documentCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.payloadCache.Close()
}
