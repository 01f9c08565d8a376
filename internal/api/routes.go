// Package api provides HTTP handlers for the annotation server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/service"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/pkg/colormap"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *StudyRegistry
	CORSOrigins []string
	JobManager  *JobManager
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Global studies endpoint (not study-scoped)
	r.Get("/api/studies", studiesHandler(cfg.Registry))

	// Study-scoped routes: /api/studies/{study}/...
	r.Route("/api/studies/{study}", func(r chi.Router) {
		r.Use(studyMiddleware(cfg.Registry))

		r.Get("/annotations", studyAnnotationsHandler)
		r.Get("/annotations/{name}", studyAnnotationHandler)
		r.Get("/annotations/{name}/preview.png", studyPreviewHandler)
		r.Get("/archive", studyArchiveHandler)
	})

	// Conversion job endpoints
	r.Route("/api/convert/jobs", func(r chi.Router) {
		r.Post("/", convertJobSubmitHandler(cfg.JobManager, cfg.Registry))
		r.Get("/", convertJobListHandler(cfg.JobManager))
		r.Get("/{job_id}", convertJobStatusHandler(cfg.JobManager))
		r.Get("/{job_id}/outputs", convertJobOutputsHandler(cfg.JobManager))
		r.Delete("/{job_id}", convertJobCancelHandler(cfg.JobManager))
	})

	return r
}

// Context key for study service
type ctxKey string

const studyServiceKey ctxKey = "studyService"

// studyMiddleware resolves the study from URL and injects the annotation service into context.
func studyMiddleware(registry *StudyRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			studyID := chi.URLParam(r, "study")
			svc := registry.Get(studyID)
			if svc == nil {
				http.Error(w, "study not found: "+studyID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), studyServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getStudyService(r *http.Request) *service.AnnotService {
	if svc, ok := r.Context().Value(studyServiceKey).(*service.AnnotService); ok {
		return svc
	}
	return nil
}

// writeServiceError maps domain errors onto HTTP status codes: an
// identifier the service cannot resolve is a 404, everything else a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var lerr *data.LookupError
	if errors.As(err, &lerr) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// studiesHandler returns the list of available studies.
func studiesHandler(registry *StudyRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"default": registry.DefaultStudyID(),
			"studies": registry.Studies(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// studyAnnotationsHandler returns the study's annotation file list.
func studyAnnotationsHandler(w http.ResponseWriter, r *http.Request) {
	svc := getStudyService(r)
	if svc == nil {
		http.Error(w, "study service not available", http.StatusInternalServerError)
		return
	}

	annots, err := svc.ListAnnotations()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"study":       svc.StudyID(),
		"annotations": annots,
	})
}

// studyAnnotationHandler serves one annotation document verbatim.
func studyAnnotationHandler(w http.ResponseWriter, r *http.Request) {
	svc := getStudyService(r)
	if svc == nil {
		http.Error(w, "study service not available", http.StatusInternalServerError)
		return
	}

	name := chi.URLParam(r, "name")
	b, err := svc.GetAnnotation(name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(b)
}

// studyPreviewHandler renders one track of one chromosome as a PNG.
func studyPreviewHandler(w http.ResponseWriter, r *http.Request) {
	svc := getStudyService(r)
	if svc == nil {
		http.Error(w, "study service not available", http.StatusInternalServerError)
		return
	}

	name := chi.URLParam(r, "name")
	query := r.URL.Query()

	chr := strings.TrimSpace(query.Get("chr"))
	if chr == "" {
		http.Error(w, "missing required query param: chr", http.StatusBadRequest)
		return
	}
	track := strings.TrimSpace(query.Get("track"))
	if track == "" {
		http.Error(w, "missing required query param: track", http.StatusBadRequest)
		return
	}

	width := 0
	if widthStr := query.Get("width"); widthStr != "" {
		if v, err := strconv.Atoi(widthStr); err == nil && v > 0 {
			width = v
			if width > 4096 {
				width = 4096
			}
		}
	}

	cm := strings.TrimSpace(query.Get("colormap"))
	if cm != "" {
		if _, ok := colormap.ByName(cm); !ok {
			http.Error(w, "unknown colormap: "+cm, http.StatusBadRequest)
			return
		}
	}

	b, err := svc.Preview(name, chr, track, width, cm)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(b)
}

// studyArchiveHandler downloads the study's annotation tarball.
func studyArchiveHandler(w http.ResponseWriter, r *http.Request) {
	svc := getStudyService(r)
	if svc == nil {
		http.Error(w, "study service not available", http.StatusInternalServerError)
		return
	}

	path, ok := svc.ArchivePath()
	if !ok {
		http.NotFound(w, r)
		return
	}

	filename := filepath.Base(path)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	} else {
		w.Header().Set("Content-Disposition", "attachment")
	}
	w.Header().Set("Content-Type", "application/gzip")

	http.ServeFile(w, r, path)
}

// Conversion job handlers

type convertJobSubmitRequest struct {
	Study string `json:"study"`
	ideogram.Config
}

func convertJobSubmitHandler(jm *JobManager, registry *StudyRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		var req convertJobSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		// Validate required fields
		if req.MatrixPath == "" {
			http.Error(w, "matrixPath is required", http.StatusBadRequest)
			return
		}
		if req.GenePosPath == "" {
			http.Error(w, "genPosPath is required", http.StatusBadRequest)
			return
		}
		if req.MetadataPath == "" {
			http.Error(w, "metadataPath is required", http.StatusBadRequest)
			return
		}
		if req.OutputDir == "" {
			if req.Study == "" {
				http.Error(w, "either outputDir or study is required", http.StatusBadRequest)
				return
			}
			if registry == nil || registry.Get(req.Study) == nil {
				http.Error(w, "study not found: "+req.Study, http.StatusNotFound)
				return
			}
		}

		job, err := jm.Submit(req.Study, req.Config)
		if err != nil {
			http.Error(w, "failed to submit job: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}

func convertJobListHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobs := jm.List()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jobs": jobs,
		})
	}
}

func convertJobStatusHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id":        job.ID,
			"study":         job.Study,
			"status":        job.Status,
			"created_at":    job.CreatedAt,
			"started_at":    job.StartedAt,
			"finished_at":   job.FinishedAt,
			"progress":      job.Progress,
			"files":         job.Files,
			"skipped_genes": job.SkippedGenes,
			"error":         job.Error,
		})
	}
}

func convertJobOutputsHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		outputs, err := jm.Store().ListOutputs(jobID)
		if err != nil {
			http.Error(w, "failed to list outputs: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id":  jobID,
			"status":  job.Status,
			"outputs": outputs,
		})
	}
}

func convertJobCancelHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		cancelled := jm.Cancel(jobID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id":    jobID,
			"cancelled": cancelled,
		})
	}
}
