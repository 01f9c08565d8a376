package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/jobstore"
)

// ConvertService executes conversion jobs pulled from the job store.
type ConvertService struct {
	registry interface{ Get(studyID string) *AnnotService }
}

// NewConvertService creates a new conversion service. The registry
// resolves a job's study to its configured output directory when the
// job itself does not name one.
func NewConvertService(registry interface{ Get(studyID string) *AnnotService }) *ConvertService {
	return &ConvertService{registry: registry}
}

// ExecuteConvertJob runs the conversion for a job (called by JobManager worker).
func (s *ConvertService) ExecuteConvertJob(ctx context.Context, store *jobstore.Store, jobID string) error {
	// Load job from store
	job, err := store.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}

	params := job.Params
	if params.OutputDir == "" && job.Study != "" && s.registry != nil {
		if svc := s.registry.Get(job.Study); svc != nil {
			params.OutputDir = svc.OutputDir()
		}
	}
	if params.OutputDir == "" {
		return fmt.Errorf("no output dir: job names none and study %q is not configured", job.Study)
	}

	store.UpdateJobProgress(jobID, "building", 0, 0)

	conv := ideogram.New(params)
	conv.OnProgress(func(done, total int) {
		store.UpdateJobProgress(jobID, "writing", done, total)
	})

	res, err := conv.Run(ctx)
	if err != nil {
		return err
	}

	store.UpdateJobCounts(jobID, len(res.Files), res.SkippedGenes)

	outputs := make([]*jobstore.OutputFile, 0, len(res.Files))
	for _, f := range res.Files {
		outputs = append(outputs, &jobstore.OutputFile{FileName: filepath.Base(f), Path: f})
	}
	if err := store.InsertOutputs(jobID, outputs); err != nil {
		return fmt.Errorf("failed to record outputs: %w", err)
	}
	return nil
}
