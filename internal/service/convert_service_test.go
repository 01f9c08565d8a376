package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/jobstore"
)

type stubRegistry map[string]*AnnotService

func (r stubRegistry) Get(studyID string) *AnnotService { return r[studyID] }

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// convertParams writes a minimal study: one gene across three cells,
// two of them labelled obs and one ref.
func convertParams(t *testing.T) ideogram.Config {
	t.Helper()
	dir := t.TempDir()
	return ideogram.Config{
		MatrixPath: writeInput(t, dir, "matrix.txt",
			"cell1\tcell2\tcell3\ngeneA\t2\t4\t10\n"),
		GenePosPath: writeInput(t, dir, "gen_pos.txt", "geneA chr1 1000 2000\n"),
		ClusterNames: []string{"tumor"},
		ClusterPaths: []string{writeInput(t, dir, "all.txt",
			"NAME\tX\tY\tCLUSTER\nTYPE\tnumeric\tnumeric\tgroup\n"+
				"cell1\t0\t0\tobs\ncell2\t0\t0\tobs\ncell3\t1\t1\tref\n")},
		MetadataPath: writeInput(t, dir, "metadata.txt",
			"NAME\tCLUSTER\nTYPE\tgroup\ncell1\tobs\ncell2\tobs\ncell3\tref\n"),
		OutputDir: filepath.Join(dir, "out"),
		Workers:   1,
	}
}

func newJobStore(t *testing.T) *jobstore.Store {
	t.Helper()
	store, err := jobstore.NewStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestExecuteConvertJob(t *testing.T) {
	store := newJobStore(t)
	params := convertParams(t)

	job := &jobstore.Job{
		ID:        "job-1",
		Study:     "oligo",
		Status:    jobstore.JobStatusQueued,
		Params:    params,
		CreatedAt: time.Now(),
	}
	if err := store.CreateJob(job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	svc := NewConvertService(nil)
	if err := svc.ExecuteConvertJob(context.Background(), store, "job-1"); err != nil {
		t.Fatalf("ExecuteConvertJob: %v", err)
	}

	got, err := store.GetJob("job-1")
	if err != nil {
		t.Fatalf("failed to get job: %v", err)
	}
	if got.Files != 2 {
		t.Errorf("expected 2 files, got %d", got.Files)
	}
	if got.SkippedGenes != 0 {
		t.Errorf("expected 0 skipped genes, got %d", got.SkippedGenes)
	}
	if got.Progress.Phase != "writing" || got.Progress.Done != 2 || got.Progress.Total != 2 {
		t.Errorf("unexpected progress: %+v", got.Progress)
	}

	outputs, err := store.ListOutputs("job-1")
	if err != nil {
		t.Fatalf("failed to list outputs: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outputs))
	}
	wantNames := []string{
		"ideogram_exp_means__tumor--CLUSTER--group--cluster.json",
		"ideogram_exp_means__tumor--CLUSTER--group--study.json",
	}
	for i, o := range outputs {
		if o.FileName != wantNames[i] {
			t.Errorf("output %d = %s, want %s", i, o.FileName, wantNames[i])
		}
		if _, err := os.Stat(o.Path); err != nil {
			t.Errorf("output file missing: %v", err)
		}
	}
}

func TestExecuteConvertJob_StudyOutputDir(t *testing.T) {
	store := newJobStore(t)
	params := convertParams(t)

	// The job names no output dir; the registry's study entry does.
	studyDir := params.OutputDir
	params.OutputDir = ""
	job := &jobstore.Job{
		ID:        "job-1",
		Study:     "oligo",
		Status:    jobstore.JobStatusQueued,
		Params:    params,
		CreatedAt: time.Now(),
	}
	if err := store.CreateJob(job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	registry := stubRegistry{"oligo": newTestService(t, studyDir)}
	svc := NewConvertService(registry)
	if err := svc.ExecuteConvertJob(context.Background(), store, "job-1"); err != nil {
		t.Fatalf("ExecuteConvertJob: %v", err)
	}

	annots, err := registry.Get("oligo").ListAnnotations()
	if err != nil {
		t.Fatalf("ListAnnotations: %v", err)
	}
	if len(annots) != 2 {
		t.Errorf("expected the conversion to show up in the study, got %d annotations", len(annots))
	}
}

func TestExecuteConvertJob_NoOutputDir(t *testing.T) {
	store := newJobStore(t)
	params := convertParams(t)
	params.OutputDir = ""

	job := &jobstore.Job{
		ID:        "job-1",
		Study:     "unconfigured",
		Status:    jobstore.JobStatusQueued,
		Params:    params,
		CreatedAt: time.Now(),
	}
	if err := store.CreateJob(job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	svc := NewConvertService(stubRegistry{})
	if err := svc.ExecuteConvertJob(context.Background(), store, "job-1"); err == nil {
		t.Fatal("expected an error for a job with no resolvable output dir")
	}
}

func TestExecuteConvertJob_Missing(t *testing.T) {
	store := newJobStore(t)
	svc := NewConvertService(nil)
	if err := svc.ExecuteConvertJob(context.Background(), store, "nope"); err == nil {
		t.Fatal("expected an error for an unknown job")
	}
}
