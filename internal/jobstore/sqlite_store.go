// Package jobstore provides persistent storage for conversion job state
// using SQLite.
package jobstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
)

// JobStatus represents the current state of a conversion job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobProgress represents the progress of a conversion job.
type JobProgress struct {
	Phase string `json:"phase"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// Job represents one matrix-to-annotations conversion run.
type Job struct {
	ID           string          `json:"job_id"`
	Study        string          `json:"study"`
	Status       JobStatus       `json:"status"`
	Params       ideogram.Config `json:"params"`
	Progress     JobProgress     `json:"progress"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Files        int             `json:"files"`
	SkippedGenes int             `json:"skipped_genes"`
	Error        string          `json:"error,omitempty"`
}

// OutputFile records one annotation file written by a completed job.
type OutputFile struct {
	FileName string `json:"file_name"`
	Path     string `json:"path"`
}

// Store provides persistent storage for conversion jobs using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore creates a new SQLite-based job store.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS convert_jobs (
		job_id TEXT PRIMARY KEY,
		study TEXT NOT NULL,
		status TEXT NOT NULL,
		params_json TEXT NOT NULL,
		phase TEXT DEFAULT '',
		done INTEGER DEFAULT 0,
		total INTEGER DEFAULT 0,
		files INTEGER DEFAULT 0,
		skipped_genes INTEGER DEFAULT 0,
		error TEXT DEFAULT '',
		created_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_convert_jobs_study ON convert_jobs(study);
	CREATE INDEX IF NOT EXISTS idx_convert_jobs_status ON convert_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_convert_jobs_finished ON convert_jobs(finished_at);

	CREATE TABLE IF NOT EXISTS convert_outputs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		path TEXT NOT NULL,
		FOREIGN KEY (job_id) REFERENCES convert_jobs(job_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_convert_outputs_job ON convert_outputs(job_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateJob creates a new job record with status=queued.
func (s *Store) CreateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO convert_jobs (job_id, study, status, params_json, phase, done, total, files, skipped_genes, error, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		job.Study,
		string(job.Status),
		string(paramsJSON),
		job.Progress.Phase,
		job.Progress.Done,
		job.Progress.Total,
		job.Files,
		job.SkippedGenes,
		job.Error,
		job.CreatedAt.Format(time.RFC3339),
		nil,
		nil,
	)
	return err
}

// GetJob retrieves a job by ID. Returns nil when the job does not exist.
func (s *Store) GetJob(jobID string) (*Job, error) {
	row := s.db.QueryRow(`
		SELECT job_id, study, status, params_json, phase, done, total, files, skipped_genes, error, created_at, started_at, finished_at
		FROM convert_jobs WHERE job_id = ?
	`, jobID)

	var job Job
	var paramsJSON string
	var createdAtStr string
	var startedAtStr, finishedAtStr sql.NullString

	err := row.Scan(
		&job.ID,
		&job.Study,
		&job.Status,
		&paramsJSON,
		&job.Progress.Phase,
		&job.Progress.Done,
		&job.Progress.Total,
		&job.Files,
		&job.SkippedGenes,
		&job.Error,
		&createdAtStr,
		&startedAtStr,
		&finishedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(paramsJSON), &job.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}

	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	if startedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339, startedAtStr.String)
		job.StartedAt = &t
	}
	if finishedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339, finishedAtStr.String)
		job.FinishedAt = &t
	}

	return &job, nil
}

// UpdateJobStatus updates the job status and optional error message.
func (s *Store) UpdateJobStatus(jobID string, status JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var finishedAt *string
	if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
		t := time.Now().Format(time.RFC3339)
		finishedAt = &t
	}

	_, err := s.db.Exec(`
		UPDATE convert_jobs SET status = ?, error = ?, finished_at = COALESCE(?, finished_at)
		WHERE job_id = ?
	`, string(status), errMsg, finishedAt, jobID)
	return err
}

// UpdateJobStarted marks a job as running with start time.
func (s *Store) UpdateJobStarted(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE convert_jobs SET status = ?, started_at = ?
		WHERE job_id = ?
	`, string(JobStatusRunning), now, jobID)
	return err
}

// UpdateJobProgress updates the progress fields.
func (s *Store) UpdateJobProgress(jobID string, phase string, done, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE convert_jobs SET phase = ?, done = ?, total = ?
		WHERE job_id = ?
	`, phase, done, total, jobID)
	return err
}

// UpdateJobCounts updates the file and skipped-gene counts.
func (s *Store) UpdateJobCounts(jobID string, files, skippedGenes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE convert_jobs SET files = ?, skipped_genes = ?
		WHERE job_id = ?
	`, files, skippedGenes, jobID)
	return err
}

// InsertOutputs records the files written by a job in a batch transaction.
func (s *Store) InsertOutputs(jobID string, outputs []*OutputFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO convert_outputs (job_id, file_name, path)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outputs {
		if _, err := stmt.Exec(jobID, o.FileName, o.Path); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListOutputs returns the files written by a job in insertion order.
func (s *Store) ListOutputs(jobID string) ([]*OutputFile, error) {
	rows, err := s.db.Query(`
		SELECT file_name, path FROM convert_outputs
		WHERE job_id = ? ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outputs []*OutputFile
	for rows.Next() {
		var o OutputFile
		if err := rows.Scan(&o.FileName, &o.Path); err != nil {
			return nil, err
		}
		outputs = append(outputs, &o)
	}
	return outputs, nil
}

// ListJobs returns all jobs, newest first.
func (s *Store) ListJobs() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT job_id, study, status, params_json, phase, done, total, files, skipped_genes, error, created_at, started_at, finished_at
		FROM convert_jobs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanJobs(rows)
}

// ListJobsByStudy returns all jobs for a study, newest first.
func (s *Store) ListJobsByStudy(study string) ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT job_id, study, status, params_json, phase, done, total, files, skipped_genes, error, created_at, started_at, finished_at
		FROM convert_jobs WHERE study = ?
		ORDER BY created_at DESC
	`, study)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanJobs(rows)
}

// ListQueuedJobs returns all queued jobs (for restart recovery).
func (s *Store) ListQueuedJobs() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT job_id, study, status, params_json, phase, done, total, files, skipped_genes, error, created_at, started_at, finished_at
		FROM convert_jobs WHERE status = ?
		ORDER BY created_at ASC
	`, string(JobStatusQueued))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanJobs(rows)
}

// RequeueRunning resets jobs that were running when the process died
// back to queued (for restart recovery). A conversion writes nothing
// until every document is built, so rerunning one is safe.
func (s *Store) RequeueRunning() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE convert_jobs SET status = ?, phase = '', done = 0, total = 0, started_at = NULL
		WHERE status = ?
	`, string(JobStatusQueued), string(JobStatusRunning))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpiredJobs deletes finished jobs older than retentionDays.
func (s *Store) DeleteExpiredJobs(retentionDays int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	// Delete outputs first (foreign key)
	_, err := s.db.Exec(`
		DELETE FROM convert_outputs WHERE job_id IN (
			SELECT job_id FROM convert_jobs WHERE finished_at IS NOT NULL AND finished_at < ?
		)
	`, cutoff)
	if err != nil {
		return 0, err
	}

	// Delete jobs
	result, err := s.db.Exec(`
		DELETE FROM convert_jobs WHERE finished_at IS NOT NULL AND finished_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// DeleteJob deletes a job and its recorded outputs.
func (s *Store) DeleteJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Delete outputs first
	_, err := s.db.Exec("DELETE FROM convert_outputs WHERE job_id = ?", jobID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec("DELETE FROM convert_jobs WHERE job_id = ?", jobID)
	return err
}

func (s *Store) scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var job Job
		var paramsJSON string
		var createdAtStr string
		var startedAtStr, finishedAtStr sql.NullString

		err := rows.Scan(
			&job.ID,
			&job.Study,
			&job.Status,
			&paramsJSON,
			&job.Progress.Phase,
			&job.Progress.Done,
			&job.Progress.Total,
			&job.Files,
			&job.SkippedGenes,
			&job.Error,
			&createdAtStr,
			&startedAtStr,
			&finishedAtStr,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(paramsJSON), &job.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params: %w", err)
		}

		job.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
		if startedAtStr.Valid {
			t, _ := time.Parse(time.RFC3339, startedAtStr.String)
			job.StartedAt = &t
		}
		if finishedAtStr.Valid {
			t, _ := time.Parse(time.RFC3339, finishedAtStr.String)
			job.FinishedAt = &t
		}

		jobs = append(jobs, &job)
	}
	return jobs, nil
}
