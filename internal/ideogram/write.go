package ideogram

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

// Names the emitter produces under the output directory.
const (
	OutputSubdir = "ideogram_exp_means"
	ArchiveName  = "ideogram_exp_means.tar.gz"
)

// writeDocuments serializes every output into dir/ideogram_exp_means/,
// recreating that subdirectory first. Only the subdirectory is
// recreated: the output directory itself may hold unrelated files.
// Returned paths are in output order regardless of worker count.
func writeDocuments(ctx context.Context, dir string, outputs []*Output, workers int, progress func(done, total int)) ([]string, error) {
	subdir := filepath.Join(dir, OutputSubdir)
	if err := os.RemoveAll(subdir); err != nil {
		return nil, fmt.Errorf("clearing %s: %w", subdir, err)
	}
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return nil, err
	}

	files := make([]string, len(outputs))
	var mu sync.Mutex
	done := 0
	err := runTasks(ctx, workers, len(outputs), func(i int) error {
		o := outputs[i]
		b, err := json.Marshal(o.Doc)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", o.FileName(), err)
		}
		path := filepath.Join(subdir, o.FileName())
		if err := data.WriteFileAtomic(path, b, 0o644); err != nil {
			return err
		}
		files[i] = path
		log.Printf("Wrote Ideogram.js annotations to %s", path)
		if progress != nil {
			mu.Lock()
			done++
			progress(done, len(outputs))
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// writeArchive bundles dir/ideogram_exp_means into
// dir/ideogram_exp_means.tar.gz. Entries are sorted by name and
// timestamps pinned to the epoch so reruns on identical inputs produce
// byte-identical archives.
func writeArchive(dir string) (string, error) {
	subdir := filepath.Join(dir, OutputSubdir)
	entries, err := os.ReadDir(subdir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	epoch := time.Unix(0, 0)
	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     OutputSubdir + "/",
		Mode:     0o755,
		ModTime:  epoch,
	}); err != nil {
		return "", err
	}
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(subdir, name))
		if err != nil {
			return "", err
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     OutputSubdir + "/" + name,
			Mode:     0o644,
			Size:     int64(len(b)),
			ModTime:  epoch,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return "", err
		}
		if _, err := tw.Write(b); err != nil {
			return "", err
		}
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(dir, ArchiveName)
	if err := data.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
