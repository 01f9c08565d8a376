package ideogram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/cluster"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/infercnv"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/scp"
)

// Config holds one conversion run's inputs. Field names mirror the CLI
// flags; the JSON form is what the conversion job API accepts.
//
// Cluster and metadata files are always tab-delimited per the SCP file
// contract; MatrixDelimiter applies to the expression matrix only.
type Config struct {
	MatrixPath            string   `json:"matrixPath"`
	MatrixDelimiter       string   `json:"matrixDelimiter,omitempty"`
	GenePosPath           string   `json:"genPosPath"`
	ClusterNames          []string `json:"clusterNames"`
	ClusterPaths          []string `json:"clusterPaths"`
	MetadataPath          string   `json:"metadataPath"`
	RefClusterNames       []string `json:"refClusterNames,omitempty"`
	OrderedLabels         []string `json:"orderedLabels,omitempty"`
	HeatmapThresholdsPath string   `json:"heatmapThresholdsPath,omitempty"`
	RefGroupName          string   `json:"referenceGroupName,omitempty"`
	OutputDir             string   `json:"outputDir"`

	// Workers sets the document build/write pool size; zero or
	// negative means GOMAXPROCS.
	Workers int `json:"workers,omitempty"`

	// MaxMissingGenes is the tolerated fraction of matrix genes
	// without a genomic position entry. The run fails once the
	// fraction exceeds it; zero or negative means tolerate all.
	MaxMissingGenes float64 `json:"maxMissingGenes,omitempty"`
}

// Result summarizes a completed conversion.
type Result struct {
	Files        []string `json:"files"`
	ArchivePath  string   `json:"archivePath"`
	SkippedGenes int      `json:"skippedGenes"`
}

// Converter runs the matrix → ideogram annotation conversion: load,
// aggregate, emit, in one pass with no intermediate state.
type Converter struct {
	cfg      Config
	progress func(done, total int)
}

func New(cfg Config) *Converter {
	return &Converter{cfg: cfg}
}

// OnProgress registers a callback invoked after each document write
// with the count written so far and the total. Must be set before Run.
func (c *Converter) OnProgress(fn func(done, total int)) {
	c.progress = fn
}

// Run executes the conversion. Documents are fully built before the
// first byte is written, so a FormatError, LookupError or
// DataQualityError anywhere leaves the output directory untouched.
func (c *Converter) Run(ctx context.Context) (*Result, error) {
	cfg := c.cfg
	if cfg.MatrixPath == "" || cfg.GenePosPath == "" || cfg.MetadataPath == "" || cfg.OutputDir == "" {
		return nil, errors.New("matrix path, gene position file, metadata path and output dir are all required")
	}

	m, err := infercnv.ReadMatrix(cfg.MatrixPath, delimiterByte(cfg.MatrixDelimiter))
	if err != nil {
		return nil, fmt.Errorf("reading matrix: %w", err)
	}
	log.Printf("Matrix %s: %d genes x %d cells", cfg.MatrixPath, m.GeneCount(), m.CellCount())

	positions, err := infercnv.ReadGenePositions(cfg.GenePosPath)
	if err != nil {
		return nil, fmt.Errorf("reading gene positions: %w", err)
	}

	var thresholds []float64
	if cfg.HeatmapThresholdsPath != "" {
		thresholds, err = infercnv.ReadHeatmapThresholds(cfg.HeatmapThresholdsPath)
		if err != nil {
			return nil, fmt.Errorf("reading heatmap thresholds: %w", err)
		}
	}

	groups, err := cluster.BuildGroups(cluster.Config{
		Names:         cfg.ClusterNames,
		Paths:         cfg.ClusterPaths,
		MetadataPath:  cfg.MetadataPath,
		RefLabels:     cfg.RefClusterNames,
		OrderedLabels: cfg.OrderedLabels,
	})
	if err != nil {
		return nil, err
	}

	skipped, first := missingGenes(m, positions)
	if skipped > 0 {
		log.Printf("Genes in matrix but not in gene position file: %d (first: %s)", skipped, first)
		if cfg.MaxMissingGenes > 0 {
			frac := float64(skipped) / float64(m.GeneCount())
			if frac > cfg.MaxMissingGenes {
				return nil, &data.DataQualityError{
					Subject: cfg.MatrixPath,
					Msg: fmt.Sprintf("%d of %d genes (%.1f%%) have no genomic position entry, limit is %.1f%%",
						skipped, m.GeneCount(), frac*100, cfg.MaxMissingGenes*100),
				}
			}
		}
	}

	type task struct {
		group      string
		scope      cluster.Scope
		clustering *scp.Clustering
	}
	var tasks []task
	for gi := range groups {
		g := &groups[gi]
		for _, scope := range cluster.Scopes {
			cs := g.Clusterings(scope)
			for ci := range cs {
				if cfg.RefGroupName != "" && cs[ci].Name != cfg.RefGroupName {
					continue
				}
				tasks = append(tasks, task{group: g.Name, scope: scope, clustering: &cs[ci]})
			}
		}
	}
	if len(tasks) == 0 {
		if cfg.RefGroupName != "" {
			return nil, &data.LookupError{Kind: data.LookupAnnotation, Name: cfg.RefGroupName}
		}
		return nil, &data.DataQualityError{Msg: "no group-typed annotation columns to convert"}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outputs := make([]*Output, len(tasks))
	err = runTasks(ctx, workers, len(tasks), func(i int) error {
		t := tasks[i]
		means, aggErr := cluster.Aggregate(m, t.clustering)
		if aggErr != nil {
			return aggErr
		}
		doc, _, docErr := BuildDocument(means, positions, thresholds)
		if docErr != nil {
			return docErr
		}
		outputs[i] = &Output{Group: t.group, Clustering: t.clustering.Name, Scope: t.scope, Doc: doc}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files, err := writeDocuments(ctx, cfg.OutputDir, outputs, workers, c.progress)
	if err != nil {
		return nil, err
	}
	archive, err := writeArchive(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	log.Printf("Packaged output into %s", archive)

	return &Result{Files: files, ArchivePath: archive, SkippedGenes: skipped}, nil
}

func missingGenes(m *infercnv.Matrix, positions *infercnv.GenePositions) (count int, first string) {
	for _, g := range m.Genes {
		if _, ok := positions.Lookup(g); !ok {
			if count == 0 {
				first = g
			}
			count++
		}
	}
	return count, first
}

func delimiterByte(s string) byte {
	if s == "" {
		return scp.DefaultDelimiter
	}
	return s[0]
}

// runTasks runs fn for every index in [0, n) across a fixed worker
// pool, stopping at the first error or context cancellation. Workers
// already mid-task finish it before exiting.
func runTasks(ctx context.Context, workers, n int, fn func(i int) error) error {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	indices := make(chan int)
	errc := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				if err := fn(i); err != nil {
					errc <- err
					return
				}
			}
		}()
	}

	var firstErr error
feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			firstErr = ctx.Err()
			break feed
		default:
		}
		select {
		case indices <- i:
		case err := <-errc:
			firstErr = err
			break feed
		case <-ctx.Done():
			firstErr = ctx.Err()
			break feed
		}
	}
	close(indices)
	wg.Wait()
	close(errc)
	if firstErr == nil {
		firstErr = <-errc // nil when every task succeeded
	}
	return firstErr
}
