// ideogram-annots converts inferCNV expression output into Ideogram.js
// annotation documents. It reads an inferCNV expression matrix, a gene
// position file and SCP cluster/metadata files, aggregates expression
// means per chromosome-placed gene, and writes one annotation file per
// cluster group, clustering and scope.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
)

func main() {
	var (
		clusterNames    sliceValue
		clusterPaths    sliceValue
		refClusterNames sliceValue
		orderedLabels   sliceValue
	)
	matrixPath := flag.String("matrix-path", "", "specify the inferCNV expression matrix (required)")
	matrixDelimiter := flag.String("matrix-delimiter", "", "specify the expression matrix field delimiter (default tab)")
	genPosFile := flag.String("gen-pos-file", "", "specify the gene position file: gene, chromosome, start, stop (required)")
	flag.Var(&clusterNames, "cluster-names", "specify a cluster group name (may be present more than once)")
	flag.Var(&clusterPaths, "cluster-paths", "specify the cluster file for the matching cluster-names entry (may be present more than once)")
	metadataPath := flag.String("metadata-path", "", "specify the SCP metadata file (required)")
	flag.Var(&refClusterNames, "ref-cluster-names", "specify a reference cluster group to exclude (may be present more than once)")
	flag.Var(&orderedLabels, "ordered-labels", "specify the label emit order (may be present more than once)")
	heatmapThresholdsPath := flag.String("heatmap-thresholds-path", "", "specify a file with one bin threshold per line")
	refGroupName := flag.String("reference-group-name", "", "specify the metadata annotation naming the reference labels")
	outputDir := flag.String("output-dir", ".", "specify the directory for the annotation files")
	jobs := flag.Int("jobs", runtime.NumCPU(), "specify the number of documents to build concurrently (<=0 is use all cores)")
	maxMissingGenes := flag.Float64("max-missing-genes", 1.0, "specify the tolerated fraction of matrix genes without a position")
	flag.Parse()

	if *matrixPath == "" || *genPosFile == "" || *metadataPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if len(clusterNames) != len(clusterPaths) {
		log.Fatalf("got %d cluster-names but %d cluster-paths", len(clusterNames), len(clusterPaths))
	}

	conv := ideogram.New(ideogram.Config{
		MatrixPath:            *matrixPath,
		MatrixDelimiter:       *matrixDelimiter,
		GenePosPath:           *genPosFile,
		ClusterNames:          clusterNames,
		ClusterPaths:          clusterPaths,
		MetadataPath:          *metadataPath,
		RefClusterNames:       refClusterNames,
		OrderedLabels:         orderedLabels,
		HeatmapThresholdsPath: *heatmapThresholdsPath,
		RefGroupName:          *refGroupName,
		OutputDir:             *outputDir,
		Workers:               *jobs,
		MaxMissingGenes:       *maxMissingGenes,
	})
	conv.OnProgress(func(done, total int) {
		log.Printf("wrote %d/%d annotation files", done, total)
	})

	res, err := conv.Run(context.Background())
	if err != nil {
		fatal(err)
	}

	log.Printf("wrote %d annotation file(s) to %s", len(res.Files), *outputDir)
	if res.SkippedGenes > 0 {
		log.Printf("skipped %d gene(s) without a genomic position", res.SkippedGenes)
	}
	if res.ArchivePath != "" {
		log.Printf("archive: %s", res.ArchivePath)
	}
}

// fatal prints a diagnostic classified by error kind and exits
// non-zero. The run writes nothing on failure, so there is no partial
// output to clean up.
func fatal(err error) {
	var (
		formatErr  *data.FormatError
		lookupErr  *data.LookupError
		qualityErr *data.DataQualityError
	)
	switch {
	case errors.As(err, &formatErr):
		log.Fatalf("malformed input: %v", err)
	case errors.As(err, &lookupErr):
		log.Fatalf("lookup failed: %v", err)
	case errors.As(err, &qualityErr):
		log.Fatalf("unusable input: %v", err)
	default:
		log.Fatal(err)
	}
}

// sliceValue is a multi-value flag value.
type sliceValue []string

// Set adds the string to the sliceValue.
func (s *sliceValue) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// String satisfies the flag.Value interface.
func (s *sliceValue) String() string {
	return fmt.Sprintf("%q", []string(*s))
}
