// infercnv-prep derives inferCNV annotation inputs from SCP files. It
// labels every cell of the study for inferCNV: reference (normal) cells
// keep their label from a cluster file, all other cells take their
// label from the metadata file.
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/infercnv"
)

func main() {
	refClusterPath := flag.String("reference-cluster-path", "", "specify the cluster file naming the reference cells (required)")
	refGroupName := flag.String("reference-group-name", "", "specify the group annotation in the reference cluster file (required)")
	metadataPath := flag.String("metadata-path", "", "specify the SCP metadata file (required)")
	obsGroupName := flag.String("observation-group-name", "", "specify the group annotation in the metadata file (required)")
	delimiter := flag.String("delimiter", "", "specify the input field delimiter (default tab)")
	outputDir := flag.String("output-dir", ".", "specify the directory for the annotation outputs")
	flag.Parse()

	if *refClusterPath == "" || *refGroupName == "" || *metadataPath == "" || *obsGroupName == "" {
		flag.Usage()
		os.Exit(2)
	}

	var delim byte
	if *delimiter != "" {
		delim = (*delimiter)[0]
	}

	annots, err := infercnv.BuildAnnotations(infercnv.PrepConfig{
		RefClusterPath: *refClusterPath,
		RefGroupName:   *refGroupName,
		MetadataPath:   *metadataPath,
		ObsGroupName:   *obsGroupName,
		Delimiter:      delim,
	})
	if err != nil {
		var lookupErr *data.LookupError
		if errors.As(err, &lookupErr) {
			log.Fatalf("lookup failed: %v", err)
		}
		log.Fatal(err)
	}

	annotsPath, labelsPath, err := annots.WriteFiles(*outputDir)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("wrote %d annotation row(s) to %s", len(annots.Rows), annotsPath)
	log.Printf("wrote %d reference label(s) to %s", len(annots.RefLabels), labelsPath)
}
