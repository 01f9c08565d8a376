// scp-verify checks Single Cell Portal study files before submission:
// metadata, cluster coordinate, expression matrix and gene-list files,
// plus cell and gene name agreement across them. All findings are
// collected so a submitter can fix a file in one pass; the exit status
// is non-zero when any check failed. Gzip-compressed inputs are read
// transparently.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/scp"
)

func main() {
	var (
		clusterPaths  sliceValue
		exprPaths     sliceValue
		geneListPaths sliceValue
	)
	metadataPath := flag.String("metadata-path", "", "specify the SCP metadata file")
	flag.Var(&clusterPaths, "cluster-paths", "specify a cluster coordinates file (may be present more than once)")
	flag.Var(&exprPaths, "expression-paths", "specify an expression matrix (may be present more than once)")
	flag.Var(&geneListPaths, "gene-list-paths", "specify a gene-list file (may be present more than once)")
	delimiter := flag.String("delimiter", "", "specify the input field delimiter (default tab)")
	addGeneKeyword := flag.Bool("add-gene-keyword", false, "specify to write a corrected expression matrix copy when the header lacks the GENE keyword")
	flag.Parse()

	if *metadataPath == "" && len(clusterPaths) == 0 && len(exprPaths) == 0 && len(geneListPaths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	delim := scp.DefaultDelimiter
	if *delimiter != "" {
		delim = (*delimiter)[0]
	}

	rep := &scp.Report{}
	unreadable := 0

	var metadata *scp.VerifiedFile
	if *metadataPath != "" {
		v, err := scp.VerifyMetadata(rep, *metadataPath, delim)
		if err != nil {
			log.Printf("cannot read %s: %v", *metadataPath, err)
			unreadable++
		} else {
			metadata = v
		}
	}

	var clusters []*scp.VerifiedFile
	for _, path := range clusterPaths {
		v, err := scp.VerifyCoordinates(rep, path, delim)
		if err != nil {
			log.Printf("cannot read %s: %v", path, err)
			unreadable++
			continue
		}
		clusters = append(clusters, v)
	}

	var exprs []*scp.VerifiedFile
	for _, path := range exprPaths {
		if *addGeneKeyword {
			newPath, repaired, err := scp.RepairExpressionHeader(path, delim)
			if err != nil {
				log.Printf("cannot repair %s: %v", path, err)
				unreadable++
				continue
			}
			if repaired {
				log.Printf("wrote corrected copy of %s to %s", path, newPath)
				path = newPath
			}
		}
		v, err := scp.VerifyExpression(rep, path, delim)
		if err != nil {
			log.Printf("cannot read %s: %v", path, err)
			unreadable++
			continue
		}
		exprs = append(exprs, v)
	}

	var lists []*scp.VerifiedFile
	for _, path := range geneListPaths {
		v, err := scp.VerifyGeneList(rep, path, delim)
		if err != nil {
			log.Printf("cannot read %s: %v", path, err)
			unreadable++
			continue
		}
		lists = append(lists, v)
	}

	// Cross-file agreement: the metadata file defines the cell
	// population; gene lists must stay within the expression matrix.
	if metadata != nil {
		for _, c := range clusters {
			scp.CompareCellNames(rep, c, metadata)
		}
		for _, e := range exprs {
			scp.CompareCellNames(rep, e, metadata)
		}
	}
	for _, l := range lists {
		for _, e := range exprs {
			scp.CompareGeneNames(rep, l, e)
		}
	}

	for _, n := range rep.Notes {
		log.Printf("note: %s", n)
	}
	for _, f := range rep.Findings {
		log.Print(f)
	}

	if unreadable > 0 || !rep.OK() {
		log.Fatalf("verification failed: %d finding(s), %d unreadable file(s)", len(rep.Findings), unreadable)
	}
	log.Println("all files verified")
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
