package infercnv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/scp"
)

// File names written by Annotations.WriteFiles. inferCNV is pointed at
// these paths by the workflow description, so they are fixed.
const (
	AnnotationsFileName = "infercnv_annots_from_scp.tsv"
	RefLabelsFileName   = "infercnv_reference_cell_labels_from_scp.tsv"
)

// AnnotationRow labels one cell for inferCNV.
type AnnotationRow struct {
	Cell  string
	Label string
}

// Annotations holds the inferCNV annotation input derived from SCP
// files: one labeled row per metadata cell, and the ordered unique
// labels of the reference (normal) cells.
type Annotations struct {
	Rows      []AnnotationRow
	RefLabels []string
}

// PrepConfig names the SCP inputs that become inferCNV annotations.
// The reference cluster file lists the cells to use as the inferCNV
// baseline under RefGroupName; the metadata file categorizes every
// cell of the expression matrix under ObsGroupName.
type PrepConfig struct {
	RefClusterPath string
	RefGroupName   string
	MetadataPath   string
	ObsGroupName   string
	Delimiter      byte
}

// BuildAnnotations labels every metadata cell for inferCNV: reference
// cells keep their label from the reference cluster file, all other
// cells take their observation label from the metadata file.
func BuildAnnotations(cfg PrepConfig) (*Annotations, error) {
	delim := cfg.Delimiter
	if delim == 0 {
		delim = scp.DefaultDelimiter
	}

	refRows, err := scp.ReadRaw(cfg.RefClusterPath, delim)
	if err != nil {
		return nil, err
	}
	refCol := columnIndex(refRows[0], cfg.RefGroupName)
	if refCol < 0 {
		return nil, &data.LookupError{Kind: data.LookupAnnotation, Name: cfg.RefGroupName, Path: cfg.RefClusterPath}
	}
	if len(refRows) < 3 {
		return nil, &data.FormatError{Path: cfg.RefClusterPath, Msg: "no data rows"}
	}

	refAnnots := make(map[string]string)
	var refLabels []string
	seen := make(map[string]bool)
	for i, row := range refRows[2:] {
		if len(row) <= refCol {
			return nil, &data.FormatError{
				Path: cfg.RefClusterPath, Line: i + 3,
				Msg: fmt.Sprintf("expected at least %d fields, got %d", refCol+1, len(row)),
			}
		}
		cell, label := row[0], row[refCol]
		if !seen[label] {
			seen[label] = true
			refLabels = append(refLabels, label)
		}
		refAnnots[cell] = label
	}

	metaRows, err := scp.ReadRaw(cfg.MetadataPath, delim)
	if err != nil {
		return nil, err
	}
	obsCol := columnIndex(metaRows[0], cfg.ObsGroupName)
	if obsCol < 0 {
		return nil, &data.LookupError{Kind: data.LookupAnnotation, Name: cfg.ObsGroupName, Path: cfg.MetadataPath}
	}
	if len(metaRows) < 3 {
		return nil, &data.FormatError{Path: cfg.MetadataPath, Msg: "no data rows"}
	}

	a := &Annotations{RefLabels: refLabels}
	for i, row := range metaRows[2:] {
		if len(row) <= obsCol {
			return nil, &data.FormatError{
				Path: cfg.MetadataPath, Line: i + 3,
				Msg: fmt.Sprintf("expected at least %d fields, got %d", obsCol+1, len(row)),
			}
		}
		cell := row[0]
		label, isRef := refAnnots[cell]
		if !isRef {
			label = row[obsCol]
		}
		a.Rows = append(a.Rows, AnnotationRow{Cell: cell, Label: label})
	}
	return a, nil
}

// WriteFiles writes the annotation TSV and the comma-joined reference
// label list into dir, creating the directory when missing. Neither
// file carries a trailing newline: inferCNV consumes these verbatim.
func (a *Annotations) WriteFiles(dir string) (annotsPath, labelsPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	var sb strings.Builder
	for i, row := range a.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(row.Cell)
		sb.WriteByte('\t')
		sb.WriteString(row.Label)
	}
	annotsPath = filepath.Join(dir, AnnotationsFileName)
	if err := data.WriteFileAtomic(annotsPath, []byte(sb.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", annotsPath, err)
	}

	labelsPath = filepath.Join(dir, RefLabelsFileName)
	labels := strings.Join(a.RefLabels, ",")
	if err := data.WriteFileAtomic(labelsPath, []byte(labels), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", labelsPath, err)
	}
	return annotsPath, labelsPath, nil
}

// columnIndex returns the first column whose header equals name, or -1.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
