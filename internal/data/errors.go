// Package data holds the pieces shared by every input reader in the
// pipeline: the error taxonomy surfaced to callers and transparent
// opening of plain or gzip-compressed text files.
//
// All pipeline failures fall into one of three kinds. FormatError is a
// malformed file. LookupError is an identifier that a required mapping
// cannot resolve. DataQualityError is input that parses cleanly but
// cannot produce a meaningful result. All three are fatal to a run.
package data

import "fmt"

// FormatError reports a malformed input file: a row with the wrong
// number of fields, a value that does not parse, a bad header.
type FormatError struct {
	Path string
	Line int // 1-based, 0 when the error is not tied to a line
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// LookupKind identifies what a LookupError failed to resolve.
type LookupKind string

const (
	LookupCell       LookupKind = "cell"
	LookupGene       LookupKind = "gene"
	LookupCluster    LookupKind = "cluster"
	LookupAnnotation LookupKind = "annotation"
	LookupLabel      LookupKind = "label"
	LookupStudy      LookupKind = "study"
	LookupDocument   LookupKind = "document"
	LookupChromosome LookupKind = "chromosome"
	LookupTrack      LookupKind = "track"
)

// LookupError reports an identifier referenced by one input but absent
// from the mapping that must resolve it.
type LookupError struct {
	Kind LookupKind
	Name string
	Path string // file whose mapping was consulted, when known
}

func (e *LookupError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %q not found in %s", e.Kind, e.Name, e.Path)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// DataQualityError reports well-formed input that cannot yield a
// meaningful result: an aggregate over zero cells, a document with no
// annotations, too many genes without genomic positions.
type DataQualityError struct {
	Subject string // group, clustering or file the finding is about
	Msg     string
}

func (e *DataQualityError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s", e.Subject, e.Msg)
	}
	return e.Msg
}
