package infercnv

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

// GenePosition is one entry of the inferCNV genomic position file.
type GenePosition struct {
	Gene  string
	Chr   string
	Start int64
	Stop  int64
}

// Length returns the genomic span of the gene.
func (p GenePosition) Length() int64 { return p.Stop - p.Start }

// GenePositions maps gene identifiers to their genomic positions.
// Each gene has at most one entry.
type GenePositions struct {
	Path   string
	byGene map[string]GenePosition
}

// Lookup returns the position of the named gene.
func (p *GenePositions) Lookup(gene string) (GenePosition, bool) {
	pos, ok := p.byGene[gene]
	return pos, ok
}

// Len returns the number of gene entries.
func (p *GenePositions) Len() int { return len(p.byGene) }

// ReadGenePositions parses a whitespace-delimited genomic position
// file: gene identifier, chromosome, start, stop per line.
func ReadGenePositions(path string) (*GenePositions, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	p := &GenePositions{Path: path, byGene: make(map[string]GenePosition)}
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("expected 4 fields (gene, chromosome, start, stop), got %d", len(fields)),
			}
		}
		start, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("start coordinate %q is not an integer", fields[2]),
			}
		}
		stop, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("stop coordinate %q is not an integer", fields[3]),
			}
		}
		if start > stop {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("start %d greater than stop %d", start, stop),
			}
		}
		gene := fields[0]
		if _, dup := p.byGene[gene]; dup {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("duplicate gene %q", gene),
			}
		}
		p.byGene[gene] = GenePosition{Gene: gene, Chr: fields[1], Start: start, Stop: stop}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(p.byGene) == 0 {
		return nil, &data.FormatError{Path: path, Msg: "no gene positions"}
	}
	return p, nil
}
