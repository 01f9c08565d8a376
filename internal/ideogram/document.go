// Package ideogram assembles Ideogram.js annotation documents from
// aggregated expression means and writes them as the portal's
// ideogram_exp_means file set.
//
// Document format:
// https://github.com/eweitz/ideogram/wiki/Annotations
package ideogram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/cluster"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/infercnv"
)

// Leading keys of every document; track keys follow them.
var baseKeys = []string{"name", "start", "length"}

// BinKeySuffix marks the derived bin column of a track.
const BinKeySuffix = "--bin"

// Annot is one gene's annotation row. On the wire it is a positional
// array: name, genomic start, length, then one mean per track followed
// by one bin per track when the document carries thresholds.
type Annot struct {
	Name   string
	Start  int64
	Length int64
	Values []float64
}

// MarshalJSON writes the positional array form.
func (a Annot) MarshalJSON() ([]byte, error) {
	name, err := json.Marshal(a.Name)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(name)+24+12*len(a.Values))
	buf = append(buf, '[')
	buf = append(buf, name...)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, a.Start, 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, a.Length, 10)
	for _, v := range a.Values {
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, v, 'f', -1, 64)
	}
	buf = append(buf, ']')
	return buf, nil
}

// UnmarshalJSON reads the positional array form.
func (a *Annot) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < len(baseKeys) {
		return fmt.Errorf("annotation row has %d fields, want at least %d", len(raw), len(baseKeys))
	}
	if err := json.Unmarshal(raw[0], &a.Name); err != nil {
		return fmt.Errorf("annotation name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &a.Start); err != nil {
		return fmt.Errorf("annotation start: %w", err)
	}
	if err := json.Unmarshal(raw[2], &a.Length); err != nil {
		return fmt.Errorf("annotation length: %w", err)
	}
	a.Values = make([]float64, len(raw)-3)
	for i, r := range raw[3:] {
		if err := json.Unmarshal(r, &a.Values[i]); err != nil {
			return fmt.Errorf("annotation value %d: %w", i, err)
		}
	}
	return nil
}

// ChromosomeAnnots groups the annotation rows of one chromosome.
type ChromosomeAnnots struct {
	Chr    string  `json:"chr"`
	Annots []Annot `json:"annots"`
}

// Metadata carries run-level values alongside the tracks. Thresholds
// are propagated exactly as read; a document built without a threshold
// file marshals them as null.
type Metadata struct {
	HeatmapThresholds []float64 `json:"heatmapThresholds"`
}

// Document is one Ideogram.js annotation file.
type Document struct {
	Keys     []string           `json:"keys"`
	Metadata Metadata           `json:"metadata"`
	Annots   []ChromosomeAnnots `json:"annots"`
}

// Tracks returns the heatmap track labels, excluding the derived bin
// columns.
func (d *Document) Tracks() []string {
	n := len(d.Keys) - len(baseKeys)
	if n <= 0 {
		return nil
	}
	if len(d.Metadata.HeatmapThresholds) > 0 {
		n /= 2
	}
	return d.Keys[len(baseKeys) : len(baseKeys)+n]
}

// Chromosome returns the annotation set of one chromosome, looked up
// by its emitted (unprefixed) name.
func (d *Document) Chromosome(chr string) (*ChromosomeAnnots, bool) {
	for i := range d.Annots {
		if d.Annots[i].Chr == chr {
			return &d.Annots[i], true
		}
	}
	return nil, false
}

// BuildDocument maps one clustering's aggregated means onto genomic
// coordinates. Genes keep matrix row order inside each chromosome;
// chromosomes appear in first-gene-seen order. Genes absent from the
// position table are skipped and counted, never emitted. A document
// that would contain zero annotations is a DataQualityError.
func BuildDocument(means *cluster.Means, positions *infercnv.GenePositions, thresholds []float64) (*Document, int, error) {
	keys := make([]string, 0, len(baseKeys)+2*len(means.Labels))
	keys = append(keys, baseKeys...)
	keys = append(keys, means.Labels...)
	if len(thresholds) > 0 {
		for _, l := range means.Labels {
			keys = append(keys, l+BinKeySuffix)
		}
	}

	doc := &Document{Keys: keys, Metadata: Metadata{HeatmapThresholds: thresholds}}
	chrIdx := make(map[string]int)
	skipped := 0
	for gi, gene := range means.Genes {
		pos, ok := positions.Lookup(gene)
		if !ok {
			skipped++
			continue
		}
		chr := strings.TrimPrefix(pos.Chr, "chr")

		vals := means.Values[gi]
		values := make([]float64, 0, 2*len(vals))
		values = append(values, vals...)
		if len(thresholds) > 0 {
			for _, v := range vals {
				values = append(values, float64(Bin(v, thresholds)))
			}
		}

		j, ok := chrIdx[chr]
		if !ok {
			j = len(doc.Annots)
			chrIdx[chr] = j
			doc.Annots = append(doc.Annots, ChromosomeAnnots{Chr: chr})
		}
		doc.Annots[j].Annots = append(doc.Annots[j].Annots, Annot{
			Name:   gene,
			Start:  pos.Start,
			Length: pos.Length(),
			Values: values,
		})
	}
	if len(doc.Annots) == 0 {
		return nil, skipped, &data.DataQualityError{
			Subject: means.Clustering,
			Msg:     "no matrix gene has a genomic position entry; document would be empty",
		}
	}
	return doc, skipped, nil
}

// Output is one built document with its placement identity: the
// cluster group it belongs to, the clustering (group column) it
// tracks, and whether that clustering came from the group's cluster
// file or the study metadata file.
type Output struct {
	Group      string
	Clustering string
	Scope      cluster.Scope
	Doc        *Document
}

// FileName encodes the identity triple so that a run covering several
// groups and clusterings never collides with itself.
func (o *Output) FileName() string {
	return fmt.Sprintf("ideogram_exp_means__%s--%s--group--%s.json", o.Group, o.Clustering, o.Scope)
}

// ParseFileName recovers the identity triple from an emitted file name.
// A group name containing "--" survives the round trip; a clustering
// name containing "--" does not, matching the encoding's own limits.
func ParseFileName(name string) (group, clustering string, scope cluster.Scope, ok bool) {
	base, found := strings.CutPrefix(name, "ideogram_exp_means__")
	if !found {
		return "", "", "", false
	}
	base, found = strings.CutSuffix(base, ".json")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(base, "--")
	if len(parts) < 4 || parts[len(parts)-2] != "group" {
		return "", "", "", false
	}
	scope = cluster.Scope(parts[len(parts)-1])
	if scope != cluster.ScopeCluster && scope != cluster.ScopeStudy {
		return "", "", "", false
	}
	clustering = parts[len(parts)-3]
	group = strings.Join(parts[:len(parts)-3], "--")
	if group == "" || clustering == "" {
		return "", "", "", false
	}
	return group, clustering, scope, true
}
