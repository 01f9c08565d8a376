// Package cluster builds the cell groupings behind ideogram annotation
// tracks and aggregates per-gene expression means across them.
//
// A cluster group pairs one SCP cluster file with the study-wide
// metadata file: the cluster file's group columns describe the cells of
// that clustering run, the metadata columns describe every cell of the
// study. Each group-typed column becomes one clustering whose labels
// turn into heatmap tracks downstream.
package cluster

import (
	"errors"
	"fmt"
	"log"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/scp"
)

// Scope identifies which file a clustering was parsed from.
type Scope string

const (
	ScopeCluster Scope = "cluster" // the group's own cluster file
	ScopeStudy   Scope = "study"   // the shared study metadata file
)

// Scopes lists the scopes in emission order.
var Scopes = []Scope{ScopeCluster, ScopeStudy}

// Group is one configured cluster group: the clusterings of its own
// cluster file plus the clusterings of the study metadata file.
type Group struct {
	Name    string
	Cells   []string // cells of the cluster file, in file order
	Cluster []scp.Clustering
	Study   []scp.Clustering
}

// Clusterings returns the group's clusterings for one scope.
func (g *Group) Clusterings(s Scope) []scp.Clustering {
	if s == ScopeStudy {
		return g.Study
	}
	return g.Cluster
}

// Config names the inputs of BuildGroups. Names and Paths are parallel:
// Paths[i] is the cluster file of the group called Names[i].
type Config struct {
	Names         []string
	Paths         []string
	MetadataPath  string
	RefLabels     []string // labels whose cells are excluded everywhere
	OrderedLabels []string // optional label order; unlisted labels are dropped
	Delimiter     byte
}

// BuildGroups parses the cluster and metadata files into one Group per
// configured name. Reference labels are excluded from every clustering,
// and when an ordered label list is given every clustering's labels are
// rearranged to it. Per-label cell counts are logged as a run summary.
func BuildGroups(cfg Config) ([]Group, error) {
	if len(cfg.Names) == 0 {
		return nil, errors.New("no cluster groups configured")
	}
	if len(cfg.Names) != len(cfg.Paths) {
		return nil, fmt.Errorf("got %d cluster names for %d cluster paths", len(cfg.Names), len(cfg.Paths))
	}
	delim := cfg.Delimiter
	if delim == 0 {
		delim = scp.DefaultDelimiter
	}

	meta, err := scp.ReadClusters(cfg.MetadataPath, delim, cfg.RefLabels)
	if err != nil {
		return nil, err
	}

	groups := make([]Group, len(cfg.Names))
	for i, name := range cfg.Names {
		cf, err := scp.ReadClusters(cfg.Paths[i], delim, cfg.RefLabels)
		if err != nil {
			return nil, err
		}
		g := Group{
			Name:    name,
			Cells:   cf.Cells,
			Cluster: cf.Clusterings,
			Study:   cloneClusterings(meta.Clusterings),
		}
		for _, scope := range Scopes {
			if err := orderLabels(g.Clusterings(scope), cfg.OrderedLabels); err != nil {
				return nil, err
			}
		}
		logGroup(&g)
		groups[i] = g
	}
	return groups, nil
}

// orderLabels rearranges every clustering's labels to the given order.
// A listed label missing from a clustering is a LookupError; labels not
// listed are dropped. An empty order leaves file order untouched.
func orderLabels(clusterings []scp.Clustering, ordered []string) error {
	if len(ordered) == 0 {
		return nil
	}
	for i := range clusterings {
		c := &clusterings[i]
		labels := make([]scp.Label, 0, len(ordered))
		for _, name := range ordered {
			l, ok := c.Label(name)
			if !ok {
				return &data.LookupError{Kind: data.LookupLabel, Name: name, Path: c.Path}
			}
			labels = append(labels, *l)
		}
		c.Labels = labels
	}
	return nil
}

// cloneClusterings copies the clustering slice so that label reordering
// in one group cannot reach the metadata clusterings of another. Cell
// slices stay shared; they are read-only after parsing.
func cloneClusterings(src []scp.Clustering) []scp.Clustering {
	out := make([]scp.Clustering, len(src))
	for i, c := range src {
		out[i] = c
		out[i].Labels = append([]scp.Label(nil), c.Labels...)
	}
	return out
}

func logGroup(g *Group) {
	log.Printf("Cluster group %q", g.Name)
	for _, scope := range Scopes {
		log.Printf("  From %s file:", scope)
		for _, c := range g.Clusterings(scope) {
			for _, l := range c.Labels {
				log.Printf("    Cells in %s/%s: %d", c.Name, l.Name, len(l.Cells))
			}
		}
	}
}
