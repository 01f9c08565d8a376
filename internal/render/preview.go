// Package render rasterizes annotation document tracks into PNG
// heatmap strips using fogleman/gg.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"strconv"
	"sync"

	"github.com/fogleman/gg"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/pkg/colormap"
)

// Config contains renderer defaults.
type Config struct {
	Width       int    // strip width in pixels
	TrackHeight int    // strip height in pixels
	Colormap    string // default scale name
}

// DefaultConfig returns the preview rendering defaults.
func DefaultConfig() Config {
	return Config{Width: 1024, TrackHeight: 64, Colormap: colormap.DefaultName}
}

// Renderer draws per-chromosome heatmap strips of document tracks.
// One Renderer serves concurrent requests; contexts and encode
// buffers are pooled.
type Renderer struct {
	config      Config
	contextPool sync.Pool
	bufferPool  sync.Pool
}

// NewRenderer creates a renderer with the given defaults; zero config
// fields take the DefaultConfig values.
func NewRenderer(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.TrackHeight <= 0 {
		cfg.TrackHeight = def.TrackHeight
	}
	if cfg.Colormap == "" {
		cfg.Colormap = def.Colormap
	}

	return &Renderer{
		config: cfg,
		contextPool: sync.Pool{
			New: func() interface{} {
				return gg.NewContext(cfg.Width, cfg.TrackHeight)
			},
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

// Options select what Preview draws. Zero values fall back to the
// renderer defaults.
type Options struct {
	Track    int // index into doc.Tracks()
	Width    int
	Colormap string
}

// Preview draws one track of one chromosome as a horizontal heatmap
// strip. Each annotation becomes a rectangle at its genomic position
// scaled to the chromosome's annotated extent. With thresholds in the
// document the rectangle takes its bin's color; without them the
// track's value range is normalized onto the scale.
func (r *Renderer) Preview(doc *ideogram.Document, chr string, opts Options) ([]byte, error) {
	ca, ok := doc.Chromosome(chr)
	if !ok {
		return nil, &data.LookupError{Kind: data.LookupChromosome, Name: chr}
	}
	tracks := doc.Tracks()
	if opts.Track < 0 || opts.Track >= len(tracks) {
		return nil, &data.LookupError{Kind: data.LookupTrack, Name: strconv.Itoa(opts.Track)}
	}

	name := opts.Colormap
	if name == "" {
		name = r.config.Colormap
	}
	cmap, ok := colormap.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", name)
	}

	width := opts.Width
	if width <= 0 {
		width = r.config.Width
	}
	height := r.config.TrackHeight

	dc, pooled := r.context(width, height)
	if pooled {
		defer r.contextPool.Put(dc)
	}

	dc.SetColor(color.White)
	dc.Clear()

	if extent := chromosomeExtent(ca); extent > 0 {
		thresholds := doc.Metadata.HeatmapThresholds
		lo, hi := trackRange(ca, opts.Track)
		for _, a := range ca.Annots {
			if opts.Track >= len(a.Values) {
				continue
			}
			v := a.Values[opts.Track]

			var c color.Color
			if len(thresholds) > 0 {
				c = cmap.AtBin(ideogram.Bin(v, thresholds), len(thresholds))
			} else {
				t := 0.5
				if hi > lo {
					t = (v - lo) / (hi - lo)
				}
				c = cmap.At(t)
			}

			x := float64(a.Start) / float64(extent) * float64(width)
			w := float64(a.Length) / float64(extent) * float64(width)
			if w < 1 {
				w = 1
			}
			dc.SetColor(c)
			dc.DrawRectangle(x, 0, w, float64(height))
			dc.Fill()
		}
	}

	return r.encodeContext(dc)
}

// context returns a pooled drawing context when the requested size
// matches the configured default, and a fresh one otherwise.
func (r *Renderer) context(width, height int) (*gg.Context, bool) {
	if width == r.config.Width && height == r.config.TrackHeight {
		return r.contextPool.Get().(*gg.Context), true
	}
	return gg.NewContext(width, height), false
}

func (r *Renderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy out: the buffer goes back to the pool.
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// chromosomeExtent returns the rightmost annotated coordinate.
func chromosomeExtent(ca *ideogram.ChromosomeAnnots) int64 {
	var extent int64
	for _, a := range ca.Annots {
		if end := a.Start + a.Length; end > extent {
			extent = end
		}
	}
	return extent
}

// trackRange returns the min and max of one track across a chromosome.
func trackRange(ca *ideogram.ChromosomeAnnots, track int) (lo, hi float64) {
	first := true
	for _, a := range ca.Annots {
		if track >= len(a.Values) {
			continue
		}
		v := a.Values[track]
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
