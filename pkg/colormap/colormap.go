// Package colormap provides the color scales behind annotation heatmap
// previews.
package colormap

import (
	"image/color"
	"strings"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
	// AtBin colors a 1-based heatmap bin out of bins total, sampling
	// the scale at the bin's center.
	AtBin(bin, bins int) color.Color
}

// LinearColormap interpolates linearly between fixed color stops.
type LinearColormap struct {
	colors []color.RGBA
}

// At returns the color at position t (0-1).
func (c LinearColormap) At(t float64) color.Color {
	if t <= 0 {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}

	idx := t * float64(len(c.colors)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(c.colors) {
		upper = len(c.colors) - 1
	}

	frac := idx - float64(lower)
	return interpolate(c.colors[lower], c.colors[upper], frac)
}

// AtBin returns the color at the center of bin (1-based) of bins.
func (c LinearColormap) AtBin(bin, bins int) color.Color {
	if bins <= 0 {
		return c.At(0)
	}
	if bin < 1 {
		bin = 1
	}
	if bin > bins {
		bin = bins
	}
	return c.At((float64(bin) - 0.5) / float64(bins))
}

func interpolate(c1, c2 color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c1.R) + t*(float64(c2.R)-float64(c1.R))),
		G: uint8(float64(c1.G) + t*(float64(c2.G)-float64(c1.G))),
		B: uint8(float64(c1.B) + t*(float64(c2.B)-float64(c1.B))),
		A: 255,
	}
}

// BlueWhiteRed is a diverging scale for copy-number heatmaps: losses
// run into blue, the neutral midpoint is white, gains run into red.
var BlueWhiteRed = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 139, 255},     // dark blue
		{70, 130, 180, 255},  // steel blue
		{255, 255, 255, 255}, // white
		{205, 92, 92, 255},   // indian red
		{139, 0, 0, 255},     // dark red
	},
}

// Viridis colormap (matplotlib viridis), for single-signed tracks.
var Viridis = LinearColormap{
	colors: []color.RGBA{
		{68, 1, 84, 255},
		{72, 35, 116, 255},
		{64, 67, 135, 255},
		{52, 94, 141, 255},
		{41, 120, 142, 255},
		{32, 144, 140, 255},
		{34, 167, 132, 255},
		{68, 190, 112, 255},
		{121, 209, 81, 255},
		{189, 222, 38, 255},
		{253, 231, 37, 255},
	},
}

// DefaultName is the scale used when a caller names none.
const DefaultName = "bluewhitered"

// ByName resolves a colormap by its case-insensitive name.
func ByName(name string) (Colormap, bool) {
	switch strings.ToLower(name) {
	case "", DefaultName:
		return BlueWhiteRed, true
	case "viridis":
		return Viridis, true
	}
	return nil, false
}
