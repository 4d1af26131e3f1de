// Package chart renders a player's rating-over-time trail as a PNG image.
// The plot itself is built as an in-memory SVG and rasterized; axis labels
// are drawn on top with a bitmap font.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

// ErrNoHistory reports a chart request for a player without rating points.
var ErrNoHistory = errors.New("no rating history")

const (
	chartWidth  = 800
	chartHeight = 480

	marginLeft   = 72
	marginRight  = 28
	marginTop    = 56
	marginBottom = 52
)

var (
	labelColor = color.NRGBA{R: 40, G: 44, B: 62, A: 255}
	titleColor = color.NRGBA{R: 28, G: 31, B: 46, A: 255}
)

// RenderPNG plots the history for the named player and returns PNG bytes.
func RenderPNG(name string, history []ladderdto.RatingPoint) ([]byte, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w for player %s", ErrNoHistory, name)
	}

	lo, hi := ratingBounds(history)
	svg := buildSVG(history, lo, hi)

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse chart svg: %w", err)
	}
	icon.SetTarget(0, 0, chartWidth, chartHeight)

	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, imagedraw.Src)

	scanner := rasterx.NewScannerGV(chartWidth, chartHeight, img, img.Bounds())
	raster := rasterx.NewDasher(chartWidth, chartHeight, scanner)
	icon.Draw(raster, 1.0)

	drawLabels(img, name, history, lo, hi)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ratingBounds pads the observed min/max so the polyline never touches the
// plot frame. A flat history still gets a visible band.
func ratingBounds(history []ladderdto.RatingPoint) (lo, hi float64) {
	lo, hi = history[0].Rating, history[0].Rating
	for _, pt := range history[1:] {
		lo = math.Min(lo, pt.Rating)
		hi = math.Max(hi, pt.Rating)
	}
	pad := (hi - lo) * 0.1
	if pad < 25 {
		pad = 25
	}
	return lo - pad, hi + pad
}

func plotX(i, n int) float64 {
	plotW := float64(chartWidth - marginLeft - marginRight)
	if n == 1 {
		return marginLeft + plotW/2
	}
	return marginLeft + plotW*float64(i)/float64(n-1)
}

func plotY(rating, lo, hi float64) float64 {
	plotH := float64(chartHeight - marginTop - marginBottom)
	return marginTop + plotH*(1-(rating-lo)/(hi-lo))
}

func buildSVG(history []ladderdto.RatingPoint, lo, hi float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, chartWidth, chartHeight)

	// Plot frame.
	fmt.Fprintf(&sb,
		`<rect x="%d" y="%d" width="%d" height="%d" fill="#f7f8fc" stroke="#c3c8d9" stroke-width="1"/>`,
		marginLeft, marginTop, chartWidth-marginLeft-marginRight, chartHeight-marginTop-marginBottom)

	// Horizontal gridlines at quarter steps.
	for i := 1; i < 4; i++ {
		y := marginTop + (chartHeight-marginTop-marginBottom)*i/4
		fmt.Fprintf(&sb,
			`<path d="M %d %d L %d %d" stroke="#dde1ec" stroke-width="1" fill="none"/>`,
			marginLeft, y, chartWidth-marginRight, y)
	}

	// Rating polyline.
	if len(history) > 1 {
		var path strings.Builder
		for i, pt := range history {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&path, "%s %.1f %.1f ", cmd, plotX(i, len(history)), plotY(pt.Rating, lo, hi))
		}
		fmt.Fprintf(&sb,
			`<path d="%s" fill="none" stroke="#2b6cb0" stroke-width="2.5"/>`,
			strings.TrimSpace(path.String()))
	}

	// Point markers.
	for i, pt := range history {
		fmt.Fprintf(&sb,
			`<circle cx="%.1f" cy="%.1f" r="4" fill="#2b6cb0"/>`,
			plotX(i, len(history)), plotY(pt.Rating, lo, hi))
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

func drawLabels(img *image.RGBA, name string, history []ladderdto.RatingPoint, lo, hi float64) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}

	drawString(drawer, fmt.Sprintf("Rating history - %s", name), marginLeft, marginTop-18, titleColor)

	// Y axis: top, middle, bottom rating values.
	for _, tick := range []float64{hi, (hi + lo) / 2, lo} {
		y := int(plotY(tick, lo, hi))
		drawString(drawer, fmt.Sprintf("%6.0f", tick), 8, y+4, labelColor)
	}

	// X axis: first and last cycle.
	first, last := history[0], history[len(history)-1]
	baseline := chartHeight - marginBottom + 18
	drawString(drawer, fmt.Sprintf("cycle %d", first.Cycle), marginLeft, baseline, labelColor)
	if len(history) > 1 {
		text := fmt.Sprintf("cycle %d", last.Cycle)
		width := drawer.MeasureString(text).Round()
		drawString(drawer, text, chartWidth-marginRight-width, baseline, labelColor)
	}
}

func drawString(d *font.Drawer, text string, x, y int, clr color.Color) {
	d.Src = image.NewUniform(clr)
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
