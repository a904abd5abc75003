// Package plot renders a gesture sample as a PNG chart: one panel per
// sensor, one trace per axis.
package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/gesture_controller/internal/imu"
)

var (
	background = color.RGBA{0x10, 0x14, 0x1c, 0xff}
	grid       = color.RGBA{0x38, 0x40, 0x50, 0xff}
	text       = color.RGBA{0xe0, 0xe4, 0xea, 0xff}
	axisColors = [3]color.RGBA{
		{0xff, 0x5c, 0x5c, 0xff}, // x
		{0x5c, 0xd6, 0x6b, 0xff}, // y
		{0x5c, 0x9d, 0xff, 0xff}, // z
	}
	panelNames = [3]string{"acc [g]", "gyr [deg/s]", "mag [uT]"}
)

const (
	margin      = 8
	titleHeight = 16
	minWidth    = 64
	minHeight   = 3*(titleHeight+margin) + titleHeight
)

// Render draws the nine channels into a w×h image. Channels may be of
// different lengths; empty channels and non-finite values are skipped.
func Render(values [imu.NumChannels][]float64, w, h int, title string) (*image.RGBA, error) {
	if w < minWidth || h < minHeight {
		return nil, fmt.Errorf("plot: image %dx%d too small, need at least %dx%d", w, h, minWidth, minHeight)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	drawText(img, margin, titleHeight-4, title)

	panelH := (h - titleHeight) / 3
	for p := 0; p < 3; p++ {
		top := titleHeight + p*panelH
		area := image.Rect(margin, top+titleHeight, w-margin, top+panelH-margin)
		drawPanel(img, area, values[p*3:p*3+3])
		drawText(img, margin, top+titleHeight-4, panelNames[p])
	}
	return img, nil
}

// EncodePNG renders and writes the chart.
func EncodePNG(wr io.Writer, values [imu.NumChannels][]float64, w, h int, title string) error {
	img, err := Render(values, w, h, title)
	if err != nil {
		return err
	}
	return png.Encode(wr, img)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func drawPanel(img *image.RGBA, area image.Rectangle, traces [][]float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, tr := range traces {
		for _, v := range tr {
			if !finite(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	// frame and zero line
	strokeRect(img, area, grid)
	if lo > hi {
		return
	}
	// halves keep the span finite for values near ±MaxFloat64
	half := hi/2 - lo/2
	yOf := func(v float64) int {
		frac := 0.5
		if half > 0 {
			frac = math.Max(0, math.Min(1, (v/2-lo/2)/half))
		}
		return area.Max.Y - 1 - int(math.Round(frac*float64(area.Dy()-1)))
	}
	if lo < 0 && hi > 0 {
		y := yOf(0)
		line(img, area.Min.X, y, area.Max.X-1, y, grid)
	}

	for i, tr := range traces {
		xOf := func(j int) int {
			if len(tr) == 1 {
				return area.Min.X
			}
			return area.Min.X + j*(area.Dx()-1)/(len(tr)-1)
		}
		havePrev := false
		var px, py int
		for j, v := range tr {
			if !finite(v) {
				havePrev = false
				continue
			}
			x, y := xOf(j), yOf(v)
			if havePrev {
				line(img, px, py, x, y, axisColors[i])
			} else {
				img.Set(x, y, axisColors[i])
			}
			px, py, havePrev = x, y, true
		}
	}
}

func drawText(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(text),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	line(img, r.Min.X, r.Min.Y, r.Max.X-1, r.Min.Y, c)
	line(img, r.Min.X, r.Max.Y-1, r.Max.X-1, r.Max.Y-1, c)
	line(img, r.Min.X, r.Min.Y, r.Min.X, r.Max.Y-1, c)
	line(img, r.Max.X-1, r.Min.Y, r.Max.X-1, r.Max.Y-1, c)
}

// line is Bresenham between two inclusive endpoints.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
