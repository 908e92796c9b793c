package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ccollicutt/gnsstage/pkg/playback"
)

// Default snapshot size in pixels.
const (
	DefaultImageWidth  = 800
	DefaultImageHeight = 600
)

// BallRadius is the radius of the current-position marker, in meters.
const BallRadius = 1.0

var (
	colBackground = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colStage      = color.NRGBA{0x80, 0x80, 0x80, 0xb3}
	colPosts      = color.NRGBA{0xd3, 0xd3, 0xd3, 0x80}
	colAxis       = color.NRGBA{0x00, 0x00, 0x00, 0x80}
	colPath       = color.NRGBA{0x00, 0x00, 0xff, 0xcc}
	colMarker     = color.NRGBA{0xad, 0xd8, 0xe6, 0x99}
	colBall       = color.NRGBA{0xff, 0x00, 0x00, 0xcc}
	colText       = color.RGBA{0x00, 0x00, 0x00, 0xff}
	colLabel      = color.NRGBA{0xff, 0xff, 0x00, 0xb3}
)

// ImageOptions configures an Image renderer.
type ImageOptions struct {
	Path   string
	Width  int
	Height int
}

// Image rewrites a PNG snapshot of the stage on every frame.
type Image struct {
	opts ImageOptions
}

// NewImage creates an Image renderer. Zero sizes select the defaults.
func NewImage(opts ImageOptions) (*Image, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("image path is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultImageWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultImageHeight
	}
	return &Image{opts: opts}, nil
}

// Render draws f and replaces the snapshot file.
func (r *Image) Render(ctx context.Context, f *playback.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img := Draw(f, r.opts.Width, r.opts.Height)
	return writePNG(r.opts.Path, img)
}

// Close is a no-op; the last snapshot stays on disk.
func (r *Image) Close() error { return nil }

// writePNG writes through a temporary file so readers never see a partial image.
func writePNG(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*.png")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Draw renders an oblique view of the stage for f.
func Draw(f *playback.Frame, width, height int) *image.RGBA {
	c := newCanvas(width, height)
	c.fill(colBackground)
	v := newView(width, height, f)

	radius := f.StageRadius
	zmin, zmax := f.Vertical.Min, f.Vertical.Max

	// Stage platform, dotted.
	const circleSteps = 100
	for i := 0; i < circleSteps; i += 2 {
		a0 := 2 * math.Pi * float64(i) / circleSteps
		a1 := 2 * math.Pi * float64(i+1) / circleSteps
		x0, y0 := v.point(radius*math.Cos(a0), radius*math.Sin(a0), 0)
		x1, y1 := v.point(radius*math.Cos(a1), radius*math.Sin(a1), 0)
		c.line(x0, y0, x1, y1, 2, colStage)
	}

	// Stage boundary posts.
	for i := 0; i < 8; i++ {
		a := 2 * math.Pi * float64(i) / 7
		e, n := radius*math.Cos(a), radius*math.Sin(a)
		x0, y0 := v.point(e, n, zmin)
		x1, y1 := v.point(e, n, zmax)
		c.line(x0, y0, x1, y1, 1, colPosts)
	}

	// Origin crosshair.
	c.dashed(v, [3]float64{0, 0, zmin}, [3]float64{0, 0, zmax}, colAxis)
	c.dashed(v, [3]float64{0, -radius, 0}, [3]float64{0, radius, 0}, colAxis)
	c.dashed(v, [3]float64{-radius, 0, 0}, [3]float64{radius, 0, 0}, colAxis)
	ox, oy := v.point(0, 0, 0)
	c.text(int(ox)+4, int(oy)-4, "Observer", colText)

	// Path so far.
	if len(f.Path) > 1 {
		for i := 1; i < len(f.Path); i++ {
			a, b := f.Path[i-1], f.Path[i]
			x0, y0 := v.point(a.East, a.North, a.Vertical)
			x1, y1 := v.point(b.East, b.North, b.Vertical)
			c.line(x0, y0, x1, y1, 2, colPath)
		}
		if len(f.Path) > 5 {
			step := max(1, len(f.Path)/10)
			for i := 0; i < len(f.Path); i += step {
				p := f.Path[i]
				x, y := v.point(p.East, p.North, p.Vertical)
				c.disc(x, y, 3, colMarker)
			}
		}
	}

	// Current position.
	bx, by := v.point(f.Position.East, f.Position.North, f.Position.Vertical)
	c.disc(bx, by, float32(math.Max(4, BallRadius*v.scale)), colBall)

	// Overlay.
	c.text(10, 18, f.Title, colText)
	c.label(10, 28, PositionText(f))
	c.text(10, 58, fmt.Sprintf("2D %.2fm  3D %.2fm  Path %.2fm", f.Distance2D, f.Distance3D, f.PathLength), colText)
	c.text(10, height-10, fmt.Sprintf("E/N [%.0f, %.0f] m  Alt [%.2f, %.2f] m",
		f.Horizontal.Min, f.Horizontal.Max, zmin, zmax), colText)

	return c.img
}

// Oblique projection: north recedes up and to the right at 30 degrees,
// foreshortened by half.
var (
	depthX = 0.5 * math.Cos(math.Pi/6)
	depthY = 0.5 * math.Sin(math.Pi/6)
)

type view struct {
	cx, cy float64
	scale  float64
	zscale float64
	zmid   float64
}

func newView(width, height int, f *playback.Frame) view {
	span := f.Horizontal.Max - f.Horizontal.Min
	if span <= 0 {
		span = 1
	}
	zspan := f.Vertical.Max - f.Vertical.Min
	if zspan <= 0 {
		zspan = 1
	}
	return view{
		cx:     float64(width) * 0.42,
		cy:     float64(height) * 0.62,
		scale:  float64(width) * 0.7 / (span * (1 + depthX)),
		zscale: float64(height) * 0.4 / zspan,
		zmid:   (f.Vertical.Min + f.Vertical.Max) / 2,
	}
}

func (v view) point(east, north, vertical float64) (float32, float32) {
	x := v.cx + (east+north*depthX)*v.scale
	y := v.cy - north*depthY*v.scale - (vertical-v.zmid)*v.zscale
	return clampCoord(x), clampCoord(y)
}

func clampCoord(v float64) float32 {
	const limit = 1 << 15
	switch {
	case math.IsNaN(v):
		return 0
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	}
	return float32(v)
}

type canvas struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

func newCanvas(width, height int) *canvas {
	z := vector.NewRasterizer(width, height)
	z.DrawOp = draw.Over
	return &canvas{img: image.NewRGBA(image.Rect(0, 0, width, height)), z: z}
}

func (c *canvas) fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) paint(col color.Color) {
	b := c.img.Bounds()
	c.z.Draw(c.img, b, image.NewUniform(col), image.Point{})
	c.z.Reset(b.Dx(), b.Dy())
	c.z.DrawOp = draw.Over
}

// line strokes a segment as a quad of the given pixel width.
func (c *canvas) line(x0, y0, x1, y1, width float32, col color.Color) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	c.z.MoveTo(x0+nx, y0+ny)
	c.z.LineTo(x1+nx, y1+ny)
	c.z.LineTo(x1-nx, y1-ny)
	c.z.LineTo(x0-nx, y0-ny)
	c.z.ClosePath()
	c.paint(col)
}

func (c *canvas) dashed(v view, a, b [3]float64, col color.Color) {
	const dashes = 24
	for i := 0; i < dashes; i += 2 {
		t0 := float64(i) / dashes
		t1 := float64(i+1) / dashes
		x0, y0 := v.point(lerp(a[0], b[0], t0), lerp(a[1], b[1], t0), lerp(a[2], b[2], t0))
		x1, y1 := v.point(lerp(a[0], b[0], t1), lerp(a[1], b[1], t1), lerp(a[2], b[2], t1))
		c.line(x0, y0, x1, y1, 1, col)
	}
}

func (c *canvas) disc(x, y, r float32, col color.Color) {
	const steps = 24
	c.z.MoveTo(x+r, y)
	for i := 1; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		c.z.LineTo(x+r*float32(math.Cos(a)), y+r*float32(math.Sin(a)))
	}
	c.z.ClosePath()
	c.paint(col)
}

func (c *canvas) text(x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// label draws s on a highlighted box whose top-left corner is (x, y).
func (c *canvas) label(x, y int, s string) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	box := image.Rect(x-3, y, x+w+3, y+face.Height+6)
	draw.Draw(c.img, box, image.NewUniform(colLabel), image.Point{}, draw.Over)
	c.text(x, y+face.Ascent+3, s, colText)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
