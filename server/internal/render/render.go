package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"iter"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/viewport"
)

const (
	dpi             = 72.0
	defaultFontSize = 11.0
	defaultWidth    = 1000
	defaultHeight   = 300
	tickMarkLength  = 4
	minLabelGap     = 48 // px between axis labels

	defaultTopBorder    = 24
	defaultLeftBorder   = 56
	defaultBottomBorder = 32
	defaultRightBorder  = 16
)

var (
	gridColor      = color.RGBA{R: 0xff, G: 0xc0, B: 0xc0, A: 0xff}
	traceColor     = color.RGBA{R: 0x1f, G: 0x4e, B: 0x9d, A: 0xff}
	selectionColor = color.RGBA{R: 0x1f, G: 0x4e, B: 0x9d, A: 0x30}
	frameColor     = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// Borders are the margins around the plot area, in pixels.
type Borders struct {
	Top, Left, Bottom, Right int
}

// Config sizes the output image. Zero fields take defaults.
type Config struct {
	Width    int // total image width
	Height   int // total image height
	FontSize float64
	Borders  Borders
}

// View is everything drawn for one chart.
type View struct {
	Title     string
	Channel   types.Channel
	Domain    viewport.Domain
	XLines    iter.Seq[float64]
	YLines    iter.Seq[float64]
	Points    []types.Sample
	Selection *viewport.Gesture
}

// Renderer draws views. It is safe for concurrent use; each Render call
// builds its own drawing context.
type Renderer struct {
	cfg  Config
	font *truetype.Font
}

// NewRenderer parses the label font and applies defaults to cfg.
func NewRenderer(cfg Config) (*Renderer, error) {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = defaultFontSize
	}
	if cfg.Borders == (Borders{}) {
		cfg.Borders = Borders{
			Top:    defaultTopBorder,
			Left:   defaultLeftBorder,
			Bottom: defaultBottomBorder,
			Right:  defaultRightBorder,
		}
	}
	if cfg.Width <= cfg.Borders.Left+cfg.Borders.Right || cfg.Height <= cfg.Borders.Top+cfg.Borders.Bottom {
		return nil, fmt.Errorf("image %dx%d too small for borders %+v", cfg.Width, cfg.Height, cfg.Borders)
	}
	return &Renderer{cfg: cfg, font: f}, nil
}

// Render draws v.
func (r *Renderer) Render(v View) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.cfg.Width, r.cfg.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	b := r.cfg.Borders
	area := image.Rect(b.Left, b.Top, r.cfg.Width-b.Right, r.cfg.Height-b.Bottom)
	p := plot{area: area, d: v.Domain}

	p.grid(img, v.XLines, v.YLines)
	if v.Selection != nil {
		p.selection(img, *v.Selection)
	}
	p.trace(img, v.Points, v.Channel)
	p.frame(img)

	ann, err := r.newAnnotator(img)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err := ann.annotate(p, v); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}
	return img, nil
}

// PNG renders v and encodes it to w.
func (r *Renderer) PNG(w io.Writer, v View) error {
	img, err := r.Render(v)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// plot maps domain coordinates onto the plot area.
type plot struct {
	area image.Rectangle
	d    viewport.Domain
}

func (p plot) px(x float64) int {
	span := p.d.XMax - p.d.XMin
	if !(span > 0) {
		return (p.area.Min.X + p.area.Max.X) / 2
	}
	return p.area.Min.X + int(math.Round((x-p.d.XMin)/span*float64(p.area.Dx()-1)))
}

func (p plot) py(y float64) int {
	span := p.d.YMax - p.d.YMin
	if !(span > 0) {
		return (p.area.Min.Y + p.area.Max.Y) / 2
	}
	return p.area.Max.Y - 1 - int(math.Round((y-p.d.YMin)/span*float64(p.area.Dy()-1)))
}

func (p plot) set(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(p.area) {
		img.Set(x, y, c)
	}
}

func (p plot) grid(img *image.RGBA, xs, ys iter.Seq[float64]) {
	if xs != nil {
		for x := range xs {
			px := p.px(x)
			for y := p.area.Min.Y; y < p.area.Max.Y; y++ {
				p.set(img, px, y, gridColor)
			}
		}
	}
	if ys != nil {
		for y := range ys {
			py := p.py(y)
			for x := p.area.Min.X; x < p.area.Max.X; x++ {
				p.set(img, x, py, gridColor)
			}
		}
	}
}

func (p plot) selection(img *image.RGBA, g viewport.Gesture) {
	lo, hi := g.Bounds()
	rect := image.Rect(p.px(lo), p.area.Min.Y, p.px(hi)+1, p.area.Max.Y).Intersect(p.area)
	draw.Draw(img, rect, image.NewUniform(selectionColor), image.Point{}, draw.Over)
}

func (p plot) trace(img *image.RGBA, pts []types.Sample, ch types.Channel) {
	prevOK := false
	var x0, y0 int
	for _, s := range pts {
		v := ch.Value(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			prevOK = false
			continue
		}
		x1, y1 := p.px(s.Time), p.py(v)
		if prevOK {
			p.line(img, x0, y0, x1, y1)
		} else {
			p.set(img, x1, y1, traceColor)
		}
		x0, y0, prevOK = x1, y1, true
	}
}

// line draws a one-pixel segment with Bresenham's algorithm.
func (p plot) line(img *image.RGBA, x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		p.set(img, x0, y0, traceColor)
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x0 += sx
		} else {
			e += dx
			y0 += sy
		}
	}
}

func (p plot) frame(img *image.RGBA) {
	a := p.area
	for x := a.Min.X - 1; x <= a.Max.X; x++ {
		img.Set(x, a.Min.Y-1, frameColor)
		img.Set(x, a.Max.Y, frameColor)
	}
	for y := a.Min.Y - 1; y <= a.Max.Y; y++ {
		img.Set(a.Min.X-1, y, frameColor)
		img.Set(a.Max.X, y, frameColor)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type annotator struct {
	img      *image.RGBA
	context  *freetype.Context
	fontFace font.Face
}

func (r *Renderer) newAnnotator(img *image.RGBA) (*annotator, error) {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(r.font)
	ctx.SetFontSize(r.cfg.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)

	return &annotator{
		img:     img,
		context: ctx,
		fontFace: truetype.NewFace(r.font, &truetype.Options{
			Size:    r.cfg.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(p plot, v View) error {
	if err := a.drawXScale(p, v.XLines); err != nil {
		return fmt.Errorf("drawing X scale: %w", err)
	}
	if err := a.drawYScale(p, v.YLines); err != nil {
		return fmt.Errorf("drawing Y scale: %w", err)
	}
	if err := a.drawTitle(p, v); err != nil {
		return fmt.Errorf("drawing title: %w", err)
	}
	return nil
}

func (a *annotator) drawXScale(p plot, xs iter.Seq[float64]) error {
	if xs == nil {
		return nil
	}
	metrics := a.fontFace.Metrics()
	textY := p.area.Max.Y + tickMarkLength + metrics.Ascent.Round() + 2

	last := math.MinInt
	for x := range xs {
		px := p.px(x)
		if px < p.area.Min.X || px >= p.area.Max.X || px-last < minLabelGap {
			continue
		}
		for y := p.area.Max.Y; y < p.area.Max.Y+tickMarkLength; y++ {
			a.img.Set(px, y, frameColor)
		}
		label := humanize.CommafWithDigits(x, 1)
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(px-width.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
		last = px
	}
	return nil
}

func (a *annotator) drawYScale(p plot, ys iter.Seq[float64]) error {
	if ys == nil {
		return nil
	}
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	last := math.MaxInt
	for y := range ys {
		py := p.py(y)
		if py < p.area.Min.Y || py >= p.area.Max.Y || last-py < fontHeight {
			continue
		}
		for x := p.area.Min.X - tickMarkLength; x < p.area.Min.X; x++ {
			a.img.Set(x, py, frameColor)
		}
		label := humanize.FtoaWithDigits(y, 2)
		width := font.MeasureString(a.fontFace, label)
		textY := py + fontHeight/2 - metrics.Descent.Round()
		pt := freetype.Pt(p.area.Min.X-tickMarkLength-2-width.Round(), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing amplitude label: %w", err)
		}
		last = py
	}
	return nil
}

func (a *annotator) drawTitle(p plot, v View) error {
	title := v.Title
	if title == "" {
		title = v.Channel.Name()
	}
	title = fmt.Sprintf("%s  [%s to %s ms]", title,
		humanize.CommafWithDigits(v.Domain.XMin, 1), humanize.CommafWithDigits(v.Domain.XMax, 1))

	metrics := a.fontFace.Metrics()
	pt := freetype.Pt(p.area.Min.X, p.area.Min.Y-metrics.Descent.Round()-4)
	_, err := a.context.DrawString(title, pt)
	return err
}
