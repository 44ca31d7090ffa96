package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/lap-energy/internal/analysis"
	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

const (
	dpi            = 72.0
	fontSize       = 14.0
	lineWidth      = 3
	swatchSize     = 12
	gradientWidth  = 160
	legendSpacing  = 18
	minImageWidth  = 320
	minImageHeight = 240

	// Default border sizes in pixels
	defaultTopBorder    = 44
	defaultLeftBorder   = 40
	defaultBottomBorder = 44
	defaultRightBorder  = 40
)

var parsedFont *truetype.Font

func init() {
	var err error
	if parsedFont, err = freetype.ParseFont(goregular.TTF); err != nil {
		panic(fmt.Sprintf("parsing embedded font: %s", err))
	}
}

// BorderConfig defines the sizes of space around the track
type BorderConfig struct {
	Top    int // Space for title and legend
	Left   int
	Bottom int // Space for information bar
	Right  int
}

// RenderConfig holds all configuration options for track visualization
type RenderConfig struct {
	Width, Height int
	ColorBy       ColorBy
	Theme         ColorTheme
	FontSize      float64
	NoAnnotations bool
	BorderConfig  BorderConfig
}

// LapInfo describes the lap in the title of the map
type LapInfo struct {
	Driver   string
	Session  string
	Circuit  string
	Lap      int
	Duration time.Duration
}

// TrackRenderer draws a lap as a coloured track map. It holds no per-render
// state and can be shared between goroutines.
type TrackRenderer struct {
	config RenderConfig
}

// NewTrackRenderer creates a new track renderer with the given configuration
func NewTrackRenderer(config RenderConfig) (*TrackRenderer, error) {
	if config.Width < minImageWidth || config.Height < minImageHeight {
		return nil, fmt.Errorf("image must be at least %dx%d: %dx%d given",
			minImageWidth, minImageHeight, config.Width, config.Height)
	}
	if config.ColorBy == "" {
		config.ColorBy = ColorByMode
	}
	if config.Theme == "" {
		config.Theme = ClassicTheme
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &TrackRenderer{config: config}, nil
}

// Render creates an image of the lap with annotations
func (r *TrackRenderer) Render(info LapInfo, res *analysis.LapResult) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width, r.config.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	trackArea := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.Width-r.config.BorderConfig.Right,
		r.config.Height-r.config.BorderConfig.Bottom,
	)

	track := NewTrackData(res.Samples)
	track.Project(trackArea)

	colorer, gradient := newTrackColorer(r.config.ColorBy, r.config.Theme, track.Samples, res.ModesAvailable)

	if !r.config.NoAnnotations {
		ann := newAnnotator(r.config)
		defer ann.Close()

		if err := ann.annotate(img, info, res, gradient); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderTrack(img, track, colorer)
	return img, nil
}

// renderTrack joins consecutive samples; a segment takes the colour of the
// sample it starts at.
func (r *TrackRenderer) renderTrack(img *image.RGBA, track *TrackData, colorer trackColorer) {
	switch len(track.Points) {
	case 0:
		return
	case 1:
		stamp(img, track.Points[0], colorer(&track.Samples[0]))
		return
	}

	for i := 0; i < len(track.Points)-1; i++ {
		drawLine(img, track.Points[i], track.Points[i+1], colorer(&track.Samples[i]))
	}
}

func drawLine(img *image.RGBA, from, to image.Point, c color.Color) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}

	e := dx + dy
	p := from
	for {
		stamp(img, p, c)
		if p == to {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

func stamp(img *image.RGBA, p image.Point, c color.Color) {
	half := lineWidth / 2
	for y := p.Y - half; y <= p.Y+half; y++ {
		for x := p.X - half; x <= p.X+half; x++ {
			img.Set(x, y, c)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.NewUniform(foregroundColor))

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, info LapInfo, res *analysis.LapResult, gradient *GradientMapper) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	steps := []struct {
		msg string
		fn  func() error
	}{
		{msg: "drawing title", fn: func() error { return a.drawTitle(info) }},
		{msg: "drawing legend", fn: func() error { return a.drawLegend(img, res, gradient) }},
		{msg: "drawing info bar", fn: func() error { return a.drawInfoBar(img, res) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

// baseline returns the Y of text vertically centred in a band of the given
// height starting at top.
func (a *annotator) baseline(top, height int) int {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	return top + (height-fontHeight)/2 + metrics.Ascent.Round()
}

func (a *annotator) drawString(s string, x, y int) (int, error) {
	pt, err := a.context.DrawString(s, freetype.Pt(x, y))
	if err != nil {
		return 0, err
	}
	return pt.X.Round(), nil
}

func (a *annotator) drawTitle(info LapInfo) error {
	parts := make([]string, 0, 5)
	for _, p := range []string{info.Driver, info.Session, info.Circuit} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if info.Lap > 0 {
		parts = append(parts, fmt.Sprintf("Lap %d", info.Lap))
	}
	if info.Duration > 0 {
		parts = append(parts, formatLapTime(info.Duration))
	}

	_, err := a.drawString(strings.Join(parts, " · "), a.config.BorderConfig.Left, a.baseline(0, a.config.BorderConfig.Top))
	return err
}

func (a *annotator) drawLegend(img *image.RGBA, res *analysis.LapResult, gradient *GradientMapper) error {
	if gradient != nil {
		return a.drawGradientLegend(img, gradient)
	}
	if !res.ModesAvailable {
		return nil
	}

	counts := res.ModeCounts()
	labels := make([]string, len(telemetry.Modes))
	width := 0
	for i, m := range telemetry.Modes {
		labels[i] = fmt.Sprintf("%s %d", StyleOf(m).Label, counts[m])
		width += swatchSize + 4 + font.MeasureString(a.fontFace, labels[i]).Round() + legendSpacing
	}

	y := a.baseline(0, a.config.BorderConfig.Top)
	x := img.Bounds().Max.X - a.config.BorderConfig.Right - width + legendSpacing
	for i, m := range telemetry.Modes {
		swatch := image.Rect(x, y-swatchSize, x+swatchSize, y)
		draw.Draw(img, swatch, image.NewUniform(StyleOf(m).Color), image.Point{}, draw.Src)

		next, err := a.drawString(labels[i], x+swatchSize+4, y)
		if err != nil {
			return err
		}
		x = next + legendSpacing
	}
	return nil
}

func (a *annotator) drawGradientLegend(img *image.RGBA, gradient *GradientMapper) error {
	bounds := gradient.Bounds()

	var lo, hi string
	switch a.config.ColorBy {
	case ColorByPower:
		lo, hi = formatSI(bounds.Min, "W"), formatSI(bounds.Max, "W")
	default:
		lo, hi = fmt.Sprintf("%.0f km/h", bounds.Min), fmt.Sprintf("%.0f km/h", bounds.Max)
	}

	y := a.baseline(0, a.config.BorderConfig.Top)
	hiWidth := font.MeasureString(a.fontFace, hi).Round()
	loWidth := font.MeasureString(a.fontFace, lo).Round()

	right := img.Bounds().Max.X - a.config.BorderConfig.Right
	barEnd := right - hiWidth - 6
	barStart := barEnd - gradientWidth

	for x := barStart; x < barEnd; x++ {
		v := bounds.Min + bounds.Span()*float64(x-barStart)/float64(gradientWidth-1)
		c := gradient.Color(v)
		for yy := y - swatchSize; yy < y; yy++ {
			img.Set(x, yy, c)
		}
	}

	if _, err := a.drawString(lo, barStart-loWidth-6, y); err != nil {
		return err
	}
	_, err := a.drawString(hi, barEnd+6, y)
	return err
}

func (a *annotator) drawInfoBar(img *image.RGBA, res *analysis.LapResult) error {
	var sb strings.Builder

	switch {
	case !res.ModesAvailable:
		sb.WriteString(fmt.Sprintf("Modes unavailable: %d samples are too few to classify", len(res.Samples)))

	case res.Ledger != nil:
		l := res.Ledger
		sb.WriteString(fmt.Sprintf("Deployed %s (%.0f%% of %s)", formatMJ(l.DeployedMJ), l.LimitPct(), formatMJ(l.LimitMJ)))
		sb.WriteString("; ")
		sb.WriteString(fmt.Sprintf("Recovered %s (%.0f%%)", formatMJ(l.RecoveredMJ), l.RegenPct()))
		sb.WriteString("; ")
		sb.WriteString(fmt.Sprintf("Balance %s", formatMJ(l.BalanceMJ)))
		if l.Clipped() {
			sb.WriteString(fmt.Sprintf("; Over budget by %s", formatMJ(l.ExcessMJ)))
		}
		sb.WriteString(fmt.Sprintf("; Clipping samples %d", res.Clipped))
	}

	top := img.Bounds().Max.Y - a.config.BorderConfig.Bottom
	_, err := a.drawString(sb.String(), a.config.BorderConfig.Left, a.baseline(top, a.config.BorderConfig.Bottom))
	return err
}

// Helper functions

func formatSI(v float64, unit string) string {
	value, prefix := humanize.ComputeSI(v)
	return fmt.Sprintf("%.2f %s%s", value, prefix, unit)
}

func formatMJ(mj float64) string {
	return formatSI(mj*1e6, "J")
}

func formatLapTime(d time.Duration) string {
	d = d.Round(time.Millisecond)
	minutes := d / time.Minute
	seconds := float64(d%time.Minute) / float64(time.Second)
	return fmt.Sprintf("%d:%06.3f", minutes, seconds)
}
