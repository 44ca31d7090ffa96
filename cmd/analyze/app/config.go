package app

import (
	"errors"
	"flag"
	"fmt"
	"runtime"
	"strings"

	"github.com/roman-kulish/lap-energy/internal/energy"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	defaultWidth  = 1200
	defaultHeight = 900
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionKey    int64
	Driver        int
	Lap           int // 0 analyses every timed lap
	Circuit       energy.CircuitCategory
	Sampling      int     // keep every Nth sample
	MinSpeed      float64 // km/h, 0 keeps all
	OutputFile    string  // path prefix of the rendered track maps
	Format        ImageFormat
	ColorBy       ColorBy
	Theme         ColorTheme
	Width         int
	Height        int
	Workers       int
	LimitMJ       *float64 // overrides the circuit category budget
	Verbose       bool
	NoAnnotations bool
	JSON          bool // also write the annotated samples and ledger
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Circuit:  energy.CircuitNormal,
		Sampling: 1,
		Format:   ImagePNG,
		ColorBy:  ColorByMode,
		Theme:    ClassicTheme,
		Width:    defaultWidth,
		Height:   defaultHeight,
		Workers:  runtime.NumCPU(),
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, circuit, colorBy, theme string
	var limit float64
	flag.StringVar(&c.DBPath, "db", "", "Path to the database file")
	flag.Int64Var(&c.SessionKey, "s", 0, "Session key")
	flag.IntVar(&c.Driver, "d", 0, "Driver number")
	flag.IntVar(&c.Lap, "lap", 0, "Lap number, 0 analyses every timed lap")
	flag.StringVar(&circuit, "circuit", string(energy.CircuitNormal), "Circuit category. [normal, limited, highspeed]")
	flag.Float64Var(&limit, "limit", 0, "Define a manual per-lap energy budget in MJ (format nn.n)")
	flag.IntVar(&c.Sampling, "sampling", 1, "Keep every Nth sample")
	flag.Float64Var(&c.MinSpeed, "min-speed", 0, "Drop samples slower than this speed in km/h")
	flag.StringVar(&c.OutputFile, "o", "", "Path prefix of the output files")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&colorBy, "color-by", string(ColorByMode), "Track colouring. [mode, speed, power]")
	flag.StringVar(&theme, "theme", string(ClassicTheme), "Gradient theme for speed and power. [classic, thermal, grayscale]")
	flag.IntVar(&c.Width, "width", defaultWidth, "Image width in pixels")
	flag.IntVar(&c.Height, "height", defaultHeight, "Image height in pixels")
	flag.IntVar(&c.Workers, "workers", runtime.NumCPU(), "Laps analysed in parallel")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.BoolVar(&c.JSON, "json", false, "Also write the annotated samples and the energy ledger as JSON")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as the legend and the energy info bar")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "limit" {
			c.LimitMJ = &limit
		}
	})

	c.Format = ImageFormat(strings.ToLower(imageFormat))
	c.ColorBy = ColorBy(strings.ToLower(colorBy))
	c.Theme = ColorTheme(strings.ToLower(theme))

	var err error
	if c.Circuit, err = energy.ParseCircuitCategory(circuit); err == nil {
		err = c.Validate()
	}
	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.OutputFile = strings.TrimSuffix(c.OutputFile, "."+string(c.Format))
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("db path is required")
	case c.SessionKey <= 0:
		return errors.New("session key is required")
	case c.Driver <= 0:
		return errors.New("driver number is required")
	case c.Lap < 0:
		return fmt.Errorf("invalid lap number: %d", c.Lap)
	case c.OutputFile == "":
		return errors.New("output file is required")
	case c.Sampling < 1:
		return fmt.Errorf("sampling must be at least 1: %d given", c.Sampling)
	case c.MinSpeed < 0:
		return fmt.Errorf("min speed must not be negative: %0.1f given", c.MinSpeed)
	case c.LimitMJ != nil && *c.LimitMJ <= 0:
		return fmt.Errorf("energy limit must be positive: %0.2f given", *c.LimitMJ)
	case c.Width < minImageWidth || c.Height < minImageHeight:
		return fmt.Errorf("image must be at least %dx%d: %dx%d given", minImageWidth, minImageHeight, c.Width, c.Height)
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1: %d given", c.Workers)
	}

	if _, ok := validImageFormats[c.Format]; !ok {
		return fmt.Errorf("invalid image format: %s", c.Format)
	}
	if _, ok := validColorBy[c.ColorBy]; !ok {
		return fmt.Errorf("invalid track colouring: %s", c.ColorBy)
	}
	if _, ok := colorThemes[c.Theme]; !ok {
		return fmt.Errorf("invalid color theme: %s", c.Theme)
	}
	return nil
}

// Limit returns the per-lap energy budget in MJ.
func (c *Config) Limit() float64 {
	if c.LimitMJ != nil {
		return *c.LimitMJ
	}
	return c.Circuit.Limit()
}
