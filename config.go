package inkmatrix

import (
	"errors"
	"fmt"
	"image"
	"io/ioutil"
	"log"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Cache strategies.
const (
	CacheEmbedded = "embedded"
	CacheFile     = "file"
	CacheBuild    = "build"
)

// Display kinds.
const (
	DisplayTerminal    = "terminal"
	DisplayFramebuffer = "framebuffer"
)

// Config is the on-disk configuration of the inkmatrix binary.
type Config struct {
	Grid struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"grid"`
	Brightening string `yaml:"brightening"`
	Noise       string `yaml:"noise"`
	Cache       struct {
		Strategy string `yaml:"strategy"`
		Path     string `yaml:"path"`
		Compress bool   `yaml:"compress"`
	} `yaml:"cache"`
	Display struct {
		Kind     string `yaml:"kind"`
		Device   string `yaml:"device"`
		Encoding string `yaml:"encoding"`
		Waveform string `yaml:"waveform"`
		Full     bool   `yaml:"full"`
		X        int    `yaml:"x"`
		Y        int    `yaml:"y"`
	} `yaml:"display"`
	FPS       int         `yaml:"fps"`
	Downscale bool        `yaml:"downscale"`
	Adjust    Adjustments `yaml:"adjust"`
}

// DefaultConfig returns the settings for a reMarkable 2 running a 640x400
// game: frames are halved onto the default grid, brightened, and drawn
// centered near the top of /dev/fb0 with the DU waveform.
func DefaultConfig() *Config {
	c := &Config{}
	c.Grid.Width = DefaultGridWidth
	c.Grid.Height = DefaultGridHeight
	c.Brightening = Brighten150.String()
	c.Cache.Strategy = CacheFile
	c.Cache.Compress = true
	c.Display.Kind = DisplayFramebuffer
	c.Display.Device = "/dev/fb0"
	c.Display.Encoding = RGB565.String()
	c.Display.Waveform = WaveformDU.String()
	c.Display.X = 62
	c.Display.Y = 202
	c.FPS = 3
	c.Downscale = true
	return c
}

// LoadConfig reads the YAML file at path over DefaultConfig and validates
// the result. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, c.Validate()
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("inkmatrix: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("inkmatrix: %s: %w", path, err)
	}
	return c, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("invalid grid %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if _, err := ParseBrightening(c.Brightening); err != nil {
		return err
	}
	switch c.Cache.Strategy {
	case CacheEmbedded, CacheFile, CacheBuild:
	default:
		return fmt.Errorf("unknown cache strategy %q", c.Cache.Strategy)
	}
	switch c.Display.Kind {
	case DisplayTerminal, DisplayFramebuffer:
	default:
		return fmt.Errorf("unknown display kind %q", c.Display.Kind)
	}
	if _, err := ParseEncoding(c.Display.Encoding); err != nil {
		return err
	}
	if _, err := ParseWaveform(c.Display.Waveform); err != nil {
		return err
	}
	if c.Display.X < 0 || c.Display.Y < 0 {
		return errors.New("negative display origin")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", c.FPS)
	}
	return nil
}

// Calculator returns the calculator described by c, loading the noise
// texture from c.Noise when it is set.
func (c *Config) Calculator() (*Calculator, error) {
	b, err := ParseBrightening(c.Brightening)
	if err != nil {
		return nil, err
	}
	var noise *NoiseTexture
	if c.Noise != "" {
		noise, err = LoadNoiseFile(c.Noise)
	} else {
		noise, err = DefaultNoise()
	}
	if err != nil {
		return nil, err
	}
	return NewCalculator(noise, b), nil
}

// Stores returns the cache stores of c's strategy, in lookup order. The
// embedded strategy falls back to the file store.
func (c *Config) Stores(l *log.Logger) ([]Store, error) {
	path := c.Cache.Path
	if path == "" {
		var err error
		if path, err = DefaultCachePath(); err != nil {
			return nil, err
		}
	}
	path = filepath.Clean(path)
	file := &FileStore{Path: path, Compress: c.Cache.Compress, Log: l}
	switch c.Cache.Strategy {
	case CacheEmbedded:
		return []Store{NewEmbeddedStore(l), file}, nil
	case CacheFile:
		return []Store{file}, nil
	default:
		return nil, nil
	}
}

// Waveform returns the configured waveform.
func (c *Config) Waveform() Waveform {
	w, _ := ParseWaveform(c.Display.Waveform)
	return w
}

// Encoding returns the configured encoding.
func (c *Config) Encoding() *Encoding {
	e, _ := ParseEncoding(c.Display.Encoding)
	return e
}

// Origin returns where frames are placed on the display.
func (c *Config) Origin() image.Point {
	return image.Pt(c.Display.X, c.Display.Y)
}

// DownscaleFactor returns the subsampling factor for Renderer.Downscale.
func (c *Config) DownscaleFactor() int {
	if c.Downscale {
		return 2
	}
	return 1
}
