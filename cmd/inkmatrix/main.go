package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/codegangsta/cli"
	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kevin-cantwell/inkmatrix"
)

var printer = message.NewPrinter(language.English)

func main() {
	app := cli.NewApp()
	app.Version = "0.1.0"
	app.Name = "inkmatrix"
	app.Usage = "Blue-noise dithering of game frames for e-ink displays."
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "YAML `FILE` with settings layered over the defaults.",
		},
		cli.BoolFlag{
			Name:  "quiet,q",
			Usage: "Suppress log output.",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "gen",
			Usage:  "Build the dither cache and write it as an artifact.",
			Action: gen,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output,o",
					Usage: "Artifact `FILE`.",
					Value: "dither_cache.bin.zst",
				},
				cli.BoolFlag{
					Name:  "raw",
					Usage: "Write the artifact without zstd compression.",
				},
			},
		},
		{
			Name:   "warm",
			Usage:  "Load or build the dither cache so the next launch starts instantly.",
			Action: warm,
		},
		{
			Name:      "dither",
			Usage:     "Dither one image and write it as PNG or braille.",
			ArgsUsage: "[file|url]",
			Action:    dither,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output,o",
					Usage: "PNG `FILE`. Braille is written to stdout when unset.",
				},
			},
		},
		{
			Name:      "play",
			Usage:     "Run a frame source through the refresh loop.",
			ArgsUsage: "demo|file.gif|file.mjpeg|-",
			Action:    play,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "display,d",
					Usage: "Override the configured display `KIND` (terminal or framebuffer).",
				},
			},
		},
		{
			Name:   "info",
			Usage:  "Print the cache geometry and version.",
			Action: info,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*inkmatrix.Config, *log.Logger) {
	cfg, err := inkmatrix.LoadConfig(c.GlobalString("config"))
	if err != nil {
		exit(err.Error(), 1)
	}
	if c.GlobalBool("quiet") {
		return cfg, nil
	}
	return cfg, log.New(os.Stderr, "inkmatrix: ", log.LstdFlags)
}

func loadCache(cfg *inkmatrix.Config, l *log.Logger) *inkmatrix.Cache {
	calc, err := cfg.Calculator()
	if err != nil {
		exit(err.Error(), 1)
	}
	stores, err := cfg.Stores(l)
	if err != nil {
		exit(err.Error(), 1)
	}
	loader := inkmatrix.Loader{
		Calculator: calc,
		Width:      cfg.Grid.Width,
		Height:     cfg.Grid.Height,
		Stores:     stores,
		Log:        l,
	}
	return loader.Load()
}

func gen(c *cli.Context) {
	cfg, l := setup(c)
	// Generated artifacts are embedded, and the embedded store only serves
	// the bundled texture.
	if cfg.Noise != "" {
		exit("gen builds from the bundled noise texture; unset noise in the config", 1)
	}
	calc, err := cfg.Calculator()
	if err != nil {
		exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	cache, err := inkmatrix.BuildContext(ctx, calc, cfg.Grid.Width, cfg.Grid.Height)
	if err != nil {
		exit(err.Error(), 1)
	}
	if l != nil {
		l.Printf("built %dx%d cache in %v", cache.Width(), cache.Height(), time.Since(start))
	}

	out := c.String("output")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		exit(err.Error(), 1)
	}
	f, err := os.Create(out)
	if err != nil {
		exit(err.Error(), 1)
	}
	if c.Bool("raw") {
		err = inkmatrix.WriteArtifact(f, cache)
	} else {
		err = inkmatrix.WriteCompressedArtifact(f, cache)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		exit(err.Error(), 1)
	}
	st, err := os.Stat(out)
	if err != nil {
		exit(err.Error(), 1)
	}
	printer.Printf("%s: %d entries, version %#02x, noise %s, %d bytes\n", out, cache.Len(), cache.Version(), cache.Key().Noise, st.Size())
}

func warm(c *cli.Context) {
	cfg, l := setup(c)
	cache := loadCache(cfg, l)
	printer.Printf("cache ready: %dx%d grid, %d bytes\n", cache.Width(), cache.Height(), cache.SizeBytes())
}

func info(c *cli.Context) {
	cfg, l := setup(c)
	calc, err := cfg.Calculator()
	if err != nil {
		exit(err.Error(), 1)
	}
	stores, err := cfg.Stores(l)
	if err != nil {
		exit(err.Error(), 1)
	}
	w, h := cfg.Grid.Width, cfg.Grid.Height
	printer.Printf("grid:        %dx%d blocks (%dx%d pixels)\n", w, h, w*inkmatrix.BlockSize, h*inkmatrix.BlockSize)
	printer.Printf("entries:     %d\n", inkmatrix.CacheLen(w, h))
	printer.Printf("size:        %d bytes\n", inkmatrix.CacheLen(w, h)*2+1)
	printer.Printf("brightening: %v\n", calc.Brightening())
	printer.Printf("version:     %#02x\n", calc.Version())
	printer.Printf("noise:       %s\n", calc.Key(w, h).Noise)
	printer.Printf("strategy:    %s\n", cfg.Cache.Strategy)
	for _, s := range stores {
		printer.Printf("store:       %v\n", s)
	}
}

func dither(c *cli.Context) {
	cfg, l := setup(c)
	reader := openInput(c.Args().First())

	img, _, err := image.Decode(reader)
	if err != nil {
		exit(err.Error(), 1)
	}

	w, h := cfg.Grid.Width, cfg.Grid.Height
	out := c.String("output")
	if out == "" {
		// Each braille symbol is 2x4 pixels and each source pixel 4x4.
		if cols, lines, err := terminal.GetSize(int(os.Stdout.Fd())); err == nil {
			w, h = min(w, cols/2), min(h, lines-1)
		}
	}
	frame := inkmatrix.Fit(img, w, h, cfg.Adjust)

	d := inkmatrix.NewDitherer(loadCache(cfg, l))
	packed, err := d.Dither(frame)
	if err != nil {
		exit(err.Error(), 1)
	}

	if out == "" {
		if _, err := (inkmatrix.BrailleFlusher{}).Flush(os.Stdout, packed); err != nil {
			exit(err.Error(), 1)
		}
		return
	}
	f, err := os.Create(out)
	if err != nil {
		exit(err.Error(), 1)
	}
	defer f.Close()
	if err := png.Encode(f, packed); err != nil {
		exit(err.Error(), 1)
	}
}

func play(c *cli.Context) {
	cfg, l := setup(c)
	if kind := c.String("display"); kind != "" {
		cfg.Display.Kind = kind
		if err := cfg.Validate(); err != nil {
			exit(err.Error(), 1)
		}
	}
	source := c.Args().First()
	if source == "" {
		source = "demo"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := loadCache(cfg, l)
	factor := cfg.DownscaleFactor()
	frameW, frameH := cfg.Grid.Width*factor, cfg.Grid.Height*factor

	var (
		display inkmatrix.Display
		enc     = cfg.Encoding()
		origin  = cfg.Origin()
	)
	switch cfg.Display.Kind {
	case inkmatrix.DisplayFramebuffer:
		fb, err := inkmatrix.OpenFramebuffer(cfg.Display.Device)
		if err != nil {
			exit(err.Error(), 1)
		}
		defer fb.Close()
		fb.Full = cfg.Display.Full
		display, enc = fb, fb.Encoding()
	default:
		if !terminal.IsTerminal(int(os.Stdout.Fd())) {
			exit("terminal display requires a terminal on stdout", 1)
		}
		term := inkmatrix.NewTerminalDisplay(os.Stdout, cfg.Grid.Width*inkmatrix.BlockSize, cfg.Grid.Height*inkmatrix.BlockSize)
		term.Open()
		defer term.Close()
		display, origin = term, image.Point{}
	}

	frames := &inkmatrix.LatestFrame{}
	renderer := inkmatrix.Renderer{
		Frames:    frames,
		Ditherer:  inkmatrix.NewDitherer(cache, inkmatrix.WithEncoding(enc)),
		Display:   display,
		FPS:       cfg.FPS,
		Waveform:  cfg.Waveform(),
		Origin:    origin,
		Downscale: factor,
		Log:       l,
	}

	fit := func(img image.Image) *image.Gray {
		return inkmatrix.Fit(img, frameW, frameH, cfg.Adjust)
	}
	errs := make(chan error, 1)
	go func() {
		errs <- produce(ctx, source, frames, fit, frameW, frameH)
	}()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := <-errs; sourceFailed(err) {
			if l != nil {
				l.Printf("frame source %s: %v", source, err)
			}
		}
		cancel()
	}()
	if err := renderer.Run(ctx); err != nil {
		exit(err.Error(), 1)
	}
}

func produce(ctx context.Context, source string, dst *inkmatrix.LatestFrame, fit inkmatrix.FitFunc, w, h int) error {
	switch {
	case source == "demo":
		return runDemo(ctx, dst, w, h)
	case source == "-":
		return inkmatrix.StreamMJPEG(ctx, dst, os.Stdin, fit)
	case strings.EqualFold(filepath.Ext(source), ".gif"):
		giff, err := gif.DecodeAll(openInput(source))
		if err != nil {
			return err
		}
		return inkmatrix.PlayGIF(ctx, dst, giff, fit)
	default:
		return inkmatrix.StreamMJPEG(ctx, dst, openInput(source), fit)
	}
}

// openInput opens a file or url, falling back to stdin for an empty name.
// sourceFailed reports whether a frame source stopped for any reason other
// than shutdown.
func sourceFailed(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func openInput(input string) io.Reader {
	if input == "" || input == "-" {
		return os.Stdin
	}
	// Is it a file?
	if file, err := os.Open(input); err == nil {
		return file
	}
	// Is it a url?
	resp, err := http.Get(input)
	if err != nil {
		exit(err.Error(), 1)
	}
	return resp.Body
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func exit(msg string, code int) {
	fmt.Println(msg)
	os.Exit(code)
}
