package inkmatrix

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "inkmatrix")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "inkmatrix.yaml")
	if err := ioutil.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	g := NewWithT(t)
	c, err := LoadConfig("")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(c.Grid.Width).To(Equal(DefaultGridWidth))
	g.Expect(c.Grid.Height).To(Equal(DefaultGridHeight))
	g.Expect(c.Waveform()).To(Equal(WaveformDU))
	g.Expect(c.Encoding()).To(Equal(RGB565))
	g.Expect(c.DownscaleFactor()).To(Equal(2))

	calc, err := c.Calculator()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(calc.Brightening()).To(Equal(Brighten150))
}

func TestLoadConfig(t *testing.T) {
	g := NewWithT(t)
	path := writeConfig(t, `
grid:
  width: 160
  height: 100
brightening: none
cache:
  strategy: build
display:
  kind: terminal
  encoding: gray8
  waveform: gc16_fast
  x: 4
  y: 8
fps: 12
downscale: false
adjust:
  gamma: 1.2
  invert: true
`)
	c, err := LoadConfig(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(c.Grid.Width).To(Equal(160))
	g.Expect(c.Grid.Height).To(Equal(100))
	g.Expect(c.Brightening).To(Equal("none"))
	g.Expect(c.Display.Kind).To(Equal(DisplayTerminal))
	g.Expect(c.Display.Device).To(Equal("/dev/fb0"))
	g.Expect(c.Encoding()).To(Equal(Gray8))
	g.Expect(c.Waveform()).To(Equal(WaveformGC16Fast))
	g.Expect(c.Origin().X).To(Equal(4))
	g.Expect(c.Origin().Y).To(Equal(8))
	g.Expect(c.FPS).To(Equal(12))
	g.Expect(c.DownscaleFactor()).To(Equal(1))
	g.Expect(c.Adjust).To(Equal(Adjustments{Gamma: 1.2, Invert: true}))
	g.Expect(c.Cache.Compress).To(BeTrue())

	stores, err := c.Stores(nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(stores).To(BeEmpty())
}

func TestLoadConfigErrors(t *testing.T) {
	for name, body := range map[string]string{
		"unknown key":      "colour: red\n",
		"bad grid":         "grid: {width: 0}\n",
		"bad brightening":  "brightening: 3x\n",
		"bad strategy":     "cache: {strategy: s3}\n",
		"bad display":      "display: {kind: hdmi}\n",
		"bad encoding":     "display: {encoding: rgb888}\n",
		"bad waveform":     "display: {waveform: glr16}\n",
		"negative origin":  "display: {x: -1}\n",
		"zero fps":         "fps: 0\n",
		"malformed yaml":   "grid: [\n",
		"wrong value type": "fps: fast\n",
	} {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)
			_, err := LoadConfig(writeConfig(t, body))
			g.Expect(err).To(HaveOccurred())
		})
	}

	g := NewWithT(t)
	_, err := LoadConfig(filepath.Join(os.TempDir(), "inkmatrix-does-not-exist.yaml"))
	g.Expect(err).To(HaveOccurred())
}

func TestConfigStores(t *testing.T) {
	g := NewWithT(t)
	c := DefaultConfig()
	c.Cache.Path = "/var/cache/inkmatrix/../inkmatrix/cache.bin"

	stores, err := c.Stores(nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(stores).To(HaveLen(1))
	file := stores[0].(*FileStore)
	g.Expect(file.Path).To(Equal("/var/cache/inkmatrix/cache.bin"))
	g.Expect(file.Compress).To(BeTrue())

	c.Cache.Strategy = CacheEmbedded
	stores, err = c.Stores(nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(stores).To(HaveLen(2))
	g.Expect(stores[0]).To(BeAssignableToTypeOf(&EmbeddedStore{}))
	g.Expect(stores[1]).To(BeAssignableToTypeOf(&FileStore{}))
}

func TestConfigNoiseFile(t *testing.T) {
	g := NewWithT(t)
	c := DefaultConfig()
	c.Noise = filepath.Join(os.TempDir(), "inkmatrix-missing-noise.png")
	_, err := c.Calculator()
	g.Expect(err).To(HaveOccurred())
}
