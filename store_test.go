package inkmatrix

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type countingStore struct {
	cache *Cache
	loads int
	saves []*Cache
	err   error
}

func (s *countingStore) Load(k CacheKey) (*Cache, bool) {
	s.loads++
	if s.cache == nil || s.cache.Key() != k {
		return nil, false
	}
	return s.cache, true
}

func (s *countingStore) Save(c *Cache) error {
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, c)
	return nil
}

var _ = Describe("FileStore", func() {
	var (
		dir   string
		calc  *Calculator
		cache *Cache
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "inkmatrix")
		Expect(err).NotTo(HaveOccurred())
		noise, err := DefaultNoise()
		Expect(err).NotTo(HaveOccurred())
		calc = NewCalculator(noise, Brighten150)
		cache = Build(calc, 8, 4)
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("misses when the file does not exist", func() {
		s := &FileStore{Path: filepath.Join(dir, "missing.bin")}
		c, ok := s.Load(calc.Key(8, 4))
		Expect(ok).To(BeFalse())
		Expect(c).To(BeNil())
	})

	It("misses on an empty grid", func() {
		s := &FileStore{Path: filepath.Join(dir, "cache.bin")}
		Expect(s.Save(cache)).To(Succeed())
		for _, k := range []CacheKey{calc.Key(0, 4), calc.Key(8, 0), calc.Key(-1, -1)} {
			c, ok := s.Load(k)
			Expect(ok).To(BeFalse())
			Expect(c).To(BeNil())
		}
	})

	It("names files after the noise texture", func() {
		s := &FileStore{Path: filepath.Join(dir, "cache.bin")}
		Expect(s.File("")).To(Equal(s.Path))
		Expect(s.File("0badf00d")).To(Equal(filepath.Join(dir, "cache-0badf00d.bin")))

		Expect(s.Save(cache)).To(Succeed())
		Expect(s.File(cache.Key().Noise)).To(BeAnExistingFile())
	})

	for _, compress := range []bool{false, true} {
		compress := compress
		It("round-trips a cache", func() {
			s := &FileStore{Path: filepath.Join(dir, "nested", "cache.bin"), Compress: compress}
			Expect(s.Save(cache)).To(Succeed())

			data, err := ioutil.ReadFile(s.File(cache.Key().Noise))
			Expect(err).NotTo(HaveOccurred())
			Expect(bytes.HasPrefix(data, zstdMagic)).To(Equal(compress))

			c, ok := s.Load(calc.Key(8, 4))
			Expect(ok).To(BeTrue())
			Expect(c.Entries()).To(Equal(cache.Entries()))
			Expect(c.Key()).To(Equal(cache.Key()))

			leftovers, err := filepath.Glob(filepath.Join(dir, "nested", "*.tmp"))
			Expect(err).NotTo(HaveOccurred())
			Expect(leftovers).To(BeEmpty())
		})
	}

	It("misses on a stale version, another texture or another grid", func() {
		s := &FileStore{Path: filepath.Join(dir, "cache.bin")}
		Expect(s.Save(cache)).To(Succeed())

		stale := calc.Key(8, 4)
		stale.Version++
		_, ok := s.Load(stale)
		Expect(ok).To(BeFalse())

		other := calc.Key(8, 4)
		other.Noise = "00000000"
		_, ok = s.Load(other)
		Expect(ok).To(BeFalse())

		_, ok = s.Load(calc.Key(8, 5))
		Expect(ok).To(BeFalse())
	})

	It("misses on a corrupt file", func() {
		s := &FileStore{Path: filepath.Join(dir, "cache.bin")}
		k := calc.Key(8, 4)
		Expect(ioutil.WriteFile(s.File(k.Noise), []byte{calc.Version(), 1, 2, 3}, 0o644)).To(Succeed())
		_, ok := s.Load(k)
		Expect(ok).To(BeFalse())
	})

	It("replaces an existing file", func() {
		s := &FileStore{Path: filepath.Join(dir, "cache.bin")}
		k := calc.Key(8, 4)
		Expect(ioutil.WriteFile(s.File(k.Noise), []byte("junk"), 0o644)).To(Succeed())
		Expect(s.Save(cache)).To(Succeed())
		_, ok := s.Load(k)
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("EmbeddedStore", func() {
	var calc *Calculator

	BeforeEach(func() {
		noise, err := DefaultNoise()
		Expect(err).NotTo(HaveOccurred())
		calc = NewCalculator(noise, NoBrightening)
	})

	It("misses without data", func() {
		_, ok := (&EmbeddedStore{}).Load(calc.Key(8, 4))
		Expect(ok).To(BeFalse())
	})

	It("serves a compressed artifact", func() {
		cache := Build(calc, 8, 4)
		var buf bytes.Buffer
		Expect(WriteCompressedArtifact(&buf, cache)).To(Succeed())

		s := &EmbeddedStore{Data: buf.Bytes(), Noise: calc.Key(8, 4).Noise}
		c, ok := s.Load(calc.Key(8, 4))
		Expect(ok).To(BeTrue())
		Expect(c.Entries()).To(Equal(cache.Entries()))

		_, ok = s.Load(calc.Key(320, 200))
		Expect(ok).To(BeFalse())
		_, ok = s.Load(calc.Key(0, 0))
		Expect(ok).To(BeFalse())
	})

	It("misses for a texture other than the one it was built from", func() {
		var buf bytes.Buffer
		Expect(WriteCompressedArtifact(&buf, Build(calc, 2, 2))).To(Succeed())
		s := &EmbeddedStore{Data: buf.Bytes(), Noise: calc.Key(2, 2).Noise}

		custom, err := NewNoiseTexture(1, 1, []uint8{10})
		Expect(err).NotTo(HaveOccurred())
		_, ok := s.Load(NewCalculator(custom, NoBrightening).Key(2, 2))
		Expect(ok).To(BeFalse())
	})

	It("serves the bundled texture by default", func() {
		noise, err := DefaultNoise()
		Expect(err).NotTo(HaveOccurred())
		Expect(NewEmbeddedStore(nil).Noise).To(Equal(noise.Fingerprint()))
	})

	It("is read-only", func() {
		Expect(NewEmbeddedStore(nil).Save(Build(calc, 1, 1))).To(MatchError(ErrReadOnly))
	})
})

var _ = Describe("Loader", func() {
	var calc *Calculator

	BeforeEach(func() {
		noise, err := DefaultNoise()
		Expect(err).NotTo(HaveOccurred())
		calc = NewCalculator(noise, Brighten150)
	})

	It("returns the first hit without building or saving", func() {
		cached := Build(calc, 4, 2)
		first := &countingStore{}
		second := &countingStore{cache: cached}
		third := &countingStore{cache: Build(calc, 4, 2)}

		l := &Loader{Calculator: calc, Width: 4, Height: 2, Stores: []Store{first, second, third}}
		Expect(l.Load()).To(BeIdenticalTo(cached))
		Expect(first.loads).To(Equal(1))
		Expect(third.loads).To(BeZero())
		Expect(first.saves).To(BeEmpty())
	})

	It("builds on a full miss and saves to every writable store", func() {
		stale := &countingStore{cache: Build(NewCalculator(calc.noise, NoBrightening), 4, 2)}
		broken := &countingStore{err: errors.New("disk full")}
		readOnly := &countingStore{err: ErrReadOnly}

		l := &Loader{Calculator: calc, Width: 4, Height: 2, Stores: []Store{stale, broken, readOnly}}
		c := l.Load()
		Expect(c.Version()).To(Equal(calc.Version()))
		Expect(c.Entries()).To(Equal(Build(calc, 4, 2).Entries()))
		Expect(stale.saves).To(ConsistOf(c))
	})

	It("builds without stores", func() {
		l := &Loader{Calculator: calc, Width: 3, Height: 3}
		Expect(l.Load().Len()).To(Equal(CacheLen(3, 3)))
	})

	It("fills a file store on first run and reads it afterwards", func() {
		dir, err := ioutil.TempDir("", "inkmatrix")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		file := &FileStore{Path: filepath.Join(dir, "cache.bin"), Compress: true}
		l := &Loader{Calculator: calc, Width: 5, Height: 3, Stores: []Store{NewEmbeddedStore(nil), file}}
		built := l.Load()
		Expect(file.File(built.Key().Noise)).To(BeAnExistingFile())

		spy := &countingStore{}
		l.Stores = []Store{file, spy}
		loaded := l.Load()
		Expect(loaded.Entries()).To(Equal(built.Entries()))
		Expect(spy.loads).To(BeZero())
	})

	It("rebuilds when the noise texture changes", func() {
		dir, err := ioutil.TempDir("", "inkmatrix")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		bright, err := NewNoiseTexture(1, 1, []uint8{200})
		Expect(err).NotTo(HaveOccurred())
		dark, err := NewNoiseTexture(1, 1, []uint8{10})
		Expect(err).NotTo(HaveOccurred())
		calcA := NewCalculator(bright, NoBrightening)
		calcB := NewCalculator(dark, NoBrightening)
		Expect(calcA.Version()).To(Equal(calcB.Version()))

		file := &FileStore{Path: filepath.Join(dir, "cache.bin")}
		a := (&Loader{Calculator: calcA, Width: 2, Height: 2, Stores: []Store{file}}).Load()
		b := (&Loader{Calculator: calcB, Width: 2, Height: 2, Stores: []Store{file}}).Load()

		Expect(b.Entries()).To(Equal(Build(calcB, 2, 2).Entries()))
		Expect(b.Entries()).NotTo(Equal(a.Entries()))
		Expect(file.File(a.Key().Noise)).To(BeAnExistingFile())
		Expect(file.File(b.Key().Noise)).To(BeAnExistingFile())
		Expect(file.File(a.Key().Noise)).NotTo(Equal(file.File(b.Key().Noise)))

		again := (&Loader{Calculator: calcA, Width: 2, Height: 2, Stores: []Store{file}}).Load()
		Expect(again.Entries()).To(Equal(a.Entries()))
	})
})
