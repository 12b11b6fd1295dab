// Package cavesys assembles the memory-access core of the arcade system:
// two burst memories behind two arbiters, line caches for the steady
// clients, the boot loader, the triple-buffered frame buffer, and the
// pixel queue that feeds the display.
package cavesys

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem/arbiter"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem/burstmem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem/linecache"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/video/framebuf"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/video/pixelqueue"
)

// A System is a fully wired memory-access core.
type System struct {
	Engine sim.Engine

	MainMemory *burstmem.Comp
	FastMemory *burstmem.Comp

	MainArbiter *arbiter.Comp
	FastArbiter *arbiter.Comp

	ProgCache   *linecache.Comp
	TileCache   *linecache.Comp
	SpriteCache *linecache.Comp
	LoaderCache *linecache.Comp
	SoundCache0 *linecache.Comp
	SoundCache1 *linecache.Comp
	GfxCache    *linecache.Comp

	Loader *Loader
	Writer *FrameBufferWriter
	Reader *FrameBufferReader
	Timing *VideoTiming

	ProgReader   *RomReader
	TileReader   *RomReader
	SpriteReader *RomReader
	SoundReader0 *RomReader
	SoundReader1 *RomReader
	GfxReader    *RomReader

	PixelQueue *pixelqueue.Queue
	Rotator    *framebuf.Rotator
}

// A Builder can build systems.
type Builder struct {
	engine    sim.Engine
	memFreq   sim.Freq
	videoFreq sim.Freq

	mainLatency int
	fastLatency int

	mainCapacity uint64
	fastCapacity uint64

	fbBase    uint64
	slotWords uint64
	burstLen  int
	queueCap  int

	visibleCols, totalCols   int
	visibleLines, totalLines int
}

// MakeBuilder creates a builder with the canonical parameters of the
// original hardware, scaled to word granularity.
func MakeBuilder() Builder {
	return Builder{
		memFreq:      100 * sim.MHz,
		videoFreq:    6 * sim.MHz,
		mainLatency:  8,
		fastLatency:  2,
		mainCapacity: 1 << 22,
		fastCapacity: 1 << 20,
		fbBase:       1 << 20,
		slotWords:    320 * 240 / 4,
		burstLen:     16,
		queueCap:     64,
		visibleCols:  320,
		totalCols:    400,
		visibleLines: 240,
		totalLines:   270,
	}
}

// WithEngine sets the engine that drives every component.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithMemFreq sets the memory clock.
func (b Builder) WithMemFreq(freq sim.Freq) Builder {
	b.memFreq = freq
	return b
}

// WithVideoFreq sets the pixel clock.
func (b Builder) WithVideoFreq(freq sim.Freq) Builder {
	b.videoFreq = freq
	return b
}

// WithFrameGeometry sets the raster dimensions. Visible sizes must not
// exceed the totals.
func (b Builder) WithFrameGeometry(
	visibleCols, totalCols, visibleLines, totalLines int,
) Builder {
	b.visibleCols = visibleCols
	b.totalCols = totalCols
	b.visibleLines = visibleLines
	b.totalLines = totalLines
	return b
}

// WithSlotWords sets the frame-buffer slot size in words.
func (b Builder) WithSlotWords(words uint64) Builder {
	b.slotWords = words
	return b
}

// WithFrameBufferBase sets the word address of frame-buffer slot 0.
func (b Builder) WithFrameBufferBase(base uint64) Builder {
	b.fbBase = base
	return b
}

// WithBurstLength sets the burst size used by the frame-buffer traffic
// and the packing write buffer.
func (b Builder) WithBurstLength(words int) Builder {
	b.burstLen = words
	return b
}

// WithPixelQueueCapacity sets the pixel queue depth in words.
func (b Builder) WithPixelQueueCapacity(words int) Builder {
	b.queueCap = words
	return b
}

// WithMainMemory sets the capacity and access latency of the high-latency
// bulk memory.
func (b Builder) WithMainMemory(capacityInWords uint64, latency int) Builder {
	b.mainCapacity = capacityInWords
	b.mainLatency = latency
	return b
}

// WithFastMemory sets the capacity and access latency of the low-latency
// memory.
func (b Builder) WithFastMemory(capacityInWords uint64, latency int) Builder {
	b.fastCapacity = capacityInWords
	b.fastLatency = latency
	return b
}

// Build creates a system.
func (b Builder) Build(name string) *System {
	s := &System{Engine: b.engine}

	b.buildMainSide(s, name)
	b.buildFastSide(s, name)
	b.buildVideoSide(s, name)

	return s
}

func (b Builder) buildMainSide(s *System, name string) {
	s.MainMemory = burstmem.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithAccessLatency(b.mainLatency).
		WithCapacity(b.mainCapacity).
		Build(name + ".MainMemory")

	s.MainArbiter = arbiter.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithMemoryPort(s.MainMemory.TopPort()).
		WithDisplayClient("Display").
		WithLoaderClient("Loader").
		AddClient("ProgRom").
		AddClient("TileRom").
		AddClient("SpriteRom").
		AddClient("FBWriter").
		Build(name + ".MainArbiter")

	memLink := sim.NewDirectConnection(name+".MainMemLink", b.engine, b.memFreq)
	memLink.PlugIn(s.MainArbiter.BottomPort())
	memLink.PlugIn(s.MainMemory.TopPort())

	s.ProgCache = linecache.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithMemoryPort(s.MainArbiter.ClientPort("ProgRom")).
		WithDepth(64).
		WithLineWords(4).
		WithWrapping().
		Build(name + ".ProgCache")

	s.TileCache = linecache.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithMemoryPort(s.MainArbiter.ClientPort("TileRom")).
		WithDepth(64).
		WithLineWords(4).
		WithAddressOffset(b.fbBase / 2).
		WithWrapping().
		Build(name + ".TileCache")

	s.LoaderCache = linecache.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithMemoryPort(s.MainArbiter.ClientPort("Loader")).
		WithDepth(1).
		WithLineWords(b.burstLen).
		WithPackingWrites().
		Build(name + ".LoaderCache")

	s.SpriteCache = linecache.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithMemoryPort(s.MainArbiter.ClientPort("SpriteRom")).
		WithDepth(64).
		WithLineWords(4).
		WithAddressOffset(b.fbBase / 4).
		WithWrapping().
		Build(name + ".SpriteCache")

	bus := sim.NewDirectConnection(name+".MainBus", b.engine, b.memFreq)
	for _, client := range s.MainArbiter.ClientNames() {
		bus.PlugIn(s.MainArbiter.ClientPort(client))
	}
	bus.PlugIn(s.ProgCache.BottomPort())
	bus.PlugIn(s.TileCache.BottomPort())
	bus.PlugIn(s.SpriteCache.BottomPort())
	bus.PlugIn(s.LoaderCache.BottomPort())

	s.Loader = newLoader(
		name+".Loader", b.engine, b.memFreq, s.LoaderCache.TopPort())
	loaderLink := sim.NewDirectConnection(
		name+".LoaderLink", b.engine, b.memFreq)
	loaderLink.PlugIn(s.Loader.memPort)
	loaderLink.PlugIn(s.LoaderCache.TopPort())

	s.ProgReader = newRomReader(
		name+".ProgReader", b.engine, b.memFreq,
		s.ProgCache.TopPort(), 1, 1<<12)
	progLink := sim.NewDirectConnection(
		name+".ProgLink", b.engine, b.memFreq)
	progLink.PlugIn(s.ProgReader.memPort)
	progLink.PlugIn(s.ProgCache.TopPort())

	s.TileReader = newRomReader(
		name+".TileReader", b.engine, b.memFreq,
		s.TileCache.TopPort(), 7, 1<<12)
	tileLink := sim.NewDirectConnection(
		name+".TileLink", b.engine, b.memFreq)
	tileLink.PlugIn(s.TileReader.memPort)
	tileLink.PlugIn(s.TileCache.TopPort())

	s.SpriteReader = newRomReader(
		name+".SpriteReader", b.engine, b.memFreq,
		s.SpriteCache.TopPort(), 13, 1<<12)
	spriteLink := sim.NewDirectConnection(
		name+".SpriteLink", b.engine, b.memFreq)
	spriteLink.PlugIn(s.SpriteReader.memPort)
	spriteLink.PlugIn(s.SpriteCache.TopPort())

	s.Rotator = framebuf.MakeBuilder().
		WithBaseAddress(b.fbBase).
		WithSlotWords(b.slotWords).
		Build()

	s.Writer = newFrameBufferWriter(
		name+".FBWriter", b.engine, b.memFreq,
		s.MainArbiter.ClientPort("FBWriter"),
		s.Rotator, b.slotWords, b.burstLen)
	bus.PlugIn(s.Writer.memPort)

	s.PixelQueue = pixelqueue.MakeBuilder().
		WithCapacity(b.queueCap).
		WithBurstLength(b.burstLen).
		Build(name + ".PixelQueue")

	s.Reader = newFrameBufferReader(
		name+".FBReader", b.engine, b.memFreq,
		s.MainArbiter.ClientPort("Display"),
		s.PixelQueue, s.Rotator, b.slotWords, b.burstLen)
	bus.PlugIn(s.Reader.memPort)
}

func (b Builder) buildFastSide(s *System, name string) {
	s.FastMemory = burstmem.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithAccessLatency(b.fastLatency).
		WithCapacity(b.fastCapacity).
		Build(name + ".FastMemory")

	s.FastArbiter = arbiter.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.memFreq).
		WithMemoryPort(s.FastMemory.TopPort()).
		AddClient("Sound0").
		AddClient("Sound1").
		AddClient("Gfx").
		Build(name + ".FastArbiter")

	memLink := sim.NewDirectConnection(name+".FastMemLink", b.engine, b.memFreq)
	memLink.PlugIn(s.FastArbiter.BottomPort())
	memLink.PlugIn(s.FastMemory.TopPort())

	bus := sim.NewDirectConnection(name+".FastBus", b.engine, b.memFreq)

	cacheFor := func(client string, depth int) *linecache.Comp {
		c := linecache.MakeBuilder().
			WithEngine(b.engine).
			WithFreq(b.memFreq).
			WithMemoryPort(s.FastArbiter.ClientPort(client)).
			WithDepth(depth).
			WithLineWords(4).
			WithWrapping().
			Build(name + "." + client + "Cache")

		bus.PlugIn(s.FastArbiter.ClientPort(client))
		bus.PlugIn(c.BottomPort())

		return c
	}

	s.SoundCache0 = cacheFor("Sound0", 32)
	s.SoundCache1 = cacheFor("Sound1", 32)
	s.GfxCache = cacheFor("Gfx", 128)

	readerFor := func(client string, cache *linecache.Comp,
		stride uint64) *RomReader {
		r := newRomReader(
			name+"."+client+"Reader", b.engine, b.memFreq,
			cache.TopPort(), stride, 1<<12)

		link := sim.NewDirectConnection(
			name+"."+client+"Link", b.engine, b.memFreq)
		link.PlugIn(r.memPort)
		link.PlugIn(cache.TopPort())

		return r
	}

	s.SoundReader0 = readerFor("Sound0", s.SoundCache0, 3)
	s.SoundReader1 = readerFor("Sound1", s.SoundCache1, 5)
	s.GfxReader = readerFor("Gfx", s.GfxCache, 11)
}

func (b Builder) buildVideoSide(s *System, name string) {
	s.Timing = newVideoTiming(
		name+".VideoTiming", b.engine, b.videoFreq,
		s.PixelQueue, s.Rotator, s.Reader, s.Writer,
		b.visibleCols, b.totalCols, b.visibleLines, b.totalLines)
}
