package linecache

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// A Builder can build line caches.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	memPort sim.Port

	depth         int
	lineWords     int
	offset        uint64
	wrap          bool
	packingWrites bool
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:      100 * sim.MHz,
		depth:     256,
		lineWords: 4,
	}
}

// WithEngine sets the engine that drives the cache.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the cache clock domain.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMemoryPort sets the port that fill and write-back bursts are sent
// to.
func (b Builder) WithMemoryPort(port sim.Port) Builder {
	b.memPort = port
	return b
}

// WithDepth sets the number of lines.
func (b Builder) WithDepth(depth int) Builder {
	b.depth = depth
	return b
}

// WithLineWords sets the number of words per line.
func (b Builder) WithLineWords(words int) Builder {
	b.lineWords = words
	return b
}

// WithAddressOffset sets the constant offset added to every address the
// cache sends to memory. It places the cached region inside the shared
// memory map.
func (b Builder) WithAddressOffset(offset uint64) Builder {
	b.offset = offset
	return b
}

// WithWrapping makes fills use critical-word-first bursts.
func (b Builder) WithWrapping() Builder {
	b.wrap = true
	return b
}

// WithPackingWrites enables the packing write slot.
func (b Builder) WithPackingWrites() Builder {
	b.packingWrites = true
	return b
}

// Build creates a line cache.
func (b Builder) Build(name string) *Comp {
	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.lineWords = b.lineWords
	c.offset = b.offset
	c.wrap = b.wrap
	c.packingWrites = b.packingWrites
	c.memPort = b.memPort

	c.lines = make([]line, b.depth)
	for i := range c.lines {
		c.lines[i].data = make([]uint64, b.lineWords)
	}

	c.topPort = sim.NewPort(c, 1, 1, name+".TopPort")
	c.AddPort("Top", c.topPort)
	c.bottomPort = sim.NewPort(c, 1, 1, name+".BottomPort")
	c.AddPort("Bottom", c.bottomPort)

	return c
}
