package burstmem

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// A Builder can build burst memory controllers.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	accessLatency int
	capacity      uint64
	storage       *mem.Storage
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:          100 * sim.MHz,
		accessLatency: 1,
		capacity:      1 << 20,
	}
}

// WithEngine sets the engine that drives the controller.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the memory clock domain.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithAccessLatency sets the cycles between burst acceptance and the first
// word transferred.
func (b Builder) WithAccessLatency(latency int) Builder {
	b.accessLatency = latency
	return b
}

// WithCapacity sets the capacity of the backing storage in words.
func (b Builder) WithCapacity(words uint64) Builder {
	b.capacity = words
	return b
}

// WithStorage makes the controller use an existing storage.
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// Build creates a burst memory controller.
func (b Builder) Build(name string) *Comp {
	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.AccessLatency = b.accessLatency

	c.Storage = b.storage
	if c.Storage == nil {
		c.Storage = mem.NewStorage(b.capacity)
	}

	c.topPort = sim.NewPort(c, 1, 1, name+".TopPort")
	c.AddPort("Top", c.topPort)

	return c
}
