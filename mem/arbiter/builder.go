package arbiter

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// A Builder can build burst arbiters.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	memPort sim.Port

	clientNames   []string
	displayClient string
	loaderClient  string
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq: 100 * sim.MHz,
	}
}

// WithEngine sets the engine that drives the arbiter.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the memory clock domain.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMemoryPort sets the port that granted requests are forwarded to.
func (b Builder) WithMemoryPort(port sim.Port) Builder {
	b.memPort = port
	return b
}

// AddClient registers a steady client. Steady clients take part in the
// priority rotation in registration order.
func (b Builder) AddClient(name string) Builder {
	b.clientNames = append(b.clientNames, name)
	return b
}

// WithDisplayClient registers the real-time display-read client, which is
// granted ahead of the rotation whenever it has a request latched.
func (b Builder) WithDisplayClient(name string) Builder {
	b.clientNames = append(b.clientNames, name)
	b.displayClient = name
	return b
}

// WithLoaderClient registers the startup loader client, which is granted
// ahead of the rotation but behind the display client.
func (b Builder) WithLoaderClient(name string) Builder {
	b.clientNames = append(b.clientNames, name)
	b.loaderClient = name
	return b
}

// Build creates a burst arbiter.
func (b Builder) Build(name string) *Comp {
	if len(b.clientNames) == 0 {
		panic("arbiter needs at least one client")
	}

	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.displayClientID = noClient
	c.loaderClientID = noClient

	for i, clientName := range b.clientNames {
		cl := &client{
			id:   i,
			name: clientName,
			port: sim.NewPort(c, 1, 1, name+"."+clientName),
		}
		c.clients = append(c.clients, cl)
		c.AddPort(clientName, cl.port)

		switch clientName {
		case b.displayClient:
			c.displayClientID = i
		case b.loaderClient:
			c.loaderClientID = i
		default:
			c.steadyOrder = append(c.steadyOrder, i)
		}
	}

	c.memPort = b.memPort
	c.bottomPort = sim.NewPort(c, 1, 1, name+".BottomPort")
	c.AddPort("Bottom", c.bottomPort)

	return c
}

// BottomPort returns the port that connects the arbiter to the memory
// controller.
func (c *Comp) BottomPort() sim.Port {
	return c.bottomPort
}
