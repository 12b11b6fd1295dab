package sim

// A DirectConnection delivers messages between ports in the cycle after
// they are sent. Ports are served in a rotating order so that no port can
// monopolize the connection.
type DirectConnection struct {
	*TickingComponent

	nextPortID int
	ports      []Port
}

// NewDirectConnection creates a new DirectConnection.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, freq, c)

	return c
}

// PlugIn connects a port to the connection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	port.SetConnection(c)
}

// Unplug detaches a port from the connection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the connection can
// deliver to the port again.
func (c *DirectConnection) NotifyAvailable(p Port) {
	for _, port := range c.ports {
		if port == p {
			continue
		}

		port.NotifyAvailable()
	}

	c.TickNow()
}

// NotifySend is called by a port to notify that a message is waiting to be
// delivered.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick delivers pending messages, starting from a different port each
// cycle.
func (c *DirectConnection) Tick() bool {
	madeProgress := false

	for i := 0; i < len(c.ports); i++ {
		port := c.ports[(i+c.nextPortID)%len(c.ports)]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	c.nextPortID = (c.nextPortID + 1) % len(c.ports)

	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		err := head.Meta().Dst.Deliver(head)
		if err != nil {
			break
		}

		port.RetrieveOutgoing()
		madeProgress = true
	}

	return madeProgress
}
