// Package burstmem models a physical burst memory port. A controller
// services one burst at a time: a transfer accepted at cycle T completes
// AccessLatency + BurstLength cycles later, when the whole burst has been
// clocked across the data pins. Two instances back a system, one for the
// high-latency bulk memory and one for the low-latency bulk memory.
package burstmem

import (
	"log"
	"reflect"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

type readCompleteEvent struct {
	*sim.EventBase
	req *mem.ReadBurstReq
}

func newReadCompleteEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	req *mem.ReadBurstReq,
) *readCompleteEvent {
	return &readCompleteEvent{sim.NewEventBase(time, handler), req}
}

type writeCompleteEvent struct {
	*sim.EventBase
	req *mem.WriteBurstReq
}

func newWriteCompleteEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	req *mem.WriteBurstReq,
) *writeCompleteEvent {
	return &writeCompleteEvent{sim.NewEventBase(time, handler), req}
}

// Comp is a burst memory controller.
type Comp struct {
	*sim.TickingComponent

	topPort sim.Port
	Storage *mem.Storage

	// AccessLatency is the number of cycles between accepting a burst and
	// the first word appearing on the data pins.
	AccessLatency int

	busy bool
}

// Handle processes the events scheduled on the controller.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *readCompleteEvent:
		return c.handleReadCompleteEvent(e)
	case *writeCompleteEvent:
		return c.handleWriteCompleteEvent(e)
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

// Tick accepts at most one new burst when no burst is in flight.
func (c *Comp) Tick() bool {
	if c.busy {
		return false
	}

	msg := c.topPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	now := c.CurrentTime()

	switch req := msg.(type) {
	case *mem.ReadBurstReq:
		completeTime := c.Freq.NCyclesLater(
			c.AccessLatency+req.BurstLength, now)
		c.Engine.Schedule(newReadCompleteEvent(completeTime, c, req))
	case *mem.WriteBurstReq:
		completeTime := c.Freq.NCyclesLater(
			c.AccessLatency+req.BurstLength(), now)
		c.Engine.Schedule(newWriteCompleteEvent(completeTime, c, req))
	default:
		log.Panicf("cannot handle request of type %s", reflect.TypeOf(msg))
	}

	c.busy = true

	return true
}

func (c *Comp) handleReadCompleteEvent(e *readCompleteEvent) error {
	req := e.req

	data, err := c.Storage.Read(req.Address, uint64(req.BurstLength))
	if err != nil {
		log.Panic(err)
	}

	if req.Wrap {
		data = wrapWords(data, req.WrapOffset)
	}

	rsp := mem.DataReadyRspBuilder{}.
		WithSrc(c.topPort).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(data).
		Build()

	if sendErr := c.topPort.Send(rsp); sendErr != nil {
		retry := newReadCompleteEvent(c.Freq.NextTick(e.Time()), c, req)
		c.Engine.Schedule(retry)
		return nil
	}

	c.busy = false
	c.TickLater()

	return nil
}

func (c *Comp) handleWriteCompleteEvent(e *writeCompleteEvent) error {
	req := e.req

	rsp := mem.WriteDoneRspBuilder{}.
		WithSrc(c.topPort).
		WithDst(req.Src).
		WithRspTo(req.ID).
		Build()

	if sendErr := c.topPort.Send(rsp); sendErr != nil {
		retry := newWriteCompleteEvent(c.Freq.NextTick(e.Time()), c, req)
		c.Engine.Schedule(retry)
		return nil
	}

	err := c.Storage.WriteMasked(req.Address, req.Data, req.ByteMask)
	if err != nil {
		log.Panic(err)
	}

	c.busy = false
	c.TickLater()

	return nil
}

// TopPort returns the port that accepts burst requests.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// wrapWords reorders a line into critical-word-first order, starting at
// offset.
func wrapWords(line []uint64, offset int) []uint64 {
	n := len(line)
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = line[(offset+i)%n]
	}

	return out
}
