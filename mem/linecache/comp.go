// Package linecache implements a direct-mapped cache of memory lines that
// shields a client from burst-transfer latency. A read that hits a cached
// line is answered in the next cycle; a miss evicts the mapped line,
// fetches the whole line with one burst, and stalls the client until the
// fill completes.
//
// A cache can additionally act as a packing write buffer: narrow writes
// accumulate words and byte masks in a single packing slot, and a full
// slot is written back with one burst. Partial packs are never flushed on
// their own.
package linecache

import (
	"log"
	"reflect"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

type cacheState int

const (
	cacheIdle cacheState = iota
	cacheWaitFill
	cacheRespondFill
	cacheFlushPack
	cacheWaitWriteDone
)

type line struct {
	tag   uint64
	valid bool
	data  []uint64
}

// Comp is a line cache.
type Comp struct {
	*sim.TickingComponent

	topPort    sim.Port
	bottomPort sim.Port
	memPort    sim.Port

	lineWords int
	offset    uint64
	wrap      bool

	lines []line
	state cacheState

	// Fill bookkeeping. The missing client request stays in the incoming
	// buffer until the fill is answered, which stalls the client.
	fillReqID  string
	fillLine   int
	fillOffset int

	packingWrites bool
	packBase      uint64
	packData      []uint64
	packMask      []uint8
	packReqID     string
}

// Tick processes at most one response from memory and one client message.
func (c *Comp) Tick() bool {
	madeProgress := c.handleBottomRsp()
	madeProgress = c.flushPack() || madeProgress
	madeProgress = c.respondFill() || madeProgress
	madeProgress = c.acceptClientMsg() || madeProgress

	return madeProgress
}

func (c *Comp) handleBottomRsp() bool {
	msg := c.bottomPort.PeekIncoming()
	if msg == nil {
		return false
	}

	switch rsp := msg.(type) {
	case *mem.DataReadyRsp:
		return c.storeFill(rsp)
	case *mem.WriteDoneRsp:
		return c.finishWriteBack(rsp)
	default:
		log.Panicf("line cache received unexpected %s", reflect.TypeOf(msg))
	}

	return false
}

// storeFill writes a returned burst into the line that is being filled.
// Wrapped bursts deliver the critical word first; the store index follows
// the same modulo order so that the line ends up in natural order.
func (c *Comp) storeFill(rsp *mem.DataReadyRsp) bool {
	if c.state != cacheWaitFill || rsp.RespondTo != c.fillReqID {
		log.Panicf("unexpected fill response %s", rsp.RespondTo)
	}

	if len(rsp.Data) != c.lineWords {
		log.Panicf("fill burst returned %d words, line holds %d",
			len(rsp.Data), c.lineWords)
	}

	l := &c.lines[c.fillLine]
	for i, word := range rsp.Data {
		index := i
		if c.wrap {
			index = (c.fillOffset + i) % c.lineWords
		}

		l.data[index] = word
	}

	l.valid = true
	c.state = cacheRespondFill
	c.bottomPort.RetrieveIncoming()

	return true
}

func (c *Comp) finishWriteBack(rsp *mem.WriteDoneRsp) bool {
	if c.state != cacheWaitWriteDone || rsp.RespondTo != c.packReqID {
		log.Panicf("unexpected write-back response %s", rsp.RespondTo)
	}

	c.state = cacheIdle
	c.packData = nil
	c.packMask = nil
	c.bottomPort.RetrieveIncoming()

	return true
}

func (c *Comp) flushPack() bool {
	if c.state != cacheFlushPack {
		return false
	}

	wb := mem.WriteBurstReqBuilder{}.
		WithSrc(c.bottomPort).
		WithDst(c.memPort).
		WithAddress(c.offset + c.packBase).
		WithData(c.packData).
		WithByteMask(c.packMask).
		Build()

	if err := c.bottomPort.Send(wb); err != nil {
		return false
	}

	c.packReqID = wb.ID
	c.state = cacheWaitWriteDone

	return true
}

// respondFill answers the stalled client request once its line is filled.
func (c *Comp) respondFill() bool {
	if c.state != cacheRespondFill {
		return false
	}

	req := c.topPort.PeekIncoming().(*mem.ReadBurstReq)

	rsp := mem.DataReadyRspBuilder{}.
		WithSrc(c.topPort).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithData(c.lookup(req)).
		Build()

	if err := c.topPort.Send(rsp); err != nil {
		return false
	}

	c.topPort.RetrieveIncoming()
	c.state = cacheIdle

	return true
}

func (c *Comp) acceptClientMsg() bool {
	if c.state != cacheIdle {
		return false
	}

	msg := c.topPort.PeekIncoming()
	if msg == nil {
		return false
	}

	switch req := msg.(type) {
	case *mem.ReadBurstReq:
		return c.serveRead(req)
	case *mem.WriteBurstReq:
		return c.packWrite(req)
	default:
		log.Panicf("line cache cannot serve %s", reflect.TypeOf(msg))
	}

	return false
}

func (c *Comp) serveRead(req *mem.ReadBurstReq) bool {
	c.reqMustFitInLine(req)

	if c.hit(req.Address) {
		rsp := mem.DataReadyRspBuilder{}.
			WithSrc(c.topPort).
			WithDst(req.Src).
			WithRspTo(req.ID).
			WithData(c.lookup(req)).
			Build()

		if err := c.topPort.Send(rsp); err != nil {
			return false
		}

		c.topPort.RetrieveIncoming()

		return true
	}

	return c.issueFill(req)
}

// issueFill evicts the mapped line and fetches the whole line in one
// burst. The client request is left in the incoming buffer so the client
// stays stalled until respondFill answers it.
func (c *Comp) issueFill(req *mem.ReadBurstReq) bool {
	lineAddr := req.Address - req.Address%uint64(c.lineWords)
	wordInLine := int(req.Address % uint64(c.lineWords))

	b := mem.ReadBurstReqBuilder{}.
		WithSrc(c.bottomPort).
		WithDst(c.memPort).
		WithAddress(c.offset + lineAddr).
		WithBurstLength(c.lineWords)
	if c.wrap {
		b = b.WithWrapOffset(wordInLine)
	}
	fill := b.Build()

	if err := c.bottomPort.Send(fill); err != nil {
		return false
	}

	index := c.lineIndex(req.Address)
	c.lines[index].valid = false
	c.lines[index].tag = lineAddr

	c.fillReqID = fill.ID
	c.fillLine = index
	c.fillOffset = wordInLine
	c.state = cacheWaitFill

	return true
}

// packWrite accumulates a narrow write into the packing slot and acks it.
// A write that completes the slot triggers a single write-back burst.
func (c *Comp) packWrite(req *mem.WriteBurstReq) bool {
	if !c.packingWrites {
		log.Panicf("cache %s does not accept writes", c.Name())
	}

	if len(c.packData) == 0 {
		c.packBase = req.Address
	} else if req.Address != c.packBase+uint64(len(c.packData)) {
		log.Panicf("packing write to %#x breaks the sequential run at %#x",
			req.Address, c.packBase+uint64(len(c.packData)))
	}

	if len(c.packData)+len(req.Data) > c.lineWords {
		log.Panicf("packing write overflows the %d-word slot", c.lineWords)
	}

	ack := mem.WriteDoneRspBuilder{}.
		WithSrc(c.topPort).
		WithDst(req.Src).
		WithRspTo(req.ID).
		Build()

	if err := c.topPort.Send(ack); err != nil {
		return false
	}

	c.topPort.RetrieveIncoming()

	c.packData = append(c.packData, req.Data...)
	for i := range req.Data {
		if req.ByteMask == nil {
			c.packMask = append(c.packMask, mem.FullMask)
		} else {
			c.packMask = append(c.packMask, req.ByteMask[i])
		}
	}

	if len(c.packData) == c.lineWords {
		c.state = cacheFlushPack
	}

	return true
}

func (c *Comp) lineIndex(addr uint64) int {
	return int(addr / uint64(c.lineWords) % uint64(len(c.lines)))
}

func (c *Comp) hit(addr uint64) bool {
	l := &c.lines[c.lineIndex(addr)]
	return l.valid && l.tag == addr-addr%uint64(c.lineWords)
}

func (c *Comp) lookup(req *mem.ReadBurstReq) []uint64 {
	l := &c.lines[c.lineIndex(req.Address)]
	start := int(req.Address % uint64(c.lineWords))

	data := make([]uint64, req.BurstLength)
	copy(data, l.data[start:start+req.BurstLength])

	return data
}

func (c *Comp) reqMustFitInLine(req *mem.ReadBurstReq) {
	start := int(req.Address % uint64(c.lineWords))
	if start+req.BurstLength > c.lineWords {
		log.Panicf("read of %d words at %#x crosses a line boundary",
			req.BurstLength, req.Address)
	}
}

// TopPort returns the client-side port of the cache.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// BottomPort returns the memory-side port of the cache.
func (c *Comp) BottomPort() sim.Port {
	return c.bottomPort
}
