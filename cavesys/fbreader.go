package cavesys

import (
	"log"
	"reflect"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/video/framebuf"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/video/pixelqueue"
)

// A FrameBufferReader keeps the pixel queue topped up from the read slot
// of the rotator. It is registered as the privileged display client on
// the arbiter, so its bursts are never delayed by the rotation.
type FrameBufferReader struct {
	*sim.TickingComponent

	memPort sim.Port
	arbPort sim.Port

	queue     *pixelqueue.Queue
	rotator   *framebuf.Rotator
	slotWords uint64
	burstLen  int

	scanOffset uint64
	inflight   bool
	burstsRead uint64
}

func newFrameBufferReader(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	arbPort sim.Port,
	queue *pixelqueue.Queue,
	rotator *framebuf.Rotator,
	slotWords uint64,
	burstLen int,
) *FrameBufferReader {
	r := new(FrameBufferReader)
	r.TickingComponent = sim.NewTickingComponent(name, engine, freq, r)
	r.arbPort = arbPort
	r.queue = queue
	r.rotator = rotator
	r.slotWords = slotWords
	r.burstLen = burstLen
	r.memPort = sim.NewPort(r, 1, 1, name+".MemPort")
	r.AddPort("Mem", r.memPort)

	return r
}

// NotifyRetrace restarts the scan at the top of the read slot. Called at
// the vertical retrace.
func (r *FrameBufferReader) NotifyRetrace() {
	r.scanOffset = 0
}

// BurstsRead returns the number of refill bursts completed.
func (r *FrameBufferReader) BurstsRead() uint64 {
	return r.burstsRead
}

// Tick finishes an outstanding refill or starts a new one when the queue
// runs low.
func (r *FrameBufferReader) Tick() bool {
	if r.inflight {
		return r.collectBurst()
	}

	if !r.queue.NeedRefill() {
		return false
	}

	req := mem.ReadBurstReqBuilder{}.
		WithSrc(r.memPort).
		WithDst(r.arbPort).
		WithAddress(r.rotator.ReadAddress() + r.scanOffset).
		WithBurstLength(r.burstLen).
		Build()

	if err := r.memPort.Send(req); err != nil {
		return false
	}

	r.inflight = true

	return true
}

func (r *FrameBufferReader) collectBurst() bool {
	msg := r.memPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*mem.DataReadyRsp)
	if !ok {
		log.Panicf("frame buffer reader received unexpected %s",
			reflect.TypeOf(msg))
	}

	for _, word := range rsp.Data {
		r.queue.Push(word)
	}

	r.inflight = false
	r.burstsRead++
	r.scanOffset = (r.scanOffset + uint64(len(rsp.Data))) % r.slotWords

	return true
}
