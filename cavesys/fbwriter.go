package cavesys

import (
	"log"
	"reflect"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/video/framebuf"
)

// A FrameBufferWriter renders frames into the write slot of the rotator,
// one burst at a time. Its InProgress level drops when a frame is fully
// written, which is the edge that rotates the write index. The slot base
// address is latched when a frame starts; a queued frame does not start
// until the rotation from the previous frame has been observed, so a slow
// frame can never spill into the slot it just finished.
type FrameBufferWriter struct {
	*sim.TickingComponent

	memPort sim.Port
	arbPort sim.Port

	rotator   *framebuf.Rotator
	slotWords uint64
	burstLen  int

	framesToRender  uint64
	framesRequested uint64
	framesWritten   uint64
	pending         uint64

	writing  bool
	offset   uint64
	slotBase uint64
	lastSlot int
	inflight bool
}

func newFrameBufferWriter(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	arbPort sim.Port,
	rotator *framebuf.Rotator,
	slotWords uint64,
	burstLen int,
) *FrameBufferWriter {
	w := new(FrameBufferWriter)
	w.TickingComponent = sim.NewTickingComponent(name, engine, freq, w)
	w.arbPort = arbPort
	w.rotator = rotator
	w.slotWords = slotWords
	w.burstLen = burstLen
	w.memPort = sim.NewPort(w, 1, 1, name+".MemPort")
	w.AddPort("Mem", w.memPort)
	w.lastSlot = -1

	return w
}

// RenderFrames sets the total number of synthetic frames the writer will
// render. Frames are started one at a time by RequestFrame.
func (w *FrameBufferWriter) RenderFrames(n uint64) {
	w.framesToRender = n
}

// RequestFrame starts the next frame if the render budget allows. The
// video timing calls this at every vertical retrace, which paces the
// writer to one frame per refresh.
func (w *FrameBufferWriter) RequestFrame() {
	if w.framesRequested >= w.framesToRender {
		return
	}

	w.framesRequested++
	w.pending++
	w.TickLater()
}

// InProgress returns the write-in-progress level.
func (w *FrameBufferWriter) InProgress() bool {
	return w.writing
}

// FramesWritten returns the number of completed frames.
func (w *FrameBufferWriter) FramesWritten() uint64 {
	return w.framesWritten
}

// Tick moves the current frame forward by one burst.
func (w *FrameBufferWriter) Tick() bool {
	madeProgress := w.collectAck()

	if !w.writing {
		if w.pending == 0 || w.rotator.WriteIndex() == w.lastSlot {
			return madeProgress
		}

		w.pending--
		w.writing = true
		w.offset = 0
		w.slotBase = w.rotator.WriteAddress()
	}

	if w.inflight {
		return madeProgress
	}

	if w.offset == w.slotWords {
		w.writing = false
		w.lastSlot = w.rotator.WriteIndex()
		w.framesWritten++
		return true
	}

	n := uint64(w.burstLen)
	if w.slotWords-w.offset < n {
		n = w.slotWords - w.offset
	}

	req := mem.WriteBurstReqBuilder{}.
		WithSrc(w.memPort).
		WithDst(w.arbPort).
		WithAddress(w.slotBase + w.offset).
		WithData(w.synthesize(n)).
		Build()

	if err := w.memPort.Send(req); err != nil {
		return madeProgress
	}

	w.offset += n
	w.inflight = true

	return true
}

// synthesize produces the pixel words of the current frame. The pattern
// encodes the frame number and the word offset so tests can tell frames
// apart in memory.
func (w *FrameBufferWriter) synthesize(n uint64) []uint64 {
	words := make([]uint64, n)
	for i := range words {
		words[i] = w.framesWritten<<32 | (w.offset + uint64(i))
	}

	return words
}

func (w *FrameBufferWriter) collectAck() bool {
	msg := w.memPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	if _, ok := msg.(*mem.WriteDoneRsp); !ok {
		log.Panicf("frame buffer writer received unexpected %s",
			reflect.TypeOf(msg))
	}

	w.inflight = false

	return true
}
