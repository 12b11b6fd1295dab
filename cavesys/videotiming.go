package cavesys

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/hwsig"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/video/framebuf"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/video/pixelqueue"
)

// VideoTiming generates the display raster in the video clock domain: it
// sweeps the column and line counters, derives the vertical-blank and
// display-enable levels, consumes pixels from the queue, and drives the
// frame-buffer rotation. The write-in-progress level of the writer
// belongs to the memory domain and is resynchronized before use.
type VideoTiming struct {
	*sim.TickingComponent

	queue   *pixelqueue.Queue
	rotator *framebuf.Rotator
	reader  *FrameBufferReader
	writer  *FrameBufferWriter

	visibleCols, totalCols   int
	visibleLines, totalLines int

	col, line int

	framesToRun uint64
	framesDone  uint64
	pixelsDrawn uint64
	lastPixel   uint64

	writeSync  hwsig.Synchronizer
	vblankEdge hwsig.EdgeDetector
}

func newVideoTiming(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	queue *pixelqueue.Queue,
	rotator *framebuf.Rotator,
	reader *FrameBufferReader,
	writer *FrameBufferWriter,
	visibleCols, totalCols, visibleLines, totalLines int,
) *VideoTiming {
	v := new(VideoTiming)
	v.TickingComponent = sim.NewTickingComponent(name, engine, freq, v)
	v.queue = queue
	v.rotator = rotator
	v.reader = reader
	v.writer = writer
	v.visibleCols = visibleCols
	v.totalCols = totalCols
	v.visibleLines = visibleLines
	v.totalLines = totalLines

	return v
}

// Run makes the timing sweep the given number of frames.
func (v *VideoTiming) Run(frames uint64) {
	v.framesToRun = frames
	v.TickLater()
}

// FramesDone returns the number of completed raster sweeps.
func (v *VideoTiming) FramesDone() uint64 {
	return v.framesDone
}

// PixelsDrawn returns the number of pixel words consumed so far.
func (v *VideoTiming) PixelsDrawn() uint64 {
	return v.pixelsDrawn
}

// Tick advances the raster by one video cycle.
func (v *VideoTiming) Tick() bool {
	if v.framesDone >= v.framesToRun {
		return false
	}

	vblank := v.line >= v.visibleLines
	displayEnable := !vblank && v.col < v.visibleCols

	v.queue.ConsumerTick(vblank)
	if v.queue.CanPop(displayEnable) {
		v.lastPixel = v.queue.Pop()
		v.pixelsDrawn++
	}

	prevWriteSlot := v.rotator.WriteIndex()
	v.rotator.Update(v.writeSync.Sample(v.writer.InProgress()), vblank)
	if v.rotator.WriteIndex() != prevWriteSlot {
		// A queued frame waits for this rotation, so the writer has to
		// be woken from here.
		v.writer.TickLater()
	}

	if v.vblankEdge.Rising(vblank) {
		v.reader.NotifyRetrace()
		v.writer.RequestFrame()
	}

	// The refill need appears in the consumer domain, so the reader has
	// to be woken from here.
	if v.queue.NeedRefill() {
		v.reader.TickLater()
	}

	v.col++
	if v.col == v.totalCols {
		v.col = 0
		v.line++
		if v.line == v.totalLines {
			v.line = 0
			v.framesDone++
		}
	}

	return true
}
