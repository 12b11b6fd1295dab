// Package pixelqueue implements the pixel FIFO that carries frame-buffer
// words from the memory clock domain into the video clock domain.
//
// The producer fills the queue from burst reads; the consumer drains one
// pixel word per video cycle. Because the two sides run on unrelated
// clocks, the consumer only trusts the vertical-blank level after it has
// passed a two-stage synchronizer, and it does not start consuming until
// it has watched the queue drain empty and then fill again during the
// non-display interval. The drain throws away words left over from the
// previous frame, so a frame always starts at a word boundary.
package pixelqueue

import (
	"log"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/hwsig"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// A Queue is a cross-domain pixel FIFO. Push runs in the producer domain;
// ConsumerTick, CanPop, and Pop run in the consumer domain.
type Queue struct {
	name string

	buf      sim.Buffer
	lowWater int

	vblankSync hwsig.Synchronizer
	vblankEdge hwsig.EdgeDetector

	draining bool
	filling  bool
}

// Name returns the name of the queue.
func (q *Queue) Name() string {
	return q.name
}

// CanPush returns true if the queue has room for another word.
func (q *Queue) CanPush() bool {
	return q.buf.CanPush()
}

// Push inserts a word on the producer side. Pushing into a full queue
// panics.
func (q *Queue) Push(word uint64) {
	q.buf.Push(word)
}

// ConsumerTick advances the consumer-side state by one video cycle. The
// vblank argument is the raw vertical-blank level from the video timing
// and is resynchronized internally.
func (q *Queue) ConsumerTick(vblank bool) {
	level := q.vblankSync.Sample(vblank)

	if q.vblankEdge.Rising(level) {
		q.draining = false
		q.filling = false
	}

	if level && !q.draining {
		if q.buf.Size() == 0 {
			q.draining = true
		} else {
			// Dump one stale word left over from the previous frame.
			q.buf.Pop()
		}
	}

	if level && q.draining && !q.filling && q.buf.Size() > 0 {
		q.filling = true
	}
}

// CanPop returns true when the consumer may take a word: the display is
// active and the queue has been observed empty and then refilled since
// the non-display interval began.
func (q *Queue) CanPop(displayEnable bool) bool {
	return displayEnable && q.draining && q.filling && q.buf.Size() > 0
}

// Pop removes and returns the next word. Call only when CanPop.
func (q *Queue) Pop() uint64 {
	word := q.buf.Pop()
	if word == nil {
		log.Panicf("pop from empty pixel queue %s", q.name)
	}

	return word.(uint64)
}

// NeedRefill reports whether the producer should fetch another burst. It
// stays false until the stale drain has finished, so a refill never races
// the drain.
func (q *Queue) NeedRefill() bool {
	return q.draining && q.buf.Size() < q.lowWater
}

// Size returns the number of words currently queued.
func (q *Queue) Size() int {
	return q.buf.Size()
}

// Capacity returns the total number of words the queue can hold.
func (q *Queue) Capacity() int {
	return q.buf.Capacity()
}

// A Builder can build pixel queues.
type Builder struct {
	capacity    int
	burstLength int
	lowWater    int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		capacity:    1024,
		burstLength: 16,
	}
}

// WithCapacity sets the queue capacity in words.
func (b Builder) WithCapacity(words int) Builder {
	b.capacity = words
	return b
}

// WithBurstLength sets the burst size the producer refills with. The
// default low-water mark leaves room for one full burst.
func (b Builder) WithBurstLength(words int) Builder {
	b.burstLength = words
	return b
}

// WithLowWaterMark overrides the refill threshold.
func (b Builder) WithLowWaterMark(words int) Builder {
	b.lowWater = words
	return b
}

// Build creates a pixel queue.
func (b Builder) Build(name string) *Queue {
	q := &Queue{
		name:     name,
		buf:      sim.NewBuffer(name+".Buf", b.capacity),
		lowWater: b.lowWater,
	}

	if q.lowWater == 0 {
		q.lowWater = b.capacity - b.burstLength
	}

	if q.lowWater <= 0 || q.lowWater > b.capacity {
		log.Panicf("low-water mark %d out of range for capacity %d",
			q.lowWater, b.capacity)
	}

	return q
}
