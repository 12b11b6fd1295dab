// Package framebuf implements triple buffering for the frame buffer that
// decouples the render write rate from the display refresh rate.
//
// Three equally sized slots live in shared memory. The writer renders
// into one slot while the reader scans another out; the third slot always
// holds the most recently completed frame. Rotation is edge driven: the
// writer moves on when it finishes a frame, the reader moves on at the
// vertical retrace, and each picks the slot the other is not using.
package framebuf

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/hwsig"
)

// A Rotator tracks which frame-buffer slot is being written and which is
// being displayed.
type Rotator struct {
	base      uint64
	slotWords uint64

	writeIndex int
	readIndex  int

	writeEdge hwsig.EdgeDetector
	readEdge  hwsig.EdgeDetector

	degenerateSwaps uint64
}

// Update advances the rotation by one cycle. The write index rotates on
// the falling edge of writeInProgress; the read index rotates on the
// rising edge of vblank. Each rotation reads the pre-update value of the
// other index, so the two updates do not order-depend on each other.
func (r *Rotator) Update(writeInProgress, vblank bool) {
	prevWrite, prevRead := r.writeIndex, r.readIndex

	if r.writeEdge.Falling(writeInProgress) {
		r.writeIndex = r.nextIndex(prevWrite, prevRead)
	}

	if r.readEdge.Rising(vblank) {
		r.readIndex = r.nextIndex(prevRead, prevWrite)
	}
}

// nextIndex returns the one slot in {0,1,2} that is neither a nor b. The
// degenerate a==b case cannot name a unique slot and falls back to 1;
// reaching it means the rotation was corrupted, so it is counted.
func (r *Rotator) nextIndex(a, b int) int {
	if a == b {
		r.degenerateSwaps++
		return 1
	}

	return 3 - a - b
}

// WriteIndex returns the slot currently being rendered into.
func (r *Rotator) WriteIndex() int {
	return r.writeIndex
}

// ReadIndex returns the slot currently being displayed.
func (r *Rotator) ReadIndex() int {
	return r.readIndex
}

// WriteAddress returns the word address of the write slot.
func (r *Rotator) WriteAddress() uint64 {
	return r.base + uint64(r.writeIndex)*r.slotWords
}

// ReadAddress returns the word address of the read slot.
func (r *Rotator) ReadAddress() uint64 {
	return r.base + uint64(r.readIndex)*r.slotWords
}

// DegenerateSwapCount returns how often the rotation hit the degenerate
// equal-index case.
func (r *Rotator) DegenerateSwapCount() uint64 {
	return r.degenerateSwaps
}

// A Builder can build rotators.
type Builder struct {
	base      uint64
	slotWords uint64
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		slotWords: 320 * 240 / 4,
	}
}

// WithBaseAddress sets the word address of slot 0.
func (b Builder) WithBaseAddress(base uint64) Builder {
	b.base = base
	return b
}

// WithSlotWords sets the size of one slot in words.
func (b Builder) WithSlotWords(words uint64) Builder {
	b.slotWords = words
	return b
}

// Build creates a rotator. The writer starts on slot 0, the reader on
// slot 1.
func (b Builder) Build() *Rotator {
	return &Rotator{
		base:       b.base,
		slotWords:  b.slotWords,
		writeIndex: 0,
		readIndex:  1,
	}
}
