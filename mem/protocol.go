// Package mem defines the burst transfer protocol spoken between the line
// caches, the burst arbiters, and the physical memory models, together
// with the word-granular storage that backs the memory models.
//
// A memory word is 64 bits wide. Addresses are expressed in words. Write
// masks carry one mask byte per word; bit i of a mask byte enables byte i
// of the corresponding word.
package mem

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// FullMask is the mask byte that enables every byte of a word.
const FullMask uint8 = 0xff

// A ReadBurstReq asks a memory port for a run of consecutive words.
type ReadBurstReq struct {
	sim.MsgMeta

	Address     uint64
	BurstLength int

	// Wrap requests critical-word-first ordering: the response carries the
	// word at WrapOffset first, followed by the rest of the line in modulo
	// order.
	Wrap       bool
	WrapOffset int
}

// Meta returns the meta data of the message.
func (r *ReadBurstReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// ReadBurstReqBuilder can build read burst requests.
type ReadBurstReqBuilder struct {
	src, dst    sim.Port
	address     uint64
	burstLength int
	wrap        bool
	wrapOffset  int
}

// WithSrc sets the source of the request to build.
func (b ReadBurstReqBuilder) WithSrc(src sim.Port) ReadBurstReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ReadBurstReqBuilder) WithDst(dst sim.Port) ReadBurstReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the word address of the request to build.
func (b ReadBurstReqBuilder) WithAddress(address uint64) ReadBurstReqBuilder {
	b.address = address
	return b
}

// WithBurstLength sets the number of words to transfer.
func (b ReadBurstReqBuilder) WithBurstLength(n int) ReadBurstReqBuilder {
	b.burstLength = n
	return b
}

// WithWrapOffset requests critical-word-first ordering starting at the
// given in-line word offset.
func (b ReadBurstReqBuilder) WithWrapOffset(offset int) ReadBurstReqBuilder {
	b.wrap = true
	b.wrapOffset = offset
	return b
}

// Build creates a new ReadBurstReq.
func (b ReadBurstReqBuilder) Build() *ReadBurstReq {
	r := &ReadBurstReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Address = b.address
	r.BurstLength = b.burstLength
	r.Wrap = b.wrap
	r.WrapOffset = b.wrapOffset

	return r
}

// A WriteBurstReq sends a run of consecutive words to a memory port.
type WriteBurstReq struct {
	sim.MsgMeta

	Address uint64
	Data    []uint64

	// ByteMask holds one mask byte per data word. A nil mask writes every
	// byte.
	ByteMask []uint8
}

// Meta returns the meta data of the message.
func (r *WriteBurstReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// BurstLength returns the number of words the request writes.
func (r *WriteBurstReq) BurstLength() int {
	return len(r.Data)
}

// WriteBurstReqBuilder can build write burst requests.
type WriteBurstReqBuilder struct {
	src, dst sim.Port
	address  uint64
	data     []uint64
	byteMask []uint8
}

// WithSrc sets the source of the request to build.
func (b WriteBurstReqBuilder) WithSrc(src sim.Port) WriteBurstReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b WriteBurstReqBuilder) WithDst(dst sim.Port) WriteBurstReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the word address of the request to build.
func (b WriteBurstReqBuilder) WithAddress(address uint64) WriteBurstReqBuilder {
	b.address = address
	return b
}

// WithData sets the words to write.
func (b WriteBurstReqBuilder) WithData(data []uint64) WriteBurstReqBuilder {
	b.data = data
	return b
}

// WithByteMask sets the per-word byte masks.
func (b WriteBurstReqBuilder) WithByteMask(mask []uint8) WriteBurstReqBuilder {
	b.byteMask = mask
	return b
}

// Build creates a new WriteBurstReq.
func (b WriteBurstReqBuilder) Build() *WriteBurstReq {
	r := &WriteBurstReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Address = b.address
	r.Data = b.data
	r.ByteMask = b.byteMask

	return r
}

// A DataReadyRsp carries the words loaded by a read burst. When the
// request was wrapping, the words are in wrapped (critical-word-first)
// order.
type DataReadyRsp struct {
	sim.MsgMeta

	RespondTo string
	Data      []uint64
}

// Meta returns the meta data of the message.
func (r *DataReadyRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// GetRspTo returns the ID of the request the response replies to.
func (r *DataReadyRsp) GetRspTo() string {
	return r.RespondTo
}

// DataReadyRspBuilder can build data ready responses.
type DataReadyRspBuilder struct {
	src, dst sim.Port
	rspTo    string
	data     []uint64
}

// WithSrc sets the source of the response to build.
func (b DataReadyRspBuilder) WithSrc(src sim.Port) DataReadyRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b DataReadyRspBuilder) WithDst(dst sim.Port) DataReadyRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request the response replies to.
func (b DataReadyRspBuilder) WithRspTo(id string) DataReadyRspBuilder {
	b.rspTo = id
	return b
}

// WithData sets the words the response carries.
func (b DataReadyRspBuilder) WithData(data []uint64) DataReadyRspBuilder {
	b.data = data
	return b
}

// Build creates a new DataReadyRsp.
func (b DataReadyRspBuilder) Build() *DataReadyRsp {
	r := &DataReadyRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.RespondTo = b.rspTo
	r.Data = b.data

	return r
}

// A WriteDoneRsp marks a previous write burst as fully transferred.
type WriteDoneRsp struct {
	sim.MsgMeta

	RespondTo string
}

// Meta returns the meta data of the message.
func (r *WriteDoneRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// GetRspTo returns the ID of the request the response replies to.
func (r *WriteDoneRsp) GetRspTo() string {
	return r.RespondTo
}

// WriteDoneRspBuilder can build write done responses.
type WriteDoneRspBuilder struct {
	src, dst sim.Port
	rspTo    string
}

// WithSrc sets the source of the response to build.
func (b WriteDoneRspBuilder) WithSrc(src sim.Port) WriteDoneRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b WriteDoneRspBuilder) WithDst(dst sim.Port) WriteDoneRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request the response replies to.
func (b WriteDoneRspBuilder) WithRspTo(id string) WriteDoneRspBuilder {
	b.rspTo = id
	return b
}

// Build creates a new WriteDoneRsp.
func (b WriteDoneRspBuilder) Build() *WriteDoneRsp {
	r := &WriteDoneRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.RespondTo = b.rspTo

	return r
}
