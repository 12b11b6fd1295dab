package linecache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

var _ = Describe("Line Cache", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		memPort  *MockPort
		top      *MockPort
		bottom   *MockPort
		client   *MockPort
		cache    *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().
			CurrentTime().
			Return(sim.VTimeInSec(10)).
			AnyTimes()
		engine.EXPECT().
			Schedule(gomock.AssignableToTypeOf(sim.TickEvent{})).
			AnyTimes()

		memPort = NewMockPort(mockCtrl)

		cache = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithMemoryPort(memPort).
			WithDepth(4).
			WithLineWords(4).
			WithAddressOffset(0x1000).
			WithWrapping().
			WithPackingWrites().
			Build("Cache")

		top = NewMockPort(mockCtrl)
		bottom = NewMockPort(mockCtrl)
		client = NewMockPort(mockCtrl)
		cache.topPort = top
		cache.bottomPort = bottom
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fill on a miss, stall the client, then hit", func() {
		req := mem.ReadBurstReqBuilder{}.
			WithSrc(client).
			WithAddress(6).
			WithBurstLength(1).
			Build()

		// Miss. The fill burst is line aligned, critical word first, and
		// the client request stays in the incoming buffer.
		top.EXPECT().PeekIncoming().Return(req).Times(2)
		bottom.EXPECT().PeekIncoming().Return(nil)

		var fill *mem.ReadBurstReq
		bottom.EXPECT().
			Send(gomock.AssignableToTypeOf(&mem.ReadBurstReq{})).
			Do(func(msg sim.Msg) { fill = msg.(*mem.ReadBurstReq) }).
			Return(nil)

		Expect(cache.Tick()).To(BeTrue())
		Expect(fill.Address).To(Equal(uint64(0x1004)))
		Expect(fill.BurstLength).To(Equal(4))
		Expect(fill.Wrap).To(BeTrue())
		Expect(fill.WrapOffset).To(Equal(2))
		Expect(cache.state).To(Equal(cacheWaitFill))

		// While the fill is in flight, no new client message is taken.
		Expect(cache.acceptClientMsg()).To(BeFalse())

		// The burst arrives in wrapped order and is unwrapped into the
		// line, then the stalled request is answered.
		fillRsp := mem.DataReadyRspBuilder{}.
			WithRspTo(fill.ID).
			WithData([]uint64{30, 40, 10, 20}).
			Build()
		bottom.EXPECT().PeekIncoming().Return(fillRsp)
		bottom.EXPECT().RetrieveIncoming().Return(fillRsp)

		var reply *mem.DataReadyRsp
		top.EXPECT().
			Send(gomock.AssignableToTypeOf(&mem.DataReadyRsp{})).
			Do(func(msg sim.Msg) { reply = msg.(*mem.DataReadyRsp) }).
			Return(nil)
		top.EXPECT().RetrieveIncoming().Return(req)
		top.EXPECT().PeekIncoming().Return(nil)

		Expect(cache.Tick()).To(BeTrue())
		Expect(reply.RespondTo).To(Equal(req.ID))
		Expect(reply.Dst).To(BeIdenticalTo(sim.Port(client)))
		Expect(reply.Data).To(Equal([]uint64{30}))

		// A second read of the same line hits without touching memory.
		req2 := mem.ReadBurstReqBuilder{}.
			WithSrc(client).
			WithAddress(5).
			WithBurstLength(2).
			Build()
		bottom.EXPECT().PeekIncoming().Return(nil)
		top.EXPECT().PeekIncoming().Return(req2)

		var reply2 *mem.DataReadyRsp
		top.EXPECT().
			Send(gomock.AssignableToTypeOf(&mem.DataReadyRsp{})).
			Do(func(msg sim.Msg) { reply2 = msg.(*mem.DataReadyRsp) }).
			Return(nil)
		top.EXPECT().RetrieveIncoming().Return(req2)

		Expect(cache.Tick()).To(BeTrue())
		Expect(reply2.Data).To(Equal([]uint64{20, 30}))
	})

	It("should evict the mapped line when a miss replaces it", func() {
		cache.lines[1].valid = true
		cache.lines[1].tag = 4

		// Address 20 maps to the same line as address 4 with 4 lines of
		// 4 words.
		req := mem.ReadBurstReqBuilder{}.
			WithSrc(client).
			WithAddress(20).
			WithBurstLength(1).
			Build()

		top.EXPECT().PeekIncoming().Return(req)
		bottom.EXPECT().
			Send(gomock.AssignableToTypeOf(&mem.ReadBurstReq{})).
			Return(nil)

		Expect(cache.acceptClientMsg()).To(BeTrue())
		Expect(cache.lines[1].valid).To(BeFalse())
		Expect(cache.lines[1].tag).To(Equal(uint64(20)))
	})

	It("should keep the request latched if memory refuses the fill", func() {
		req := mem.ReadBurstReqBuilder{}.
			WithSrc(client).
			WithAddress(6).
			WithBurstLength(1).
			Build()

		top.EXPECT().PeekIncoming().Return(req)
		bottom.EXPECT().
			Send(gomock.Any()).
			Return(sim.NewSendError())

		Expect(cache.acceptClientMsg()).To(BeFalse())
		Expect(cache.state).To(Equal(cacheIdle))
	})

	It("should pack narrow writes and flush the full slot in one burst", func() {
		words := []uint64{0x11, 0x22, 0x33, 0x44}
		masks := []uint8{0xff, 0xff, 0x0f, 0xff}

		for i := range words {
			req := mem.WriteBurstReqBuilder{}.
				WithSrc(client).
				WithAddress(uint64(8 + i)).
				WithData([]uint64{words[i]}).
				WithByteMask([]uint8{masks[i]}).
				Build()

			top.EXPECT().PeekIncoming().Return(req)
			top.EXPECT().
				Send(gomock.AssignableToTypeOf(&mem.WriteDoneRsp{})).
				Return(nil)
			top.EXPECT().RetrieveIncoming().Return(req)

			Expect(cache.acceptClientMsg()).To(BeTrue())
		}

		Expect(cache.state).To(Equal(cacheFlushPack))

		var wb *mem.WriteBurstReq
		bottom.EXPECT().
			Send(gomock.AssignableToTypeOf(&mem.WriteBurstReq{})).
			Do(func(msg sim.Msg) { wb = msg.(*mem.WriteBurstReq) }).
			Return(nil)

		Expect(cache.flushPack()).To(BeTrue())
		Expect(wb.Address).To(Equal(uint64(0x1008)))
		Expect(wb.Data).To(Equal(words))
		Expect(wb.ByteMask).To(Equal(masks))
		Expect(cache.state).To(Equal(cacheWaitWriteDone))

		done := mem.WriteDoneRspBuilder{}.
			WithRspTo(wb.ID).
			Build()
		bottom.EXPECT().PeekIncoming().Return(done)
		bottom.EXPECT().RetrieveIncoming().Return(done)

		Expect(cache.handleBottomRsp()).To(BeTrue())
		Expect(cache.state).To(Equal(cacheIdle))
		Expect(cache.packData).To(BeEmpty())
	})

	It("should never flush a partial pack on its own", func() {
		for i := 0; i < 2; i++ {
			req := mem.WriteBurstReqBuilder{}.
				WithSrc(client).
				WithAddress(uint64(i)).
				WithData([]uint64{uint64(i)}).
				Build()

			top.EXPECT().PeekIncoming().Return(req)
			top.EXPECT().
				Send(gomock.AssignableToTypeOf(&mem.WriteDoneRsp{})).
				Return(nil)
			top.EXPECT().RetrieveIncoming().Return(req)

			Expect(cache.acceptClientMsg()).To(BeTrue())
		}

		// An idle tick must not touch the memory side.
		top.EXPECT().PeekIncoming().Return(nil)
		bottom.EXPECT().PeekIncoming().Return(nil)

		Expect(cache.Tick()).To(BeFalse())
		Expect(cache.packData).To(HaveLen(2))
	})
})
