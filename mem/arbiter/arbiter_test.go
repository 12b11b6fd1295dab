package arbiter

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

var _ = Describe("Burst Arbiter", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		memPort  *MockPort
		bottom   *MockPort
		ports    map[string]*MockPort
		arb      *Comp
	)

	names := []string{"Display", "Loader", "GPU", "Sprite", "Sound", "CPU"}

	latch := func(name string) *mem.ReadBurstReq {
		req := mem.ReadBurstReqBuilder{}.
			WithSrc(ports[name]).
			WithAddress(0x100).
			WithBurstLength(4).
			Build()

		for _, cl := range arb.clients {
			if cl.name == name {
				cl.latched = req
				return req
			}
		}

		panic("no client " + name)
	}

	grantedClient := func() string {
		Expect(arb.session).ToNot(BeNil())
		return arb.clients[arb.session.clientID].name
	}

	finishSession := func() {
		arb.clients[arb.session.clientID].latched = nil
		arb.session = nil
	}

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

		arb = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithMemoryPort(memPort).
			WithDisplayClient("Display").
			WithLoaderClient("Loader").
			AddClient("GPU").
			AddClient("Sprite").
			AddClient("Sound").
			AddClient("CPU").
			Build("Arbiter")

		bottom = NewMockPort(mockCtrl)
		arb.bottomPort = bottom

		ports = make(map[string]*MockPort)
		for i, name := range names {
			ports[name] = NewMockPort(mockCtrl)
			arb.clients[i].port = ports[name]
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should latch a request and forward it to the memory port", func() {
		req := mem.ReadBurstReqBuilder{}.
			WithSrc(ports["GPU"]).
			WithAddress(0x200).
			WithBurstLength(4).
			Build()

		ports["GPU"].EXPECT().RetrieveIncoming().Return(req)
		for _, name := range names {
			ports[name].EXPECT().RetrieveIncoming().Return(nil).AnyTimes()
		}
		bottom.EXPECT().Send(req).Return(nil)

		Expect(arb.Tick()).To(BeTrue())
		Expect(req.Src).To(BeIdenticalTo(sim.Port(bottom)))
		Expect(req.Dst).To(BeIdenticalTo(sim.Port(memPort)))
		Expect(grantedClient()).To(Equal("GPU"))
		Expect(arb.session.origSrc).To(BeIdenticalTo(sim.Port(ports["GPU"])))
	})

	It("should keep the request latched if the memory port is busy", func() {
		req := latch("GPU")

		bottom.EXPECT().Send(req).Return(sim.NewSendError())

		Expect(arb.issueGrant()).To(BeFalse())
		Expect(arb.session).To(BeNil())
		Expect(arb.clients[2].latched).To(BeIdenticalTo(sim.Msg(req)))
		Expect(req.Src).To(BeIdenticalTo(sim.Port(ports["GPU"])))
	})

	It("should grant only one burst at a time", func() {
		latch("GPU")
		latch("CPU")

		bottom.EXPECT().Send(gomock.Any()).Return(nil)

		Expect(arb.issueGrant()).To(BeTrue())
		Expect(arb.issueGrant()).To(BeFalse())
	})

	It("should route the response back to the granted client", func() {
		req := latch("Sound")

		bottom.EXPECT().Send(req).Return(nil)
		Expect(arb.issueGrant()).To(BeTrue())

		rsp := mem.DataReadyRspBuilder{}.
			WithRspTo(req.ID).
			WithData([]uint64{1, 2, 3, 4}).
			Build()
		bottom.EXPECT().PeekIncoming().Return(rsp)
		bottom.EXPECT().RetrieveIncoming().Return(rsp)

		var sent *mem.DataReadyRsp
		ports["Sound"].EXPECT().
			Send(gomock.AssignableToTypeOf(&mem.DataReadyRsp{})).
			Do(func(msg sim.Msg) { sent = msg.(*mem.DataReadyRsp) }).
			Return(nil)

		Expect(arb.completeSession()).To(BeTrue())
		Expect(sent.Dst).To(BeIdenticalTo(sim.Port(ports["Sound"])))
		Expect(sent.RespondTo).To(Equal(req.ID))
		Expect(sent.Data).To(Equal([]uint64{1, 2, 3, 4}))
		Expect(arb.session).To(BeNil())
		Expect(arb.clients[4].latched).To(BeNil())
	})

	It("should keep the session if the client cannot take the response", func() {
		req := latch("Sound")

		bottom.EXPECT().Send(req).Return(nil)
		Expect(arb.issueGrant()).To(BeTrue())

		rsp := mem.DataReadyRspBuilder{}.
			WithRspTo(req.ID).
			Build()
		bottom.EXPECT().PeekIncoming().Return(rsp)
		ports["Sound"].EXPECT().
			Send(gomock.Any()).
			Return(sim.NewSendError())

		Expect(arb.completeSession()).To(BeFalse())
		Expect(arb.session).ToNot(BeNil())
	})

	It("should rotate priority over the steady clients", func() {
		bottom.EXPECT().Send(gomock.Any()).Return(nil).AnyTimes()

		var order []string
		for i := 0; i < 8; i++ {
			for _, name := range []string{"GPU", "Sprite", "Sound", "CPU"} {
				latch(name)
			}

			Expect(arb.issueGrant()).To(BeTrue())
			order = append(order, grantedClient())
			finishSession()
		}

		Expect(order).To(Equal([]string{
			"GPU", "Sprite", "Sound", "CPU",
			"GPU", "Sprite", "Sound", "CPU",
		}))
	})

	It("should grant a continuously latched client within three full rounds",
		func() {
			bottom.EXPECT().Send(gomock.Any()).Return(nil).AnyTimes()

			latch("CPU")

			grantsUntilCPU := 0
			for {
				for _, name := range []string{"GPU", "Sprite", "Sound"} {
					latch(name)
				}

				Expect(arb.issueGrant()).To(BeTrue())
				if grantedClient() == "CPU" {
					break
				}

				grantsUntilCPU++
				finishSession()

				Expect(grantsUntilCPU).To(BeNumerically("<=", 3))
			}
		})

	It("should keep the starvation bound when display grants interleave",
		func() {
			bottom.EXPECT().Send(gomock.Any()).Return(nil).AnyTimes()

			const cpuID = 5

			latch("CPU")

			steadyGrants := 0
			displayGrants := 0
			for {
				for _, name := range []string{"GPU", "Sprite", "Sound"} {
					latch(name)
				}

				// The display contends exactly when CPU is about to get
				// first refusal.
				if arb.steadyOrder[arb.phase] == cpuID && displayGrants < 4 {
					latch("Display")
				}

				Expect(arb.issueGrant()).To(BeTrue())
				name := grantedClient()
				finishSession()

				if name == "CPU" {
					break
				}

				if name == "Display" {
					displayGrants++
					continue
				}

				steadyGrants++
				Expect(steadyGrants).To(BeNumerically("<=", 3))
			}

			Expect(displayGrants).To(Equal(4))
		})

	It("should always check the display client first", func() {
		bottom.EXPECT().Send(gomock.Any()).Return(nil).AnyTimes()

		latch("GPU")
		latch("Loader")
		latch("Display")

		Expect(arb.issueGrant()).To(BeTrue())
		Expect(grantedClient()).To(Equal("Display"))
	})

	It("should check the loader right after the display client", func() {
		bottom.EXPECT().Send(gomock.Any()).Return(nil).AnyTimes()

		latch("GPU")
		latch("Loader")

		Expect(arb.issueGrant()).To(BeTrue())
		Expect(grantedClient()).To(Equal("Loader"))
	})

	It("should report grants through the grant hook", func() {
		hook := &grantCollector{}
		arb.AcceptHook(hook)

		req := latch("Sprite")
		req.Address = 0x40

		bottom.EXPECT().Send(gomock.Any()).Return(nil)

		Expect(arb.issueGrant()).To(BeTrue())
		Expect(hook.grants).To(HaveLen(1))
		Expect(hook.grants[0].Client).To(Equal("Sprite"))
		Expect(hook.grants[0].Address).To(Equal(uint64(0x40)))
		Expect(hook.grants[0].IsWrite).To(BeFalse())
	})
})

type grantCollector struct {
	grants []Grant
}

func (c *grantCollector) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosGrant {
		return
	}

	c.grants = append(c.grants, ctx.Item.(Grant))
}
