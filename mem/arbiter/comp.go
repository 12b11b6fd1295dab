// Package arbiter multiplexes the burst request streams of several
// clients onto one physical memory port. Exactly one burst is in flight at
// a time and every granted burst runs to completion before the next grant.
//
// Fairness follows a rotating-priority scheme: the steady clients are
// cycled through a set of priority orderings, one rotation step per steady
// grant, so that over a full rotation every steady client has held top
// priority exactly once. A client whose request stays latched is therefore
// granted within numSteadyClients-1 completed rounds. The display-read
// client feeds the screen and is checked before the rotation in every
// phase; the loader client only runs during the bounded startup window and
// is checked right after the display client. Privileged grants do not
// advance the rotation, so they never consume a steady client's phase.
package arbiter

import (
	"log"
	"reflect"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// HookPosGrant marks when the arbiter issues a grant to a client.
var HookPosGrant = &sim.HookPos{Name: "Arbiter Grant"}

// A Grant describes one granted burst. It is attached to HookPosGrant
// invocations as the hook context item.
type Grant struct {
	Time        sim.VTimeInSec
	Client      string
	Address     uint64
	BurstLength int
	IsWrite     bool
}

const noClient = -1

type client struct {
	id   int
	name string
	port sim.Port

	// latched holds an asserted request until its burst fully completes.
	// A one-cycle request pulse is enough; the client does not need to
	// hold its request line while waiting for the grant.
	latched sim.Msg

	grants uint64
}

// A session is the transient state of the one burst currently occupying
// the memory port.
type session struct {
	clientID int
	reqID    string
	origSrc  sim.Port
}

// Comp is a burst arbiter.
type Comp struct {
	*sim.TickingComponent

	bottomPort sim.Port
	memPort    sim.Port

	clients         []*client
	displayClientID int
	loaderClientID  int

	// steadyOrder lists the clients subject to rotation, in registration
	// order. phase selects which of them currently has first refusal.
	steadyOrder []int
	phase       int

	session *session
}

// Tick forwards one completed burst response, latches newly asserted
// requests, and issues at most one grant.
func (c *Comp) Tick() bool {
	madeProgress := c.completeSession()
	madeProgress = c.latchRequests() || madeProgress
	madeProgress = c.issueGrant() || madeProgress

	return madeProgress
}

// completeSession routes the response for the in-flight burst back to the
// client that owns it and releases the memory port.
func (c *Comp) completeSession() bool {
	if c.session == nil {
		return false
	}

	msg := c.bottomPort.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(sim.Rsp)
	if !ok {
		log.Panicf("arbiter received non-response %s", reflect.TypeOf(msg))
	}

	if rsp.GetRspTo() != c.session.reqID {
		log.Panicf("response %s does not match session request %s",
			rsp.GetRspTo(), c.session.reqID)
	}

	cl := c.clients[c.session.clientID]
	if err := cl.port.Send(c.redirectRsp(rsp, cl)); err != nil {
		return false
	}

	c.bottomPort.RetrieveIncoming()
	cl.latched = nil
	c.session = nil

	return true
}

func (c *Comp) redirectRsp(rsp sim.Rsp, cl *client) sim.Msg {
	switch rsp := rsp.(type) {
	case *mem.DataReadyRsp:
		return mem.DataReadyRspBuilder{}.
			WithSrc(cl.port).
			WithDst(c.session.origSrc).
			WithRspTo(rsp.RespondTo).
			WithData(rsp.Data).
			Build()
	case *mem.WriteDoneRsp:
		return mem.WriteDoneRspBuilder{}.
			WithSrc(cl.port).
			WithDst(c.session.origSrc).
			WithRspTo(rsp.RespondTo).
			Build()
	default:
		log.Panicf("cannot redirect response of type %s", reflect.TypeOf(rsp))
	}

	return nil
}

// latchRequests moves newly arrived requests into the per-client latches.
// A latch keeps holding its request even while the client's port buffer
// empties, so a request pulse is never lost.
func (c *Comp) latchRequests() bool {
	madeProgress := false

	for _, cl := range c.clients {
		if cl.latched != nil {
			continue
		}

		msg := cl.port.RetrieveIncoming()
		if msg == nil {
			continue
		}

		c.reqMustBeBurst(msg)
		cl.latched = msg
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) reqMustBeBurst(msg sim.Msg) {
	switch msg.(type) {
	case *mem.ReadBurstReq, *mem.WriteBurstReq:
	default:
		log.Panicf("arbiter cannot serve request of type %s",
			reflect.TypeOf(msg))
	}
}

// issueGrant picks the next client and forwards its latched request to the
// memory port. The display client is checked first in every phase, then
// the loader, then the steady clients in the ordering the current phase
// selects.
func (c *Comp) issueGrant() bool {
	if c.session != nil {
		return false
	}

	id := c.pickClient()
	if id == noClient {
		return false
	}

	cl := c.clients[id]
	req := cl.latched

	origSrc := req.Meta().Src
	req.Meta().Src = c.bottomPort
	req.Meta().Dst = c.memPort

	if err := c.bottomPort.Send(req); err != nil {
		req.Meta().Src = origSrc
		req.Meta().Dst = cl.port
		return false
	}

	c.session = &session{
		clientID: id,
		reqID:    req.Meta().ID,
		origSrc:  origSrc,
	}
	cl.grants++
	if id != c.displayClientID && id != c.loaderClientID {
		c.phase = (c.phase + 1) % len(c.steadyOrder)
	}

	c.invokeGrantHook(cl, req)

	return true
}

func (c *Comp) pickClient() int {
	if c.hasLatched(c.displayClientID) {
		return c.displayClientID
	}

	if c.hasLatched(c.loaderClientID) {
		return c.loaderClientID
	}

	for i := 0; i < len(c.steadyOrder); i++ {
		id := c.steadyOrder[(c.phase+i)%len(c.steadyOrder)]
		if c.clients[id].latched != nil {
			return id
		}
	}

	return noClient
}

func (c *Comp) hasLatched(id int) bool {
	return id != noClient && c.clients[id].latched != nil
}

func (c *Comp) invokeGrantHook(cl *client, req sim.Msg) {
	if c.NumHooks() == 0 {
		return
	}

	grant := Grant{
		Time:   c.CurrentTime(),
		Client: cl.name,
	}

	switch req := req.(type) {
	case *mem.ReadBurstReq:
		grant.Address = req.Address
		grant.BurstLength = req.BurstLength
	case *mem.WriteBurstReq:
		grant.Address = req.Address
		grant.BurstLength = req.BurstLength()
		grant.IsWrite = true
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosGrant,
		Item:   grant,
	})
}

// ClientPort returns the arbiter-side port of the named client.
func (c *Comp) ClientPort(name string) sim.Port {
	for _, cl := range c.clients {
		if cl.name == name {
			return cl.port
		}
	}

	panic("client " + name + " is not registered on " + c.Name())
}

// GrantCount returns how many bursts the named client has been granted.
func (c *Comp) GrantCount(name string) uint64 {
	for _, cl := range c.clients {
		if cl.name == name {
			return cl.grants
		}
	}

	panic("client " + name + " is not registered on " + c.Name())
}

// ClientNames returns the registered client names in registration order.
func (c *Comp) ClientNames() []string {
	names := make([]string, len(c.clients))
	for i, cl := range c.clients {
		names[i] = cl.name
	}

	return names
}
