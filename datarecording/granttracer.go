package datarecording

import (
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem/arbiter"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// A GrantEntry is one recorded arbiter grant.
type GrantEntry struct {
	Time        float64
	Arbiter     string
	Client      string
	Address     uint64
	BurstLength int
	IsWrite     bool
}

// A GrantTracer records every grant the hooked arbiters issue.
type GrantTracer struct {
	recorder  DataRecorder
	tableName string
}

// NewGrantTracer creates a tracer that writes grants into the named
// table.
func NewGrantTracer(recorder DataRecorder, tableName string) *GrantTracer {
	t := &GrantTracer{
		recorder:  recorder,
		tableName: tableName,
	}

	recorder.CreateTable(tableName, GrantEntry{})

	return t
}

// Trace attaches the tracer to an arbiter.
func (t *GrantTracer) Trace(arb *arbiter.Comp) {
	arb.AcceptHook(t)
}

// Func records one grant.
func (t *GrantTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != arbiter.HookPosGrant {
		return
	}

	grant := ctx.Item.(arbiter.Grant)

	t.recorder.InsertData(t.tableName, GrantEntry{
		Time:        float64(grant.Time),
		Arbiter:     ctx.Domain.(sim.Named).Name(),
		Client:      grant.Client,
		Address:     grant.Address,
		BurstLength: grant.BurstLength,
		IsWrite:     grant.IsWrite,
	})
}
