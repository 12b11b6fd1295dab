package cavesys

import (
	"log"
	"reflect"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

// A RomReader issues a bounded stream of single-word reads through its
// line cache. It stands in for the CPU and the graphics pipeline as a
// steady source of memory traffic.
type RomReader struct {
	*sim.TickingComponent

	memPort   sim.Port
	cachePort sim.Port

	stride    uint64
	addrRange uint64
	nextAddr  uint64

	target   uint64
	done     uint64
	inflight bool
}

func newRomReader(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	cachePort sim.Port,
	stride, addrRange uint64,
) *RomReader {
	r := new(RomReader)
	r.TickingComponent = sim.NewTickingComponent(name, engine, freq, r)
	r.cachePort = cachePort
	r.stride = stride
	r.addrRange = addrRange
	r.memPort = sim.NewPort(r, 1, 1, name+".MemPort")
	r.AddPort("Mem", r.memPort)

	return r
}

// ReadWords makes the reader issue the given number of reads.
func (r *RomReader) ReadWords(n uint64) {
	r.target += n
	r.TickLater()
}

// WordsRead returns the number of completed reads.
func (r *RomReader) WordsRead() uint64 {
	return r.done
}

// Tick collects the pending reply or issues the next read.
func (r *RomReader) Tick() bool {
	if r.inflight {
		msg := r.memPort.RetrieveIncoming()
		if msg == nil {
			return false
		}

		if _, ok := msg.(*mem.DataReadyRsp); !ok {
			log.Panicf("rom reader received unexpected %s",
				reflect.TypeOf(msg))
		}

		r.inflight = false
		r.done++

		return true
	}

	if r.done >= r.target {
		return false
	}

	req := mem.ReadBurstReqBuilder{}.
		WithSrc(r.memPort).
		WithDst(r.cachePort).
		WithAddress(r.nextAddr).
		WithBurstLength(1).
		Build()

	if err := r.memPort.Send(req); err != nil {
		return false
	}

	r.nextAddr = (r.nextAddr + r.stride) % r.addrRange
	r.inflight = true

	return true
}
