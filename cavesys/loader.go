package cavesys

import (
	"log"
	"reflect"

	"github.com/Ali-Hill/Arcade-Cave-MiSTer/mem"
	"github.com/Ali-Hill/Arcade-Cave-MiSTer/sim"
)

type loadChunk struct {
	addr  uint64
	words []uint64
}

// A Loader streams boot data into memory through the packing write
// buffer, one narrow write per cycle. It only runs while enabled; data
// still sitting in a partial pack when the loader is disabled is lost.
type Loader struct {
	*sim.TickingComponent

	memPort   sim.Port
	cachePort sim.Port

	enabled bool
	chunks  []loadChunk
	cursor  int

	outstanding int
	wordsLoaded uint64
}

func newLoader(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	cachePort sim.Port,
) *Loader {
	l := new(Loader)
	l.TickingComponent = sim.NewTickingComponent(name, engine, freq, l)
	l.cachePort = cachePort
	l.memPort = sim.NewPort(l, 4, 1, name+".MemPort")
	l.AddPort("Mem", l.memPort)

	return l
}

// AddData queues words to be streamed to the given word address.
func (l *Loader) AddData(addr uint64, words []uint64) {
	l.chunks = append(l.chunks, loadChunk{addr: addr, words: words})
}

// Enable starts the loader.
func (l *Loader) Enable() {
	l.enabled = true
	l.TickLater()
}

// Disable stops the loader immediately. Words already handed to the
// packing buffer but not yet flushed are lost.
func (l *Loader) Disable() {
	l.enabled = false
}

// Done returns true once every queued word has been written and acked.
func (l *Loader) Done() bool {
	return len(l.chunks) == 0 && l.outstanding == 0
}

// WordsLoaded returns the number of words acked so far.
func (l *Loader) WordsLoaded() uint64 {
	return l.wordsLoaded
}

// Tick collects write acks and streams the next word.
func (l *Loader) Tick() bool {
	madeProgress := l.collectAcks()

	if !l.enabled || len(l.chunks) == 0 {
		return madeProgress
	}

	chunk := &l.chunks[0]
	req := mem.WriteBurstReqBuilder{}.
		WithSrc(l.memPort).
		WithDst(l.cachePort).
		WithAddress(chunk.addr + uint64(l.cursor)).
		WithData([]uint64{chunk.words[l.cursor]}).
		Build()

	if err := l.memPort.Send(req); err != nil {
		return madeProgress
	}

	l.outstanding++
	l.cursor++
	if l.cursor == len(chunk.words) {
		l.chunks = l.chunks[1:]
		l.cursor = 0
	}

	return true
}

func (l *Loader) collectAcks() bool {
	madeProgress := false

	for {
		msg := l.memPort.RetrieveIncoming()
		if msg == nil {
			return madeProgress
		}

		if _, ok := msg.(*mem.WriteDoneRsp); !ok {
			log.Panicf("loader received unexpected %s", reflect.TypeOf(msg))
		}

		l.outstanding--
		l.wordsLoaded++
		madeProgress = true
	}
}
