// Package hwsig models the signal-crossing registers that the original
// hardware uses whenever a level produced in one clock domain is consumed
// in another. A level must pass through a two-stage Synchronizer before its
// value or edges can be trusted; an EdgeDetector then turns the trusted
// level into rising/falling pulses.
package hwsig

// A Synchronizer is a two-stage register pipeline. Sample shifts the raw
// foreign-domain level in and returns the value that the consuming domain
// may trust this cycle.
type Synchronizer struct {
	stage1, stage2 bool
}

// Sample shifts the pipeline by one consumer cycle.
func (s *Synchronizer) Sample(level bool) bool {
	s.stage2 = s.stage1
	s.stage1 = level

	return s.stage2
}

// Level returns the trusted value without shifting.
func (s *Synchronizer) Level() bool {
	return s.stage2
}

// An EdgeDetector compares a level against its value in the previous
// cycle.
type EdgeDetector struct {
	prev bool
}

// Rising returns true when the level changed from low to high since the
// previous call.
func (d *EdgeDetector) Rising(level bool) bool {
	rose := level && !d.prev
	d.prev = level

	return rose
}

// Falling returns true when the level changed from high to low since the
// previous call.
func (d *EdgeDetector) Falling(level bool) bool {
	fell := !level && d.prev
	d.prev = level

	return fell
}
