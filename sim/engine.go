package sim

// TimeTeller can tell the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// A SimulationEndHandler is notified when the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine schedules events and drives the simulation forward by
// triggering them in time order.
type Engine interface {
	Hookable
	TimeTeller

	// Schedule registers an event to happen in the future.
	Schedule(e Event)

	// Run triggers all scheduled events in order. It returns when no event
	// is left in the queue.
	Run() error

	// Pause temporarily prevents the engine from triggering more events.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	// RegisterSimulationEndHandler registers a handler to be invoked when
	// Finished is called.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished is called after the simulation ends, invoking all the
	// registered SimulationEndHandlers.
	Finished()
}
