package sim

// A Connection transfers messages between the ports plugged into it.
type Connection interface {
	Named
	Hookable

	// PlugIn connects a port to the connection.
	PlugIn(port Port)

	// Unplug detaches a port from the connection.
	Unplug(port Port)

	// NotifyAvailable is called by a port to notify the connection that
	// the port can receive messages again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port to notify the connection that a
	// message is waiting in the port's outgoing buffer.
	NotifySend()
}
