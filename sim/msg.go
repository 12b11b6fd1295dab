package sim

// A Msg is a piece of information transferred between components.
type Msg interface {
	Meta() *MsgMeta
}

// MsgMeta is the meta data attached to every message.
type MsgMeta struct {
	ID       string
	Src, Dst Port
}

// Rsp is a message that indicates the completion of a request.
type Rsp interface {
	Msg

	// GetRspTo returns the ID of the request that the response replies to.
	GetRspTo() string
}

// A SendError is returned when a port cannot accept a message.
type SendError struct{}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	return &SendError{}
}
