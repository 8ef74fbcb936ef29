package net

import "errors"

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrChannelRange is returned when a channel index does not exist.
	ErrChannelRange = errors.New("channel index out of range")
)

// Transport provides the numbered channels that connect a node to its
// neighbours. Inbound channel i and outbound channel i lead to the same
// neighbour.
type Transport interface {

	// InDegree returns the number of inbound channels.
	InDegree() int

	// OutDegree returns the number of outbound channels.
	OutDegree() int

	// Receive takes at most one message from inbound channel i without
	// blocking. It returns nil if the channel is empty.
	Receive(i int) (*Message, error)

	// Send queues m on outbound channel i. The receiver gets its own copy.
	Send(i int, m *Message) error

	// Close permanently closes a transport. Messages already queued towards
	// it are dropped.
	Close() error
}
