package net

import (
	"crypto/rand"
	"fmt"
	"sync"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// link is one directed FIFO between two transports.
type link struct {
	sync.Mutex
	queue  [][]byte
	closed bool
}

func (l *link) push(data []byte) {
	l.Lock()
	defer l.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, data)
}

func (l *link) pop() []byte {
	l.Lock()
	defer l.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	data := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return data
}

func (l *link) size() int {
	l.Lock()
	defer l.Unlock()
	return len(l.queue)
}

func (l *link) close() {
	l.Lock()
	defer l.Unlock()
	l.closed = true
	l.queue = nil
}

// InmemTransport Implements the Transport interface, to allow sites to be
// simulated in-memory without going over a network. Links have no capacity
// limit, so Send never blocks.
type InmemTransport struct {
	sync.RWMutex
	localAddr string
	in        []*link
	out       []*link
	peers     []string
	shutdown  bool
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		localAddr: addr,
	}
	return addr, trans
}

// Connect creates the two directed links between a and b and returns the
// channel index of the new neighbour on each side.
func Connect(a, b *InmemTransport) (int, int) {
	ab := &link{}
	ba := &link{}

	a.Lock()
	ia := len(a.out)
	a.out = append(a.out, ab)
	a.in = append(a.in, ba)
	a.peers = append(a.peers, b.localAddr)
	a.Unlock()

	b.Lock()
	ib := len(b.out)
	b.out = append(b.out, ba)
	b.in = append(b.in, ab)
	b.peers = append(b.peers, a.localAddr)
	b.Unlock()

	return ia, ib
}

// LocalAddr returns the address of the transport.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// Peer returns the address of the neighbour on channel c.
func (i *InmemTransport) Peer(c int) string {
	i.RLock()
	defer i.RUnlock()
	if c < 0 || c >= len(i.peers) {
		return ""
	}
	return i.peers[c]
}

// InDegree implements the Transport interface.
func (i *InmemTransport) InDegree() int {
	i.RLock()
	defer i.RUnlock()
	return len(i.in)
}

// OutDegree implements the Transport interface.
func (i *InmemTransport) OutDegree() int {
	i.RLock()
	defer i.RUnlock()
	return len(i.out)
}

// Receive implements the Transport interface.
func (i *InmemTransport) Receive(c int) (*Message, error) {
	i.RLock()
	if i.shutdown {
		i.RUnlock()
		return nil, ErrTransportShutdown
	}
	if c < 0 || c >= len(i.in) {
		i.RUnlock()
		return nil, ErrChannelRange
	}
	l := i.in[c]
	i.RUnlock()

	data := l.pop()
	if data == nil {
		return nil, nil
	}

	m := new(Message)
	if err := m.Unmarshal(data); err != nil {
		return nil, err
	}
	return m, nil
}

// Send implements the Transport interface.
func (i *InmemTransport) Send(c int, m *Message) error {
	i.RLock()
	if i.shutdown {
		i.RUnlock()
		return ErrTransportShutdown
	}
	if c < 0 || c >= len(i.out) {
		i.RUnlock()
		return ErrChannelRange
	}
	l := i.out[c]
	i.RUnlock()

	data, err := m.Marshal()
	if err != nil {
		return err
	}
	l.push(data)
	return nil
}

// Pending returns the number of messages waiting on the inbound channels.
func (i *InmemTransport) Pending() int {
	i.RLock()
	defer i.RUnlock()
	n := 0
	for _, l := range i.in {
		n += l.size()
	}
	return n
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.Lock()
	defer i.Unlock()
	i.shutdown = true
	for _, l := range i.in {
		l.close()
	}
	return nil
}
