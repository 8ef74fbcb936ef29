package net

import (
	"bytes"
	"fmt"

	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/ugorji/go/codec"
)

// MessageKind ...
type MessageKind uint8

const (
	// Presence announces a site, either on arrival or periodically.
	Presence MessageKind = iota
	// Absence announces the departure of a site.
	Absence
	// Movement announces a new position for a known site.
	Movement
)

func (k MessageKind) String() string {
	switch k {
	case Presence:
		return "Presence"
	case Absence:
		return "Absence"
	case Movement:
		return "Movement"
	default:
		return "Unknown"
	}
}

// Message is an event about its origin site. Origin and Target are snapshots
// taken when the message is created, so moving the live site afterwards does
// not change a message in flight. Remaining never exceeds Budget.
type Message struct {
	Kind      MessageKind
	Origin    *site.Site
	Time      uint64
	Budget    int
	Remaining int
	// Target is nil for broadcasts.
	Target *site.Site
}

// NewBroadcast originates a message for every site.
func NewBroadcast(origin *site.Site, time uint64, kind MessageKind, budget int) *Message {
	return &Message{
		Kind:      kind,
		Origin:    origin.Copy(),
		Time:      time,
		Budget:    budget,
		Remaining: budget,
	}
}

// NewUnicast originates a message addressed to target.
func NewUnicast(origin *site.Site, time uint64, kind MessageKind, target *site.Site, budget int) *Message {
	m := NewBroadcast(origin, time, kind, budget)
	m.Target = target.Copy()
	return m
}

// Copy returns a deep copy of m.
func (m *Message) Copy() *Message {
	c := *m
	if m.Origin != nil {
		c.Origin = m.Origin.Copy()
	}
	if m.Target != nil {
		c.Target = m.Target.Copy()
	}
	return &c
}

// IsAlive reports whether m may still be retransmitted.
func (m *Message) IsAlive() bool {
	return m.Remaining > 0
}

// NextHop counts one retransmission.
func (m *Message) NextHop() {
	if m.Remaining > 0 {
		m.Remaining--
	}
}

// Hops returns the number of retransmissions m went through.
func (m *Message) Hops() int {
	return m.Budget - m.Remaining
}

// IsBroadcast ...
func (m *Message) IsBroadcast() bool {
	return m.Target == nil
}

// IsUnicast ...
func (m *Message) IsUnicast() bool {
	return m.Target != nil
}

// IsTo reports whether m is a unicast addressed to s.
func (m *Message) IsTo(s *site.Site) bool {
	return m.Target != nil && m.Target.Equals(s)
}

// IsNewerThan reports whether m was sent strictly after o by the same origin.
func (m *Message) IsNewerThan(o *Message) bool {
	return m.Origin.Equals(o.Origin) && m.Time > o.Time
}

func (m *Message) String() string {
	to := "nil"
	if m.Target != nil {
		to = m.Target.String()
	}
	return fmt.Sprintf("Msg[kind=%s from=%s to=%s hops=%d]", m.Kind, m.Origin, to, m.Hops())
}

// Marshal - json encoding of Message
func (m *Message) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(m); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (m *Message) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(m); err != nil {
		return err
	}

	if m.Origin == nil {
		return fmt.Errorf("message has no origin")
	}

	if m.Remaining > m.Budget || m.Remaining < 0 {
		return fmt.Errorf("remaining hops %d out of budget %d", m.Remaining, m.Budget)
	}

	return nil
}
