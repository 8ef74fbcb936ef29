// Package net carries protocol messages between sites.
//
// A Message is a single tagged record announcing the presence, absence or
// movement of its origin site. Messages travel over a Transport, which
// exposes the numbered inbound and outbound channels of one node. Reception
// is non-blocking and a node drains at most one message per channel per
// iteration of its loop.
//
// Inmem
//
// InmemTransport is the in-process implementation used by the simulation and
// the tests. Every directed link is an unbounded FIFO of encoded messages, so
// each hop delivers a deep copy and no two nodes ever share a message.
package net
