// Package node implements the control loop of a site.
//
// A Node owns one originating site, its local diagram (a diagram.Controller)
// and a History of what it has heard from every other site. Nodes only talk
// to their direct neighbours over the numbered channels of a net.Transport and
// never block: each iteration of the loop polls three timers, drains at most
// one message from every inbound channel and retransmits the news.
//
// Dissemination
//
// Broadcast messages are flooded on every outbound channel except the one they
// arrived on, one hop of their budget at a time. Unicast messages follow the
// cheapest channel recorded in the History for their target, and may fall
// back to flooding. A History accepts a message only if it is newer than the
// last one from the same origin, so duplicates die out on their own.
//
// Timers
//
// A node announces its movements at most once per movement delay, re-announces
// its presence after a jittered presence delay, and, when enabled, prunes the
// sites that no longer affect its own cell every cleanup delay. Timers are
// ControlTimers polled from the loop. A node in the Running state runs until
// its context is cancelled, then moves through Terminating to Stopped after
// broadcasting its Absence.
package node
