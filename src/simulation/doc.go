// Package simulation runs a whole network of nodes inside one process.
//
// Every site of a topology gets its own InmemTransport and Node, links are
// connected in topology order, and each node runs its loop in a dedicated
// goroutine. Sites move when their MobileFeed is told to, which is how the
// command line and the tests drag sites around.
package simulation
