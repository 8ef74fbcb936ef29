// Package store persists point-in-time snapshots of simulated nodes so that a
// run can be inspected after the processes are gone.
//
// InmemStore keeps snapshots in a map and is used by tests and runs without
// a data directory. BadgerStore writes them to a Badger database, one key per
// node.
package store
