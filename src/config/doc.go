// Package config defines the configuration of a simulation process.
//
// Regardless of how a simulation is started, directly from Go code or from
// the command line, it uses the Config object defined in this package. The
// protocol options of every node are embedded in it. On top of these options
// the process relies on a data directory, defined by Config.DataDir, where it
// looks for a few additional files:
//
//  voronoi.toml // (optional) configuration file, .json and .yaml also work.
//  topology.json // (optional) a JSON file describing sites and links.
//  badger_db // the snapshot database, when --store is set.
package config
