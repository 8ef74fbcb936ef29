package config

import (
	"fmt"
	"math/rand"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/voronoi/src/common"
	"github.com/mosaicnetworks/voronoi/src/node"
	"github.com/mosaicnetworks/voronoi/src/topology"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultTopologyFile is the default name of a topology drawn by hand.
	DefaultTopologyFile = "topology.json"
)

// Default configuration values.
const (
	DefaultLogLevel    = "debug"
	DefaultTopology    = "grid"
	DefaultNodes       = 35
	DefaultSeed        = 1
	DefaultStore       = false
	DefaultServiceAddr = "127.0.0.1:8000"
	DefaultNoService   = false
	DefaultDuration    = 0
	DefaultQuiet       = 500 * time.Millisecond
)

// Config contains all the configuration properties of a simulation process.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, is the prefix of per-level log files written next to
	// the standard error output, eg. LogFile_info.log.
	LogFile string `mapstructure:"log-file"`

	// Topology is either the name of a built-in topology (grid, basic,
	// linear, geometric, random) or the path of a JSON topology file.
	Topology string `mapstructure:"topology"`

	// Nodes is the number of sites of the random topology.
	Nodes int `mapstructure:"nodes"`

	// Seed drives the random topology and the random sources of the nodes.
	Seed int64 `mapstructure:"seed"`

	// Store activates persistant snapshots.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// Duration is how long the simulation runs. Zero runs until interrupted.
	Duration time.Duration `mapstructure:"duration"`

	// Quiet is how long the network must stay silent to be quiescent.
	Quiet time.Duration `mapstructure:"quiet"`

	// Node holds the protocol options shared by every node.
	Node node.Config `mapstructure:",squash"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		Topology:    DefaultTopology,
		Nodes:       DefaultNodes,
		Seed:        DefaultSeed,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
		ServiceAddr: DefaultServiceAddr,
		NoService:   DefaultNoService,
		Duration:    DefaultDuration,
		Quiet:       DefaultQuiet,
		Node:        *node.DefaultConfig(),
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Validate checks the process options and the node options.
func (c *Config) Validate() error {
	if c.Nodes <= 0 {
		return fmt.Errorf("nodes must be positive, got %d", c.Nodes)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", c.Duration)
	}
	if c.Quiet <= 0 {
		return fmt.Errorf("quiet must be positive, got %v", c.Quiet)
	}
	return c.Node.Validate()
}

// NodeConfig returns the options of every node, logging through Logger.
func (c *Config) NodeConfig() *node.Config {
	nc := c.Node
	nc.Logger = c.Logger()
	return &nc
}

// LoadTopology resolves Topology into sites and links. A name that is
// neither a built-in topology nor an existing file falls back to the
// topology.json of the data directory.
func (c *Config) LoadTopology() (*topology.Topology, error) {
	rng := rand.New(rand.NewSource(c.Seed))

	for _, name := range topology.Names {
		if strings.EqualFold(c.Topology, name) {
			return topology.ByName(name, c.Nodes, rng)
		}
	}

	path := c.Topology
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(c.DataDir, DefaultTopologyFile)
	}

	top, err := topology.NewJSONTopologyFile(path).Topology()
	if err != nil {
		return nil, fmt.Errorf("loading topology %q: %v", c.Topology, err)
	}
	if top == nil {
		return nil, fmt.Errorf("topology file %s is empty", path)
	}
	return top, nil
}

// Logger returns a formatted logrus Entry, with prefix set to "voronoi".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				logFiles(c.LogFile),
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "voronoi")
}

func logFiles(prefix string) lfshook.PathMap {
	pathMap := lfshook.PathMap{}
	for _, level := range []logrus.Level{
		logrus.DebugLevel,
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
	} {
		pathMap[level] = fmt.Sprintf("%s_%s.log", prefix, level)
	}
	return pathMap
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Voronoi")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Voronoi")
		} else {
			return filepath.Join(home, ".voronoi")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
