package node

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/mosaicnetworks/voronoi/src/common"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPresenceDelay is the mean interval between two periodic
	// Presence announcements.
	DefaultPresenceDelay = 10000 * time.Millisecond
	// DefaultMovementDelay is the minimum interval between two Movement
	// announcements.
	DefaultMovementDelay = 1000 * time.Millisecond
	// DefaultCleanupDelay is the interval between two cleanups of irrelevant
	// sites.
	DefaultCleanupDelay = 15000 * time.Millisecond
	// DefaultMessageHops is the hop budget of originated messages.
	DefaultMessageHops = 10
	// DefaultPollInterval is the pause between two idle iterations of Run.
	DefaultPollInterval = time.Millisecond
)

// Config contains the per-node options of the protocol.
type Config struct {
	// IgnoreIrrelevant refuses, on arrival, remote sites that cannot affect
	// the cell of the node.
	IgnoreIrrelevant bool `mapstructure:"ignore-irrelevant"`

	// CleanupPeriodically prunes irrelevant sites every CleanupDelay.
	CleanupPeriodically bool `mapstructure:"cleanup-periodically"`

	// ForwardPresence answers a broadcast that introduces a new site with a
	// Presence unicast towards it.
	ForwardPresence bool `mapstructure:"forward-presence"`

	// FloodOnForwardFail floods unicast messages for which no forwarding
	// channel is known.
	FloodOnForwardFail bool `mapstructure:"flood-on-forward-fail"`

	// AnnouncePeriodically re-announces presence every PresenceDelay on
	// average.
	AnnouncePeriodically bool `mapstructure:"announce-periodically"`

	PresenceDelay time.Duration `mapstructure:"presence-delay"`
	MovementDelay time.Duration `mapstructure:"movement-delay"`
	CleanupDelay  time.Duration `mapstructure:"cleanup-delay"`

	// MessageHops is the hop budget of the messages this node originates.
	MessageHops int `mapstructure:"message-hops"`

	// PollInterval is how long Run sleeps after an iteration that did
	// nothing. Zero means never sleep.
	PollInterval time.Duration `mapstructure:"poll-interval"`

	// Clock is used by the timers. It defaults to time.Now.
	Clock func() time.Time `mapstructure:"-"`

	// Rand drives the presence jitter and the random flood order.
	Rand *rand.Rand `mapstructure:"-"`

	Logger *logrus.Entry `mapstructure:"-"`
}

// DefaultConfig returns a Config with the default options.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		IgnoreIrrelevant:     false,
		CleanupPeriodically:  false,
		ForwardPresence:      true,
		FloodOnForwardFail:   true,
		AnnouncePeriodically: true,
		PresenceDelay:        DefaultPresenceDelay,
		MovementDelay:        DefaultMovementDelay,
		CleanupDelay:         DefaultCleanupDelay,
		MessageHops:          DefaultMessageHops,
		PollInterval:         DefaultPollInterval,
		Logger:               logrus.NewEntry(logger),
	}
}

// TestConfig returns a default Config logging into t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestEntry(t, logrus.DebugLevel)
	config.Rand = rand.New(rand.NewSource(1))
	return config
}

// Validate checks that the delays and the hop budget are usable.
func (c *Config) Validate() error {
	if c.PresenceDelay < 2*time.Millisecond {
		return fmt.Errorf("presence-delay must be at least 2ms, got %v", c.PresenceDelay)
	}
	if c.MovementDelay <= 0 {
		return fmt.Errorf("movement-delay must be positive, got %v", c.MovementDelay)
	}
	if c.CleanupDelay <= 0 {
		return fmt.Errorf("cleanup-delay must be positive, got %v", c.CleanupDelay)
	}
	if c.MessageHops <= 0 {
		return fmt.Errorf("message-hops must be positive, got %d", c.MessageHops)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll-interval must not be negative, got %v", c.PollInterval)
	}
	return nil
}

func (c *Config) clock() func() time.Time {
	if c.Clock == nil {
		return time.Now
	}
	return c.Clock
}

func (c *Config) rand() *rand.Rand {
	if c.Rand == nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c.Rand
}

func (c *Config) logger() *logrus.Entry {
	if c.Logger == nil {
		return DefaultConfig().Logger
	}
	return c.Logger
}
