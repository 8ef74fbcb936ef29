package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/voronoi/src/service"
	"github.com/mosaicnetworks/voronoi/src/simulation"
	"github.com/mosaicnetworks/voronoi/src/store"
	"github.com/mosaicnetworks/voronoi/src/telemetry"
	"github.com/mosaicnetworks/voronoi/src/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewRunCmd returns the command that runs a simulation
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a simulated network",
		PreRunE: loadConfig,
		RunE:    runSimulation,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runSimulation(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	telemetry.SetBuildInfo(version.Version)

	top, err := _config.LoadTopology()
	if err != nil {
		logger.Error("Cannot load topology:", err)
		return err
	}

	sim, err := simulation.New(top, _config.NodeConfig(), _config.Seed)
	if err != nil {
		logger.Error("Cannot build simulation:", err)
		return err
	}

	var st store.Store
	if _config.Store {
		st, err = store.LoadOrCreateBadgerStore(_config.DatabaseDir, logger)
		if err != nil {
			logger.Error("Cannot open snapshot store:", err)
			return err
		}
		defer st.Close()
	}

	if !_config.NoService {
		go service.NewService(_config.ServiceAddr, sim, logger).Serve()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, _config.Duration)
		defer cancel()
	}

	if err := sim.Start(context.Background()); err != nil {
		return err
	}

	// A failed node ends the run without waiting for the deadline. Stop then
	// returns its error.
	switch err := sim.WaitQuiescent(ctx, _config.Quiet); {
	case err == nil:
		logger.WithField("quiet", _config.Quiet).Info("Network is quiescent")
		<-ctx.Done()
	case err != ctx.Err():
		logger.WithError(err).Error("Simulation failed")
	}

	if st != nil {
		if err := sim.Save(st); err != nil {
			logger.WithError(err).Error("Saving snapshots")
		} else {
			logger.WithField("db", st.StorePath()).Info("Saved snapshots")
		}
	}

	for _, s := range sim.Statuses() {
		fmt.Println(s)
	}

	return sim.Stop()
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Prefix of per-level log files")

	// Network
	cmd.Flags().String("topology", _config.Topology, "grid, basic, linear, geometric, random or a JSON file")
	cmd.Flags().Int("nodes", _config.Nodes, "Number of sites of the random topology")
	cmd.Flags().Int64("seed", _config.Seed, "Seed of the random topology and of the nodes")
	cmd.Flags().Duration("duration", _config.Duration, "How long to run, 0 runs until interrupted")
	cmd.Flags().Duration("quiet", _config.Quiet, "Silence required to consider the network quiescent")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.NoService, "Disable HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Save node snapshots in badgerDB")
	cmd.Flags().String("db", _config.DatabaseDir, "Dabatabase directory")

	// Node configuration
	cmd.Flags().Bool("ignore-irrelevant", _config.Node.IgnoreIrrelevant, "Refuse sites that are not neighbours")
	cmd.Flags().Bool("cleanup-periodically", _config.Node.CleanupPeriodically, "Periodically drop sites that are not neighbours")
	cmd.Flags().Bool("forward-presence", _config.Node.ForwardPresence, "Answer new sites with a unicast Presence")
	cmd.Flags().Bool("flood-on-forward-fail", _config.Node.FloodOnForwardFail, "Flood unicasts that cannot be forwarded")
	cmd.Flags().Bool("announce-periodically", _config.Node.AnnouncePeriodically, "Periodically broadcast Presence")
	cmd.Flags().Duration("presence-delay", _config.Node.PresenceDelay, "Period of Presence broadcasts")
	cmd.Flags().Duration("movement-delay", _config.Node.MovementDelay, "Delay between a move and its Movement broadcast")
	cmd.Flags().Duration("cleanup-delay", _config.Node.CleanupDelay, "Period of irrelevant-site cleanup")
	cmd.Flags().Int("message-hops", _config.Node.MessageHops, "Hop budget of originated messages")
	cmd.Flags().Duration("poll-interval", _config.Node.PollInterval, "Idle pause of the node loop")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd, args)
	if err != nil {
		return err
	}

	if err := _config.Validate(); err != nil {
		return err
	}

	logFields := logrus.Fields{
		"DataDir":                   _config.DataDir,
		"LogLevel":                  _config.LogLevel,
		"Topology":                  _config.Topology,
		"Nodes":                     _config.Nodes,
		"Seed":                      _config.Seed,
		"Duration":                  _config.Duration,
		"ServiceAddr":               _config.ServiceAddr,
		"NoService":                 _config.NoService,
		"Store":                     _config.Store,
		"node.IgnoreIrrelevant":     _config.Node.IgnoreIrrelevant,
		"node.CleanupPeriodically":  _config.Node.CleanupPeriodically,
		"node.ForwardPresence":      _config.Node.ForwardPresence,
		"node.FloodOnForwardFail":   _config.Node.FloodOnForwardFail,
		"node.AnnouncePeriodically": _config.Node.AnnouncePeriodically,
		"node.PresenceDelay":        _config.Node.PresenceDelay,
		"node.MovementDelay":        _config.Node.MovementDelay,
		"node.CleanupDelay":         _config.Node.CleanupDelay,
		"node.MessageHops":          _config.Node.MessageHops,
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}
