package commands

import (
	"github.com/mosaicnetworks/voronoi/src/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for voronoi
var RootCmd = &cobra.Command{
	Use:              "voronoi",
	Short:            "distributed local Voronoi diagrams",
	TraverseChildren: true,
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command, args []string) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/voronoi.toml (.json, .yaml also work)
	viper.SetConfigName("voronoi")       // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	return nil
}
