package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mosaicnetworks/voronoi/src/topology"
	"github.com/spf13/cobra"
)

var topologyOut string

//NewTopologyCmd returns the command that writes a topology as JSON
func NewTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "topology",
		Short:   "Write a topology as JSON",
		PreRunE: bindFlagsLoadViper,
		RunE:    writeTopology,
	}

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("topology", _config.Topology, "grid, basic, linear, geometric, random or a JSON file")
	cmd.Flags().Int("nodes", _config.Nodes, "Number of sites of the random topology")
	cmd.Flags().Int64("seed", _config.Seed, "Seed of the random topology")
	cmd.Flags().StringVarP(&topologyOut, "out", "o", "", "Output file, stdout if empty")

	return cmd
}

func writeTopology(cmd *cobra.Command, args []string) error {
	top, err := _config.LoadTopology()
	if err != nil {
		return err
	}

	if topologyOut != "" {
		if err := topology.NewJSONTopologyFile(topologyOut).Write(top); err != nil {
			return err
		}
		fmt.Printf("Wrote %s topology (%d sites, %d links) to %s\n", top.Name, len(top.Sites), len(top.Links), topologyOut)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "\t")
	return enc.Encode(top)
}
