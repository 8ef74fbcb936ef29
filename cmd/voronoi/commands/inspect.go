package commands

import (
	"fmt"

	"github.com/mosaicnetworks/voronoi/src/store"
	"github.com/spf13/cobra"
)

var inspectNode int

//NewInspectCmd returns the command that lists saved snapshots
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect",
		Short:   "List the snapshots saved by a run",
		PreRunE: bindFlagsLoadViper,
		RunE:    inspectSnapshots,
	}

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("db", _config.DatabaseDir, "Dabatabase directory")
	cmd.Flags().IntVarP(&inspectNode, "node", "n", -1, "Print the full snapshot of one node")

	return cmd
}

func inspectSnapshots(cmd *cobra.Command, args []string) error {
	st, err := store.LoadBadgerStore(_config.DatabaseDir, _config.Logger())
	if err != nil {
		return err
	}
	defer st.Close()

	if inspectNode >= 0 {
		snap, err := st.Get(uint32(inspectNode))
		if err != nil {
			return err
		}
		data, err := snap.Marshal()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	snaps, err := st.List()
	if err != nil {
		return err
	}

	for _, s := range snaps {
		fmt.Printf("%s state=%s known=%d triangles=%d\n",
			s.Status, s.State, len(s.Known), len(s.Diagram.Triangles))
	}

	return nil
}
