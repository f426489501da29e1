package main

import (
	"fmt"
	"os"
	"text/tabwriter"
)

// LsCmd lists every registered instance.
type LsCmd struct{}

func (c *LsCmd) Run(fctx *Context) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVER ID\tTYPE\tSTATUS\tPORT\tPLAYERS\t")
	for _, inst := range fctx.Facade.Registry().All() {
		snap := inst.Snapshot()
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t\n",
			snap.ServerID, snap.Type, snap.Status, snap.Port, snap.ConnectedPlayers, snap.MaxPlayers)
	}
	return w.Flush()
}
