package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRoutingTableCmd() *cobra.Command {
	var nwk uint16

	cmd := &cobra.Command{
		Use:   "routing-table",
		Short: "Query the routing table of a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := startAdapter(ctx)
			if err != nil {
				return err
			}
			defer a.Stop()

			routes, err := a.RoutingTable(ctx, nwk)
			if err != nil {
				return err
			}
			for _, r := range routes {
				fmt.Printf("dest=0x%04x status=%d nextHop=0x%04x\n", r.Destination, r.Status, r.NextHop)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&nwk, "nwk", 0x0000, "network address to query")
	return cmd
}
