package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLqiCmd() *cobra.Command {
	var nwk uint16

	cmd := &cobra.Command{
		Use:   "lqi",
		Short: "Query neighbor link quality for a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := startAdapter(ctx)
			if err != nil {
				return err
			}
			defer a.Stop()

			neighbors, err := a.Lqi(ctx, nwk)
			if err != nil {
				return err
			}
			for _, n := range neighbors {
				fmt.Printf("nwk=0x%04x relationship=%d depth=%d lqi=%d\n", n.NWKAddr, n.Relationship, n.Depth, n.LinkQuality)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&nwk, "nwk", 0x0000, "network address to query")
	return cmd
}

func newScanCmd() *cobra.Command {
	var nwk uint16

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover neighbors of a device (convenience wrapper around lqi)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := startAdapter(ctx)
			if err != nil {
				return err
			}
			defer a.Stop()

			neighbors, err := a.DiscoverNeighbors(ctx, nwk)
			if err != nil {
				return err
			}
			for _, n := range neighbors {
				fmt.Printf("nwk=0x%04x depth=%d lqi=%d\n", n.NWKAddr, n.Depth, n.LinkQuality)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&nwk, "nwk", 0x0000, "network address to scan from")
	return cmd
}
