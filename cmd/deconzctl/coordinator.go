package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCoordinatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Print coordinator identity, firmware version and network parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := startAdapter(ctx)
			if err != nil {
				return err
			}
			defer a.Stop()

			info := a.GetCoordinator()
			fmt.Printf("networkAddress=0x%04x manufacturerID=0x%04x ieeeAddr=0x%016x endpoints=%v\n",
				info.NetworkAddress, info.ManufacturerID, info.IEEEAddr, info.Endpoints)

			version, err := a.GetCoordinatorVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("firmware=%s revision=0x%08x major=%d minor=%d\n",
				version.HardwarePlatform, version.Revision, version.Major, version.Minor)

			params, err := a.GetNetworkParameters(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("panID=0x%04x channel=%d\n", params.PANID, params.Channel)
			return nil
		},
	}
	return cmd
}
