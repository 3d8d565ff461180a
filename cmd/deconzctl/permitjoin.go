package main

import (
	"github.com/spf13/cobra"
)

func newPermitJoinCmd() *cobra.Command {
	var seconds int
	var nwk uint16

	cmd := &cobra.Command{
		Use:   "permit-join",
		Short: "Open the network's join window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := startAdapter(ctx)
			if err != nil {
				return err
			}
			defer a.Stop()

			if err := a.PermitJoin(ctx, byte(seconds), nwk); err != nil {
				return err
			}
			log.Info().Int("seconds", seconds).Msg("deconzctl: permit join requested")
			return nil
		},
	}
	cmd.Flags().IntVar(&seconds, "seconds", 60, "join window duration in seconds")
	cmd.Flags().Uint16Var(&nwk, "nwk", 0xFFFC, "target network address (broadcast to routers by default)")
	return cmd
}
