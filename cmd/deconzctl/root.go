// Command deconzctl is a small cobra-based CLI around the deconz adapter.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/samuel/go-deconz/config"
)

var (
	cfgViper = viper.New()
	log      zerolog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "deconzctl",
		Short: "Control a deCONZ-based Zigbee coordinator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfgViper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
	}
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(newStartCmd())
	root.AddCommand(newPermitJoinCmd())
	root.AddCommand(newLqiCmd())
	root.AddCommand(newRoutingTableCmd())
	root.AddCommand(newCoordinatorCmd())
	root.AddCommand(newScanCmd())
	return root
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgViper)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "deconzctl:", err)
	os.Exit(1)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
