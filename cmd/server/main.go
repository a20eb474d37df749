// Command server is a development server for the container entry client.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmitrijs2005/containertracker/internal/server"
	"github.com/dmitrijs2005/containertracker/internal/server/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	root := &cobra.Command{
		Use:          "server",
		Short:        "Development server accepting container entries",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			app, err := server.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			app.Run(cmd.Context())
			return nil
		},
	}
	if err := config.BindFlags(root.Flags(), v); err != nil {
		panic(err)
	}
	return root
}
