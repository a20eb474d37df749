// Command client is the offline-first container entry client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmitrijs2005/containertracker/internal/client/cli"
	"github.com/dmitrijs2005/containertracker/internal/client/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	root := &cobra.Command{
		Use:          "client",
		Short:        "Record container gate movements, online or offline",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, v, func(ctx context.Context, rt *cli.Runtime) error {
				ctx, cancel := context.WithCancel(ctx)
				wait := rt.Start(ctx)
				rt.App(cmd.InOrStdin()).Run(ctx)
				cancel()
				wait()
				return nil
			})
		},
	}
	if err := config.BindFlags(root.PersistentFlags(), v); err != nil {
		panic(err)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "sync",
			Short: "Send queued entries to the server and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd, v, func(ctx context.Context, rt *cli.Runtime) error {
					return rt.App(cmd.InOrStdin()).Sync(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show connectivity and outbox state",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd, v, func(ctx context.Context, rt *cli.Runtime) error {
					return rt.App(cmd.InOrStdin()).Status(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "outbox",
			Short: "List entries waiting to be sent",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd, v, func(ctx context.Context, rt *cli.Runtime) error {
					return rt.App(cmd.InOrStdin()).Outbox(ctx)
				})
			},
		},
	)
	return root
}

func withRuntime(cmd *cobra.Command, v *viper.Viper, fn func(context.Context, *cli.Runtime) error) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rt, err := cli.Setup(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("start client: %w", err)
	}
	defer rt.Close()
	return fn(ctx, rt)
}
