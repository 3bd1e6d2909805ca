package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"newsdesk/internal/output"
)

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Keep the local mirror reconciled while server-side auto-fetch runs",
		Long: `Continuously reconcile the local attempts mirror on the server's
auto-fetch interval, so a later invocation starts with fresh cached state.
Handles SIGINT/SIGTERM for graceful shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			formatter := output.NewFormatter(output.Format(outputFormat))
			engine, err := newEngine(formatter)
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Initialize(ctx)

			state := engine.AutoFetch()
			if !state.Visible {
				formatter.Warning("auto-fetch is not available for this account; polling on the fallback interval")
			} else if !state.Enabled {
				formatter.Warning("server-side auto-fetch is OFF; the daemon will notice if it is turned on")
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			log.Printf("newsdesk daemon: starting")
			engine.StartPolling(ctx)

			<-sig
			log.Println("newsdesk daemon: received shutdown signal, exiting")
			engine.StopPolling()
			return nil
		},
	}
}
