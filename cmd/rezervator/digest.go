package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDigestCommand(opts *options) *cobra.Command {
	var (
		window    int
		notifyAll bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Build the reminder digest once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("window") {
				if window < 0 {
					return fmt.Errorf("window must not be negative, got %d", window)
				}
				cfg.Digest.Window = window
			}
			if cmd.Flags().Changed("notify") {
				cfg.Digest.NotifyRequesters = notifyAll
			}
			logger, closeLog := newLogger(cfg.Log, cmd.ErrOrStderr(), cmd.ErrOrStderr())
			defer closeLog()

			a, err := openApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.scheduler()
			if err != nil {
				return err
			}
			digest, err := sched.RunDigest(cmd.Context())
			if digest != nil {
				fmt.Fprintln(cmd.OutOrStdout(), digest.Render())
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&window, "window", "w", 3, "ending-soon window in days")
	cmd.Flags().BoolVar(&notifyAll, "notify", false, "also remind every requester")
	return cmd
}
