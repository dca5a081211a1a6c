package main

import (
	"github.com/spf13/cobra"

	"github.com/erazemk/rezervator/internal/console"
	"github.com/erazemk/rezervator/internal/model"
)

func newConsoleCommand(opts *options) *cobra.Command {
	var requester model.Requester

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Chat with the service in the terminal as one requester",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			// Logs go to stderr so they don't interleave with the chat.
			logger, closeLog := newLogger(cfg.Log, cmd.ErrOrStderr(), cmd.ErrOrStderr())
			defer closeLog()

			a, err := openApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return console.New(a.sessions, requester, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
		},
	}
	cmd.Flags().Int64Var(&requester.ID, "id", 1, "requester ID")
	cmd.Flags().StringVar(&requester.Username, "username", "", "requester username")
	cmd.Flags().StringVar(&requester.FirstName, "name", "", "requester first name")
	return cmd
}
