package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/mobilecoinofficial/qrhunt/internal/server"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			srv := server.New(server.Options{
				In:      os.Stdin,
				Out:     os.Stdout,
				Logger:  a.log,
				Version: Version,
			})

			st, err := a.buildStack(ctx, srv)
			if err != nil {
				return err
			}
			defer st.Close()

			a.log.Info().Str("version", Version).Msg("MCP server starting")
			err = srv.Run(ctx, st.svc)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
