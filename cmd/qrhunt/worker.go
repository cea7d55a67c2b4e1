package main

import (
	"github.com/spf13/cobra"

	"github.com/mobilecoinofficial/qrhunt/internal/worker"
)

// workerCommand is the child side of the process executor. It is hidden:
// users never start it directly.
func workerCommand(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:    worker.WorkerCommand + " --id ID PATH",
		Short:  "Evaluate one image in isolation and write the result to stdout",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := worker.Job{SubmissionID: id, Path: args[0]}
			a.log.Debug().Str("submission", id).Msg("worker started")
			return worker.Serve(cmd.Context(), a.newPipeline(), job, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Submission id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
