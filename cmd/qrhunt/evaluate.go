package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/mobilecoinofficial/qrhunt/internal/hunt"
)

func evaluateCommand(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "evaluate --user USER PATH",
		Short: "Evaluate one image and print the outcome",
		Long: "Evaluate runs a single submission through the hunt against the configured ledger. " +
			"User messages are logged; the outcome is printed as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := hunt.NewSubmission(user, args[0], 0)
			if err != nil {
				return err
			}

			st, err := a.buildStack(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()

			out, err := st.svc.Evaluate(cmd.Context(), sub)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"submission_id": sub.ID,
				"outcome":       out,
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Submitting user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
