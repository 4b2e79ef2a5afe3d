package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/fractional/internal/app"
)

func InsightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Insight maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Mark active insights past their expiry as expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.InsightService.ExpireAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d insights\n", n)
				return nil
			})
		},
	})
	return cmd
}
