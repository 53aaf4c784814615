package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
)

func newHealthCmd(root *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the search backend, the model backend and the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := bootstrap(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer s.close()

			report := s.app.Health.Check(cmd.Context())
			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				names := make([]string, 0, len(report.Checks))
				for name := range report.Checks {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", name, report.Checks[name])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "status   %s\n", report.Status)
			}

			if report.Status != healthuc.Healthy {
				return fmt.Errorf("health status %s", report.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
