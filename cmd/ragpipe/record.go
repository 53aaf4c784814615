package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

func newRecordCmd(root *rootFlags) *cobra.Command {
	var del bool

	cmd := &cobra.Command{
		Use:   "record [trace-id]",
		Short: "Show stored evaluation records",
		Long: `Record prints the stored evaluation for a trace id as JSON, or lists all stored
records newest first when no trace id is given. With --delete the record is
removed. Requires database.addrs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bootstrap(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer s.close()

			if s.app.Records == nil {
				return fmt.Errorf("database.addrs is not set: %w", domain.ErrConfiguration)
			}

			if del {
				if len(args) != 1 {
					return fmt.Errorf("--delete requires a trace id")
				}
				if err := s.app.Records.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			}

			if len(args) == 1 {
				rec, err := s.app.Records.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, rec)
			}

			recs, err := s.app.Records.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tTRACE\tOVERALL\tQUERY")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n",
					rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.TraceID, rec.Evaluation.OverallScore, rec.Query)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&del, "delete", false, "delete the record instead of printing it")
	return cmd
}
