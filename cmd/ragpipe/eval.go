package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	dombatch "github.com/kailas-cloud/ragpipe/internal/domain/batch"
	batchuc "github.com/kailas-cloud/ragpipe/internal/usecase/batch"
)

type evalFlags struct {
	file     string
	maxBatch int
	json     bool
}

type evalItem struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	TraceID   string  `json:"trace_id,omitempty"`
	Score     float64 `json:"overall_score,omitempty"`
	LatencyMs float64 `json:"latency_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type evalOutput struct {
	RunID       string     `json:"run_id"`
	Queries     int        `json:"queries"`
	Failures    int        `json:"failures"`
	MeanOverall float64    `json:"mean_overall_score"`
	DurationMs  int64      `json:"duration_ms"`
	Items       []evalItem `json:"items"`
}

func newEvalCmd(root *rootFlags) *cobra.Command {
	flags := &evalFlags{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a batch of questions from a YAML file",
		Long: `Eval runs every query in the file through the pipeline with evaluation, one
after another, and reports per-query status and the mean overall score. A
failing query is reported and the batch continues. The command exits non-zero
when any query failed.

The file format is:

  queries:
    - id: capital
      query: What is the capital of France?
      filter: "lang eq 'en'"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(filepath.Clean(flags.file))
			if err != nil {
				return fmt.Errorf("open query file: %w", err)
			}
			queries, err := batchuc.LoadQueries(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			s, err := bootstrap(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer s.close()

			stopOps := startOps(s)
			defer stopOps()

			svc := s.app.Batch
			if flags.maxBatch > 0 {
				svc = svc.WithMaxBatchSize(flags.maxBatch)
			}
			report := svc.Run(cmd.Context(), queries)

			if flags.json {
				if err := writeJSON(cmd, toEvalOutput(&report)); err != nil {
					return err
				}
			} else {
				printReport(cmd, &report)
			}

			if report.Failures > 0 {
				return fmt.Errorf("%d of %d queries failed", report.Failures, len(report.Items))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "YAML query file")
	cmd.Flags().IntVar(&flags.maxBatch, "max", 0, "maximum number of queries (default 100)")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func toEvalOutput(r *batchuc.Report) evalOutput {
	out := evalOutput{
		RunID:       r.RunID,
		Queries:     len(r.Items),
		Failures:    r.Failures,
		MeanOverall: r.MeanOverall,
		DurationMs:  r.Duration.Milliseconds(),
		Items:       make([]evalItem, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		ei := evalItem{
			ID:        item.ID(),
			Status:    string(item.Status()),
			TraceID:   item.TraceID(),
			Score:     item.Score(),
			LatencyMs: item.LatencyMs(),
		}
		if item.Err() != nil {
			ei.Error = item.Err().Error()
		}
		out.Items = append(out.Items, ei)
	}
	return out
}

func printReport(cmd *cobra.Command, r *batchuc.Report) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tOVERALL\tLATENCY\tTRACE / ERROR")
	for _, item := range r.Items {
		if item.Status() == dombatch.StatusOK {
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.0fms\t%s\n",
				item.ID(), item.Status(), item.Score(), item.LatencyMs(), item.TraceID())
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t-\t-\t%v\n", item.ID(), item.Status(), item.Err())
	}
	_ = tw.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\nrun %s: %d queries, %d failed, mean overall %.3f, took %s\n",
		r.RunID, len(r.Items), r.Failures, r.MeanOverall, r.Duration.Round(time.Millisecond))
}
