package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragpipe/internal/usecase/pipeline"
)

type askFlags struct {
	filter   string
	mode     string
	topK     int
	evaluate bool
	json     bool
}

func newAskCmd(root *rootFlags) *cobra.Command {
	flags := &askFlags{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the search index",
		Long: `Ask retrieves documents for the question, builds a grounding prompt and prints
the model's answer followed by the trace id. With --evaluate the answer is also
scored and, when a record store is configured, stored under its trace id.`,
		Example: `  ragpipe ask "What is the capital of France?"
  ragpipe ask --evaluate --json "Who wrote Hamlet?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cfg, err := configure(root)
			if err != nil {
				return err
			}
			if flags.mode != "" {
				cfg.Pipeline.Mode = flags.mode
			}
			if flags.topK > 0 {
				cfg.Pipeline.TopK = flags.topK
			}

			rt, err := start(cmd.Context(), env, cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			query := strings.Join(args, " ")
			opts := []pipeline.RunOption{pipeline.WithFilter(flags.filter)}
			out := cmd.OutOrStdout()

			if flags.evaluate {
				res, err := rt.app.Pipeline.RunWithEvaluation(cmd.Context(), query, opts...)
				if err != nil {
					return err
				}
				if flags.json {
					return writeJSON(cmd, res)
				}
				fmt.Fprintln(out, res.Response)
				fmt.Fprintf(out, "\ntrace: %s  model: %s  latency: %.0fms  tokens: %d\n",
					res.TraceID, res.Model, res.LatencyMs, res.Usage.TotalTokens)
				fmt.Fprintf(out, "overall: %.3f  relevance: %.2f  faithfulness: %.2f  answer_quality: %.2f\n",
					res.Evaluation.OverallScore, res.Evaluation.Relevance.Score,
					res.Evaluation.Faithfulness.Score, res.Evaluation.AnswerQuality.Score)
				return nil
			}

			res, err := rt.app.Pipeline.Run(cmd.Context(), query, opts...)
			if err != nil {
				return err
			}
			if flags.json {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(out, res.Response)
			fmt.Fprintf(out, "\ntrace: %s  model: %s  latency: %.0fms  tokens: %d\n",
				res.TraceID, res.Model, res.LatencyMs, res.Usage.TotalTokens)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.filter, "filter", "", "OData filter expression passed to the search backend")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "retrieval mode: hybrid, semantic or keyword")
	cmd.Flags().IntVar(&flags.topK, "top-k", 0, "number of ranked documents in the prompt")
	cmd.Flags().BoolVar(&flags.evaluate, "evaluate", false, "score the answer")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the result as JSON")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
