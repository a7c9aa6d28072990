package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/resilience"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and retry dead-lettered documents",
	Long:  "Commands for listing, retrying, and clearing documents whose pipeline run failed.",
}

// -- dlq list --

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		errType, _ := cmd.Flags().GetString("error-type")
		limit, _ := cmd.Flags().GetInt("limit")

		docs, err := st.ListDead(ctx, resilience.DLQFilter{ErrorType: errType, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "dlq list")
		}

		if len(docs) == 0 {
			fmt.Fprintln(os.Stderr, "Dead letter queue is empty.")
			return nil
		}

		formatDLQList(os.Stdout, docs)
		return nil
	},
}

// -- dlq retry --

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reprocess dead-lettered documents",
	Long:  "Re-runs the pipeline for retryable entries. Entries that succeed are removed from the queue.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		limit, _ := cmd.Flags().GetInt("limit")

		docs, err := env.Store.ListDead(ctx, resilience.DLQFilter{ErrorType: "transient", Limit: limit})
		if err != nil {
			return eris.Wrap(err, "dlq retry")
		}

		var retried, recovered int
		for _, doc := range docs {
			if !doc.CanRetry() {
				continue
			}
			if doc.SourcePath == "" {
				zap.L().Warn("dead document has no source path, skipping", zap.String("id", doc.ID))
				continue
			}
			if _, err := os.Stat(doc.SourcePath); err != nil {
				zap.L().Warn("dead document source missing, skipping",
					zap.String("id", doc.ID),
					zap.String("path", doc.SourcePath),
				)
				continue
			}

			retried++
			rec, err := env.Pipeline.Run(ctx, doc.SourcePath)
			if err != nil {
				zap.L().Error("retry failed",
					zap.String("document", doc.Filename),
					zap.Error(err),
				)
				continue
			}
			if rec.Placement == nil {
				continue
			}

			recovered++
			if err := env.Store.RemoveDead(ctx, doc.ID); err != nil {
				zap.L().Warn("failed to remove recovered entry", zap.String("id", doc.ID), zap.Error(err))
			}
		}

		zap.L().Info("dlq retry complete",
			zap.Int("retried", retried),
			zap.Int("recovered", recovered),
		)
		return nil
	},
}

// -- dlq remove --

var dlqRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an entry from the dead letter queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.RemoveDead(ctx, args[0]); err != nil {
			return eris.Wrap(err, "dlq remove")
		}

		fmt.Fprintf(os.Stdout, "Removed %s\n", args[0])
		return nil
	},
}

func init() {
	dlqListCmd.Flags().String("error-type", "", "filter by error type (transient, permanent)")
	dlqListCmd.Flags().Int("limit", 50, "max number of entries to display")

	dlqRetryCmd.Flags().Int("limit", 20, "max number of entries to retry")

	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	dlqCmd.AddCommand(dlqRemoveCmd)
	rootCmd.AddCommand(dlqCmd)
}

// formatDLQList writes a tabular list of dead documents to w.
func formatDLQList(out io.Writer, docs []resilience.DeadDocument) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILENAME\tSTAGE\tTYPE\tRETRIES\tLAST_FAILED")
	_, _ = fmt.Fprintln(w, "--\t--------\t-----\t----\t-------\t-----------")

	for _, d := range docs {
		filename := d.Filename
		if len(filename) > 30 {
			filename = filename[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			truncateID(d.ID),
			filename,
			d.FailedStage,
			d.ErrorType,
			d.RetryCount,
			d.MaxRetries,
			d.LastFailedAt.Format(time.RFC3339),
		)
	}
	_ = w.Flush()
}
