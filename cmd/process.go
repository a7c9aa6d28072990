package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/ocr"
	"github.com/vetdocs/triage/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process <path>",
	Short: "Process a document or a directory of documents",
	Long:  "Runs the full triage pipeline on a single file, or on every supported file in a directory when given one.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return eris.Wrapf(err, "stat %s", path)
		}

		if info.IsDir() {
			return processDir(ctx, env.Pipeline, path, cfg.Batch.MaxConcurrentDocuments)
		}

		rec, err := env.Pipeline.Run(ctx, path)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		printRecord(rec)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}

// processDir runs the pipeline over every supported file in dir, up to
// concurrency documents at a time. Individual failures do not abort the
// batch; they are counted and land in the dead letter queue.
func processDir(ctx context.Context, p *pipeline.Pipeline, dir string, concurrency int) error {
	paths, err := collectDocuments(dir)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		zap.L().Info("no supported documents found", zap.String("dir", dir))
		return nil
	}

	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("documents", len(paths)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, path := range paths {
		path := path
		g.Go(func() error {
			log := zap.L().With(zap.String("document", filepath.Base(path)))

			rec, err := p.Run(gctx, path)
			if err != nil {
				failed.Add(1)
				log.Error("processing failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			if rec.Routing != nil && rec.Routing.Rejected {
				failed.Add(1)
				log.Warn("document rejected", zap.Float64("confidence", rec.Confidence()))
				return nil
			}

			succeeded.Add(1)
			log.Info("document filed",
				zap.String("category", string(rec.Category())),
				zap.String("veteran", veteranOf(rec)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

// collectDocuments lists supported files directly under dir, sorted by name.
func collectDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read dir %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !ocr.SupportedExt(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func veteranOf(rec *model.Record) string {
	if rec.Resolution != nil {
		return rec.Resolution.VeteranName
	}
	return ""
}

func printRecord(rec *model.Record) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rec)
}
