package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treeture"
	"treeture/examples/fib"
	"treeture/examples/pipeline"
	"treeture/internal/batch"
	"treeture/monitor"
)

func newRunCmd() *cobra.Command {
	var (
		fibN     int
		workers  int
		verbose  bool
		dataSize int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bundled example workloads concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExamples(fibN, dataSize, workers, verbose)
		},
	}

	cmd.Flags().IntVar(&fibN, "fib-n", 30, "Fibonacci index for the fib example")
	cmd.Flags().IntVar(&dataSize, "pipeline-size", 1_000_000, "element count for the pipeline example")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = NUM_WORKERS or GOMAXPROCS)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log scheduling events at debug level")

	return cmd
}

func runExamples(fibN, dataSize, workers int, verbose bool) error {
	runID := uuid.New()

	logCfg := zap.NewProductionConfig()
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	log := logger.With(zap.String("run_id", runID.String()))

	// Each job gets its own pool: a WorkerPool's root worker is meant to be
	// driven by the single goroutine that constructed the pool, and
	// batch.Runner runs jobs on its own worker goroutines.
	newPool := func(name string) *treeture.WorkerPool {
		opts := []treeture.PoolOption{treeture.WithSink(monitor.NewZapSink(log.With(zap.String("job", name))))}
		if workers > 0 {
			opts = append(opts, treeture.WithWorkers(workers))
		}
		return treeture.NewPool(opts...)
	}

	runner := batch.NewRunner(2)
	runner.Submit("fib", func() (any, error) {
		pool := newPool("fib")
		defer pool.Shutdown()
		return fib.Fib(pool.Root(), fibN)
	})
	runner.Submit("pipeline", func() (any, error) {
		pool := newPool("pipeline")
		defer pool.Shutdown()
		data := make([]int, dataSize)
		for i := range data {
			data[i] = i
		}
		return pipeline.Run(pool.Root(), data)
	})
	runner.Close()

	for result := range runner.Results() {
		if result.Err != nil {
			log.Error("job failed", zap.String("job", result.Name), zap.Error(result.Err))
			continue
		}
		fmt.Printf("%s: %v (%s)\n", result.Name, result.Value, result.Duration)
	}
	return nil
}
