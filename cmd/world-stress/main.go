package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/worldcore/config"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configPath     string
	duration       time.Duration
	objects        int
	depth          int
	workers        int
	seed           uint64
	gcPauseMetrics bool
	profile        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, eris.ToString(err, false))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "world-stress",
		Short:         "Runs a populated world as fast as possible and reports frame statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			log, err := config.NewLogger(cfg.Logging)
			if err != nil {
				return eris.Wrap(err, "create logger")
			}
			defer log.Sync() //nolint:errcheck

			if stop, err := startProfile(opts.profile); err != nil {
				return err
			} else if stop != nil {
				defer stop()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Stress.Duration.Duration)
			defer cancel()

			report := run(ctx, cfg, log, opts.seed)
			report.GCPauseMetrics = opts.gcPauseMetrics

			fmt.Fprintln(cmd.OutOrStdout(), "\n\n--- Stress Test Report ---")
			if err := report.Generate(cmd.OutOrStdout()); err != nil {
				return eris.Wrap(err, "generate report")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "--- End of Report ---")

			log.Info("stress test complete", zap.Int64("frames", report.TotalUpdates))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	flags.DurationVar(&opts.duration, "duration", 10*time.Second, "The total duration the test should run for")
	flags.IntVar(&opts.objects, "objects", 10000, "The initial number of game objects to create")
	flags.IntVar(&opts.depth, "depth", 4, "The number of hierarchy levels")
	flags.IntVar(&opts.workers, "workers", 0, "Worker goroutines for async updates (0 uses GOMAXPROCS)")
	flags.Uint64Var(&opts.seed, "seed", 1, "Seed of the random hierarchy")
	flags.BoolVar(&opts.gcPauseMetrics, "gc-pause-metrics", false, "Enable detailed GC pause metrics in the report")
	flags.StringVar(&opts.profile, "profile", "", "Write a cpu or mem profile to the working directory")

	return cmd
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("duration") || opts.configPath == "" {
		cfg.Stress.Duration.Duration = opts.duration
	}
	if flags.Changed("objects") || opts.configPath == "" {
		cfg.Stress.Objects = opts.objects
	}
	if flags.Changed("depth") || opts.configPath == "" {
		cfg.Stress.Depth = opts.depth
	}
	if flags.Changed("workers") {
		cfg.World.WorkerCount = opts.workers
	}

	if cfg.Stress.Objects < 0 || cfg.Stress.Depth < 1 || cfg.Stress.Duration.Duration <= 0 {
		return nil, eris.Errorf("invalid stress settings: %d objects, depth %d, duration %s",
			cfg.Stress.Objects, cfg.Stress.Depth, cfg.Stress.Duration)
	}
	return cfg, nil
}

func startProfile(kind string) (func(), error) {
	var mode func(*profile.Profile)
	switch kind {
	case "":
		return nil, nil
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	default:
		return nil, eris.Errorf("unknown profile %q, expected cpu or mem", kind)
	}
	p := profile.Start(mode, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	return p.Stop, nil
}
