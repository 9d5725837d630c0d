package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liamt19/bullet/internal/backend/cpu"
	"github.com/liamt19/bullet/internal/backend/webgpu"
	"github.com/liamt19/bullet/internal/data"
	"github.com/liamt19/bullet/internal/inputs"
	"github.com/liamt19/bullet/internal/nnue"
	"github.com/liamt19/bullet/internal/optim"
	"github.com/liamt19/bullet/internal/schedule"
	"github.com/liamt19/bullet/internal/tensor"
	"github.com/liamt19/bullet/internal/trainer"
)

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "bullet",
		Short:         "NNUE trainer for ataxx evaluation networks",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every batch")

	rootCmd.AddCommand(newTrainCmd(), newScheduleCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bullet %s\n", trainer.Version)
		},
	}
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print a training schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			colour, _ := cmd.Flags().GetBool("colour")
			s, err := loadSchedule(path)
			if err != nil {
				return err
			}
			s.Display(cmd.OutOrStdout(), colour)
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Schedule YAML file (defaults when empty)")
	cmd.Flags().Bool("colour", false, "Highlight values with ANSI colours")
	return cmd
}

type trainOptions struct {
	config     string
	data       string
	out        string
	resume     string
	device     string
	dtype      string
	activation string
	threads    int
	hidden     int
	pairwise   int
	skipProb   float32
	seed       uint64
}

func newTrainCmd() *cobra.Command {
	var opts trainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			return runTrain(cmd, opts, newLogger(cmd.ErrOrStderr(), verbose))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.config, "config", "c", "", "Schedule YAML file (defaults when empty)")
	f.StringVarP(&opts.data, "data", "d", "", "Positions file, one '<fen> | <score> | <result>' per line")
	f.StringVarP(&opts.out, "out", "o", "checkpoints", "Checkpoint directory")
	f.StringVar(&opts.resume, "resume", "", "Checkpoint to resume from")
	f.StringVar(&opts.device, "device", "cpu", "Optimiser device: cpu or webgpu")
	f.StringVar(&opts.dtype, "dtype", "f32", "Checkpoint parameter encoding: f32 or f16")
	f.StringVar(&opts.activation, "activation", "screlu", "Feature transformer activation: relu, crelu or screlu")
	f.IntVarP(&opts.threads, "threads", "t", runtime.NumCPU(), "Gradient worker threads")
	f.IntVar(&opts.hidden, "hidden", nnue.DefaultConfig().Hidden, "Feature transformer width")
	f.IntVar(&opts.pairwise, "pairwise", 0, "Block rows of the pairwise product stage (0 disables it)")
	f.Float32Var(&opts.skipProb, "skip-prob", 0, "Probability of skipping each position")
	f.Uint64Var(&opts.seed, "seed", nnue.DefaultConfig().Seed, "Initialisation and sampling seed")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadSchedule(path string) (schedule.TrainingSchedule, error) {
	if path == "" {
		return schedule.Default(), nil
	}
	return schedule.Load(path)
}

func parseActivation(s string) (tensor.Activation, error) {
	for _, a := range []tensor.Activation{tensor.ReLU, tensor.CReLU, tensor.SCReLU} {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", s)
}

func parseDType(s string) (tensor.DataType, error) {
	switch strings.ToLower(s) {
	case "f32", "float32":
		return tensor.Float32, nil
	case "f16", "float16":
		return tensor.Float16, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", s)
	}
}

// optimiserKernels picks the backend for parameter updates. The returned
// release func must be called once training is over.
func optimiserKernels(device string, host tensor.OptimiserKernels) (tensor.OptimiserKernels, func(), error) {
	switch strings.ToLower(device) {
	case "cpu":
		return host, func() {}, nil
	case "webgpu":
		gpu, err := webgpu.New()
		if err != nil {
			return nil, nil, err
		}
		return gpu, gpu.Release, nil
	default:
		return nil, nil, fmt.Errorf("unknown device %q", device)
	}
}

func runTrain(cmd *cobra.Command, opts trainOptions, logger *slog.Logger) error {
	s, err := loadSchedule(opts.config)
	if err != nil {
		return err
	}
	act, err := parseActivation(opts.activation)
	if err != nil {
		return err
	}
	dtype, err := parseDType(opts.dtype)
	if err != nil {
		return err
	}

	in := inputs.Ataxx147{}
	net, err := nnue.New(nnue.Config{
		Inputs:     in.Inputs(),
		MaxActive:  in.MaxActive(),
		Hidden:     opts.hidden,
		Activation: act,
		PairwiseM:  opts.pairwise,
		Seed:       opts.seed,
	})
	if err != nil {
		return err
	}

	host := cpu.New()
	kernels, release, err := optimiserKernels(opts.device, host)
	if err != nil {
		return err
	}
	defer release()

	loader, err := data.NewLoader(opts.data)
	if err != nil {
		return err
	}
	defer loader.Close()

	tr, err := trainer.New(trainer.Config{
		Schedule: s,
		Threads:  opts.threads,
		SkipProb: opts.skipProb,
		OutDir:   opts.out,
		DType:    dtype,
		Seed:     opts.seed,
	}, net, host, kernels, optim.DefaultAdamW(), logger)
	if err != nil {
		return err
	}
	if opts.resume != "" {
		if err := tr.Resume(opts.resume); err != nil {
			return err
		}
	}

	s.Display(cmd.OutOrStdout(), false)
	logger.Info("optimiser backend", "device", kernels.Device(), "data", filepath.Base(opts.data))

	reports, err := tr.Run(cmd.Context(), loader)
	if err != nil {
		if trainer.IsCancelled(err) {
			logger.Warn("training interrupted", "superbatches", len(reports))
		}
		return err
	}
	if len(reports) == 0 {
		return errors.New("no superbatches were trained")
	}
	last := reports[len(reports)-1]
	logger.Info("training finished", "superbatch", last.Superbatch, "error", last.Error, "checkpoint", last.Checkpoint)
	return nil
}
