// Package trainer drives NNUE training: it streams batches, accumulates
// gradients over worker replicas, applies the optimiser and checkpoints.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/liamt19/bullet/internal/data"
	"github.com/liamt19/bullet/internal/inputs"
	"github.com/liamt19/bullet/internal/nnue"
	"github.com/liamt19/bullet/internal/optim"
	"github.com/liamt19/bullet/internal/schedule"
	"github.com/liamt19/bullet/internal/serialization"
	"github.com/liamt19/bullet/internal/tensor"
)

// Version is written into every checkpoint header.
const Version = "0.1.0"

// Batcher fills batches of training positions.
type Batcher interface {
	Next(ctx context.Context, batch []data.AtaxxBoard) error
}

// Config holds run-local settings that are not part of the schedule.
type Config struct {
	Schedule schedule.TrainingSchedule
	Threads  int
	SkipProb float32
	OutDir   string          // Checkpoint directory; empty disables saving.
	DType    tensor.DataType // Parameter encoding in checkpoints.
	Seed     uint64
}

// DefaultConfig returns a single-threaded float32 configuration around
// schedule.Default().
func DefaultConfig() Config {
	return Config{
		Schedule: schedule.Default(),
		Threads:  1,
		DType:    tensor.Float32,
	}
}

// Report summarises one superbatch.
type Report struct {
	Superbatch   int
	Error        float32 // Mean squared error over the positions seen.
	LearningRate float32
	WDL          float32
	Positions    int
	Elapsed      time.Duration
	Checkpoint   string // Path written after this superbatch, if any.
}

// Trainer owns the primary network, its optimiser and the worker pool.
type Trainer struct {
	cfg    Config
	ctx    tensor.ExecutionContext
	net    *nnue.Network
	opt    *optim.Optimiser
	acc    *Accumulator
	logger *slog.Logger
	batch  []data.AtaxxBoard
}

// New validates cfg and prepares a trainer for net. Forward and backward
// passes run on ctx; parameter updates run on kernels, which may be a
// different backend.
func New(cfg Config, net *nnue.Network, ctx tensor.ExecutionContext,
	kernels tensor.OptimiserKernels, rule optim.Rule, logger *slog.Logger,
) (*Trainer, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	acc, err := NewAccumulator(ctx, net, inputs.Ataxx147{}, AccumulatorConfig{
		Threads:   cfg.Threads,
		SkipProb:  cfg.SkipProb,
		EvalScale: cfg.Schedule.EvalScale,
		Power:     cfg.Schedule.Power(),
		Seed:      cfg.Seed,
	})
	if err != nil {
		return nil, err
	}

	return &Trainer{
		cfg:    cfg,
		ctx:    ctx,
		net:    net,
		opt:    optim.New(rule, net.Graph(), kernels),
		acc:    acc,
		logger: logger,
		batch:  make([]data.AtaxxBoard, cfg.Schedule.BatchSize),
	}, nil
}

// Network returns the network being trained.
func (t *Trainer) Network() *nnue.Network {
	return t.net
}

// Optimiser returns the optimiser updating the network.
func (t *Trainer) Optimiser() *optim.Optimiser {
	return t.opt
}

// Resume loads parameters and optimiser state from a checkpoint and moves the
// schedule start past the superbatch it was taken at.
func (t *Trainer) Resume(path string) error {
	header, err := serialization.ReadParams(path, t.net.Graph(), t.opt, serialization.ReaderOptions{})
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if meta := header.CheckpointMeta; meta != nil && meta.Superbatch > 0 {
		t.cfg.Schedule.StartSuperbatch = meta.Superbatch + 1
	}
	t.logger.Info("resumed from checkpoint", "path", path, "start", t.cfg.Schedule.StartSuperbatch)
	return nil
}

// Run trains from the schedule's start to end superbatch. It stops between
// batches when ctx is cancelled and returns the reports of the finished
// superbatches together with the error.
func (t *Trainer) Run(ctx context.Context, batches Batcher) ([]Report, error) {
	s := t.cfg.Schedule
	if s.StartSuperbatch > s.EndSuperbatch {
		return nil, fmt.Errorf("%w: nothing left to train after superbatch %d",
			schedule.ErrInvalidSchedule, s.EndSuperbatch)
	}
	t.logger.Info("training started",
		"net", s.NetID,
		"optimiser", t.opt.Rule().Name(),
		"threads", t.acc.Threads(),
		"superbatches", fmt.Sprintf("%d..%d", s.StartSuperbatch, s.EndSuperbatch),
		"positions_per_superbatch", s.PositionsPerSuperbatch())

	var reports []Report
	for sb := s.StartSuperbatch; sb <= s.EndSuperbatch; sb++ {
		report, err := t.superbatch(ctx, batches, sb)
		if err != nil {
			return reports, fmt.Errorf("superbatch %d: %w", sb, err)
		}

		if t.cfg.OutDir != "" && s.ShouldSave(sb) {
			path, err := t.checkpoint(report)
			if err != nil {
				return reports, fmt.Errorf("superbatch %d: %w", sb, err)
			}
			report.Checkpoint = path
			t.logger.Info("saved checkpoint", "superbatch", sb, "path", path)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (t *Trainer) superbatch(ctx context.Context, batches Batcher, sb int) (Report, error) {
	s := t.cfg.Schedule
	report := Report{
		Superbatch:   sb,
		LearningRate: s.LR(sb),
		WDL:          s.WDL(sb),
	}
	start := time.Now()
	gradientFactor := 1 / float32(s.BatchSize)

	var errSum float32
	for b := range s.BatchesPerSuperbatch {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := batches.Next(ctx, t.batch); err != nil {
			return report, fmt.Errorf("batch %d: %w", b, err)
		}

		t.net.ZeroGrad()
		batchErr, n, err := t.acc.Gradients(ctx, t.batch, report.WDL)
		if err != nil {
			return report, fmt.Errorf("batch %d: %w", b, err)
		}
		if err := t.opt.Step(t.net.Graph(), gradientFactor, report.LearningRate); err != nil {
			return report, fmt.Errorf("batch %d: optimiser: %w", b, err)
		}
		errSum += batchErr
		report.Positions += n

		t.logger.Debug("batch", "superbatch", sb, "batch", b+1, "error", batchErr/float32(max(n, 1)))
	}

	report.Elapsed = time.Since(start)
	if report.Positions > 0 {
		report.Error = errSum / float32(report.Positions)
	}
	t.logger.Info("superbatch finished",
		"superbatch", sb,
		"error", report.Error,
		"lr", report.LearningRate,
		"wdl", report.WDL,
		"pos_per_sec", int(float64(report.Positions)/max(report.Elapsed.Seconds(), 1e-9)))
	return report, nil
}

func (t *Trainer) checkpoint(r Report) (string, error) {
	if err := os.MkdirAll(t.cfg.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("checkpoint dir: %w", err)
	}
	path := filepath.Join(t.cfg.OutDir, fmt.Sprintf("%s-%d.bnet", t.cfg.Schedule.NetID, r.Superbatch))

	header := serialization.Header{
		WriterVersion: "bullet " + Version,
		NetID:         t.cfg.Schedule.NetID,
		Metadata: map[string]string{
			"activation": t.net.Config().Activation.String(),
			"hidden":     fmt.Sprint(t.net.Config().Hidden),
		},
		CheckpointMeta: &serialization.CheckpointMeta{
			Superbatch:   r.Superbatch,
			Error:        float64(r.Error),
			LearningRate: float64(r.LearningRate),
			TrainingMeta: map[string]any{
				"wdl":       r.WDL,
				"positions": r.Positions,
			},
		},
	}
	if err := serialization.WriteParams(path, t.net.Graph(), t.opt, header, t.cfg.DType); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	return path, nil
}

// IsCancelled reports whether err stems from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
