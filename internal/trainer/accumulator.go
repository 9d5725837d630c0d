package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"

	"github.com/liamt19/bullet/internal/data"
	"github.com/liamt19/bullet/internal/inputs"
	"github.com/liamt19/bullet/internal/nnue"
	"github.com/liamt19/bullet/internal/schedule"
	"github.com/liamt19/bullet/internal/tensor"
)

// AccumulatorConfig controls how a batch is spread over workers.
type AccumulatorConfig struct {
	Threads   int     // Worker goroutines, each with its own network replica.
	SkipProb  float32 // Probability of skipping each position.
	EvalScale float32 // Score divisor before the sigmoid.
	Power     float32 // Loss exponent; 2 is mean squared error.
	Seed      uint64  // Seeds the per-worker skip generators.
}

// DefaultAccumulatorConfig returns one worker per call with no skipping.
func DefaultAccumulatorConfig() AccumulatorConfig {
	return AccumulatorConfig{Threads: 1, EvalScale: 400, Power: 2}
}

type worker struct {
	net       *nnue.Network
	rng       *rand.Rand
	stm, nstm []int
}

// Accumulator computes summed batch gradients for a primary network.
//
// Every worker owns a full replica of the primary network, so no buffer is
// written by two goroutines. The kernels in ctx must be safe for concurrent
// use on disjoint buffers, which the CPU backend is.
type Accumulator struct {
	ctx     tensor.ExecutionContext
	primary *nnue.Network
	inputs  inputs.InputType[data.AtaxxBoard]
	cfg     AccumulatorConfig
	workers []*worker
}

// NewAccumulator builds cfg.Threads replicas of primary.
func NewAccumulator(ctx tensor.ExecutionContext, primary *nnue.Network,
	in inputs.InputType[data.AtaxxBoard], cfg AccumulatorConfig,
) (*Accumulator, error) {
	if cfg.Threads < 1 {
		return nil, fmt.Errorf("trainer: %d threads", cfg.Threads)
	}
	if cfg.SkipProb < 0 || cfg.SkipProb > 1 {
		return nil, fmt.Errorf("trainer: skip probability %g outside [0, 1]", cfg.SkipProb)
	}
	if cfg.EvalScale <= 0 {
		return nil, fmt.Errorf("trainer: eval scale %g", cfg.EvalScale)
	}
	if cfg.Power < schedule.MinLossPower {
		return nil, fmt.Errorf("trainer: loss power %g below %d", cfg.Power, schedule.MinLossPower)
	}

	a := &Accumulator{ctx: ctx, primary: primary, inputs: in, cfg: cfg}
	for i := range cfg.Threads {
		replica, err := primary.Clone(ctx)
		if err != nil {
			return nil, fmt.Errorf("trainer: replica %d: %w", i, err)
		}
		a.workers = append(a.workers, &worker{
			net:  replica,
			rng:  rand.New(rand.NewPCG(cfg.Seed, uint64(i))), //nolint:gosec // training noise, not security
			stm:  make([]int, 0, in.MaxActive()),
			nstm: make([]int, 0, in.MaxActive()),
		})
	}
	return a, nil
}

// Threads returns the number of workers.
func (a *Accumulator) Threads() int {
	return len(a.workers)
}

// Gradients evaluates batch and adds the summed parameter gradients into the
// primary network. blend weights the game result against the score in the
// training target. It returns the summed squared error and the number of
// positions that were not skipped.
//
// The primary network's gradients are not cleared first; callers zero them
// once per optimiser step.
func (a *Accumulator) Gradients(ctx context.Context, batch []data.AtaxxBoard, blend float32) (float32, int, error) {
	chunk := (len(batch) + len(a.workers) - 1) / len(a.workers)
	errs := make([]float32, len(a.workers))
	counts := make([]int, len(a.workers))

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range a.workers {
		lo := min(i*chunk, len(batch))
		hi := min(lo+chunk, len(batch))
		g.Go(func() error {
			if err := w.net.CopyParamsFrom(a.ctx, a.primary); err != nil {
				return err
			}
			w.net.ZeroGrad()
			var err error
			errs[i], counts[i], err = a.run(gctx, w, batch[lo:hi], blend)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	var errSum float32
	var n int
	for i, w := range a.workers {
		if counts[i] == 0 {
			continue
		}
		if err := a.primary.AccumulateGradsFrom(a.ctx, w.net); err != nil {
			return 0, 0, fmt.Errorf("trainer: merge worker %d: %w", i, err)
		}
		errSum += errs[i]
		n += counts[i]
	}
	return errSum, n, nil
}

var errCancelled = errors.New("trainer: batch cancelled")

func (a *Accumulator) run(ctx context.Context, w *worker, positions []data.AtaxxBoard, blend float32) (float32, int, error) {
	var errSum float32
	var n int
	for i := range positions {
		if i%256 == 0 && ctx.Err() != nil {
			return 0, 0, fmt.Errorf("%w: %w", errCancelled, ctx.Err())
		}
		if a.cfg.SkipProb > 0 && w.rng.Float32() < a.cfg.SkipProb {
			continue
		}

		pos := &positions[i]
		w.stm, w.nstm = inputs.Collect(a.inputs, pos, w.stm[:0], w.nstm[:0])
		eval, err := w.net.Evaluate(a.ctx, w.stm, w.nstm)
		if err != nil {
			return 0, 0, err
		}

		target := pos.BlendedResult(blend, a.cfg.EvalScale)
		s := data.Sigmoid(eval)
		diff := s - target
		errSum += diff * diff

		if err := w.net.Backprop(a.ctx, LossGradient(s, target, a.cfg.Power)); err != nil {
			return 0, 0, err
		}
		n++
	}
	return errSum, n, nil
}

// LossGradient is d|s-t|^power/d(eval) up to a constant factor, where s is
// the sigmoid of the evaluation:
//
//	sign(s-t) * |s-t|^(power-1) * s * (1-s)
func LossGradient(s, target, power float32) float32 {
	diff := s - target
	var mag float32
	switch {
	case power == 2 || diff == 0:
		mag = diff
	default:
		mag = math32.Copysign(math32.Pow(math32.Abs(diff), power-1), diff)
	}
	return mag * s * (1 - s)
}
