package trainer

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamt19/bullet/internal/backend/cpu"
	"github.com/liamt19/bullet/internal/data"
	"github.com/liamt19/bullet/internal/inputs"
	"github.com/liamt19/bullet/internal/nnue"
	"github.com/liamt19/bullet/internal/optim"
	"github.com/liamt19/bullet/internal/schedule"
	"github.com/liamt19/bullet/internal/serialization"
	"github.com/liamt19/bullet/internal/tensor"
)

const boardMask = 1<<data.Squares - 1

func positions(n int, seed uint64) []data.AtaxxBoard {
	rng := rand.New(rand.NewPCG(seed, 1))
	out := make([]data.AtaxxBoard, n)
	for i := range out {
		x := rng.Uint64() & boardMask
		o := rng.Uint64() & boardMask &^ x
		gaps := rng.Uint64() & rng.Uint64() & boardMask &^ (x | o)
		score := int16(rng.IntN(801) - 400)
		result := float32(rng.IntN(3)) / 2
		out[i] = data.NewAtaxxBoard(x, o, gaps, score, result, rng.IntN(2) == 0, 1)
	}
	return out
}

// cycle hands out the same positions forever.
type cycle struct {
	positions []data.AtaxxBoard
	next      int
}

func (c *cycle) Next(_ context.Context, batch []data.AtaxxBoard) error {
	for i := range batch {
		batch[i] = c.positions[c.next]
		c.next = (c.next + 1) % len(c.positions)
	}
	return nil
}

func smallNetwork(t *testing.T) *nnue.Network {
	t.Helper()
	net, err := nnue.New(nnue.Config{
		Inputs:     inputs.Ataxx147{}.Inputs(),
		MaxActive:  inputs.Ataxx147{}.MaxActive(),
		Hidden:     8,
		Activation: tensor.SCReLU,
		Seed:       7,
	})
	require.NoError(t, err)
	return net
}

func allGrads(t *testing.T, net *nnue.Network) map[string][]float32 {
	t.Helper()
	out := map[string][]float32{}
	for _, p := range net.Params() {
		g := net.Graph().Gradients(p.Handle)
		out[p.Name] = append([]float32(nil), g...)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLossGradient(t *testing.T) {
	s, target := float32(0.7), float32(0.2)
	assert.InDelta(t, 0.5*0.7*0.3, LossGradient(s, target, 2), 1e-7)
	assert.InDelta(t, 0.25*0.7*0.3, LossGradient(s, target, 3), 1e-6)
	assert.InDelta(t, -0.25*0.3*0.7, LossGradient(0.3, 0.8, 3), 1e-6)
	assert.Zero(t, LossGradient(0.4, 0.4, 1))
}

func TestNewAccumulator_RejectsBadConfig(t *testing.T) {
	net := smallNetwork(t)
	ctx := cpu.New()
	for _, cfg := range []AccumulatorConfig{
		{Threads: 0, EvalScale: 400, Power: 2},
		{Threads: 1, EvalScale: 400, Power: 2, SkipProb: 1.5},
		{Threads: 1, EvalScale: 0, Power: 2},
		{Threads: 1, EvalScale: 400, Power: 0.5},
	} {
		_, err := NewAccumulator(ctx, net, inputs.Ataxx147{}, cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestGradients_SkipEverything(t *testing.T) {
	net := smallNetwork(t)
	cfg := DefaultAccumulatorConfig()
	cfg.SkipProb = 1
	cfg.Threads = 2
	acc, err := NewAccumulator(cpu.New(), net, inputs.Ataxx147{}, cfg)
	require.NoError(t, err)

	errSum, n, err := acc.Gradients(context.Background(), positions(32, 1), 0.5)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, errSum)
	for name, g := range allGrads(t, net) {
		for i, v := range g {
			require.Zerof(t, v, "%s[%d]", name, i)
		}
	}
}

func TestGradients_IndependentOfThreadCount(t *testing.T) {
	batch := positions(37, 2)

	run := func(threads int) (float32, int, map[string][]float32) {
		net := smallNetwork(t)
		cfg := DefaultAccumulatorConfig()
		cfg.Threads = threads
		acc, err := NewAccumulator(cpu.New(), net, inputs.Ataxx147{}, cfg)
		require.NoError(t, err)
		errSum, n, err := acc.Gradients(context.Background(), batch, 0.3)
		require.NoError(t, err)
		return errSum, n, allGrads(t, net)
	}

	errOne, nOne, gradsOne := run(1)
	errFour, nFour, gradsFour := run(4)

	assert.Equal(t, 37, nOne)
	assert.Equal(t, nOne, nFour)
	assert.InDelta(t, errOne, errFour, 1e-4)
	for name, g := range gradsOne {
		assert.InDeltaSlicef(t, g, gradsFour[name], 1e-4, "%s", name)
	}
}

func TestGradients_SumsIntoPrimary(t *testing.T) {
	net := smallNetwork(t)
	acc, err := NewAccumulator(cpu.New(), net, inputs.Ataxx147{}, DefaultAccumulatorConfig())
	require.NoError(t, err)

	batch := positions(8, 3)
	_, _, err = acc.Gradients(context.Background(), batch, 0.5)
	require.NoError(t, err)
	once := allGrads(t, net)

	_, _, err = acc.Gradients(context.Background(), batch, 0.5)
	require.NoError(t, err)
	twice := allGrads(t, net)

	for name, g := range once {
		doubled := make([]float32, len(g))
		for i, v := range g {
			doubled[i] = 2 * v
		}
		assert.InDeltaSlicef(t, doubled, twice[name], 1e-5, "%s", name)
	}
}

func TestGradients_Cancelled(t *testing.T) {
	net := smallNetwork(t)
	acc, err := NewAccumulator(cpu.New(), net, inputs.Ataxx147{}, DefaultAccumulatorConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = acc.Gradients(ctx, positions(4, 4), 0.5)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
}

func trainingConfig(out string) Config {
	cfg := DefaultConfig()
	cfg.Threads = 2
	cfg.OutDir = out
	cfg.Schedule = schedule.TrainingSchedule{
		NetID:                "test",
		EvalScale:            400,
		BatchSize:            32,
		BatchesPerSuperbatch: 16,
		StartSuperbatch:      1,
		EndSuperbatch:        5,
		WdlScheduler:         schedule.ConstantWDL{Value: 0.5},
		LrScheduler:          schedule.ConstantLR{Value: 0.01},
		Loss:                 schedule.SigmoidMSE{},
		SaveRate:             2,
	}
	return cfg
}

func TestRun_LowersError(t *testing.T) {
	ctx := cpu.New()
	tr, err := New(trainingConfig(""), smallNetwork(t), ctx, ctx, optim.DefaultAdamW(), quietLogger())
	require.NoError(t, err)

	reports, err := tr.Run(context.Background(), &cycle{positions: positions(64, 5)})
	require.NoError(t, err)
	require.Len(t, reports, 5)

	for i, r := range reports {
		assert.Equal(t, i+1, r.Superbatch)
		assert.Equal(t, 32*16, r.Positions)
		assert.Empty(t, r.Checkpoint)
	}
	assert.Less(t, reports[4].Error, reports[0].Error)
}

func TestRun_CheckpointsAndResume(t *testing.T) {
	dir := t.TempDir()
	ctx := cpu.New()
	cfg := trainingConfig(dir)
	cfg.Schedule.EndSuperbatch = 3

	tr, err := New(cfg, smallNetwork(t), ctx, ctx, optim.DefaultAdamW(), quietLogger())
	require.NoError(t, err)
	reports, err := tr.Run(context.Background(), &cycle{positions: positions(16, 6)})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Empty(t, reports[0].Checkpoint)
	assert.Equal(t, filepath.Join(dir, "test-2.bnet"), reports[1].Checkpoint)
	assert.Equal(t, filepath.Join(dir, "test-3.bnet"), reports[2].Checkpoint)
	for _, r := range reports[1:] {
		_, err := os.Stat(r.Checkpoint)
		require.NoError(t, err)
	}

	file, err := serialization.ReadFile(reports[2].Checkpoint, serialization.ReaderOptions{})
	require.NoError(t, err)
	meta := file.Header().CheckpointMeta
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.Superbatch)
	assert.Equal(t, optim.DefaultAdamW().Name(), meta.Optimizer)
	assert.Equal(t, "bullet "+Version, file.Header().WriterVersion)

	resumed, err := New(cfg, smallNetwork(t), ctx, ctx, optim.DefaultAdamW(), quietLogger())
	require.NoError(t, err)
	require.NoError(t, resumed.Resume(reports[1].Checkpoint))

	trained := tr.Network()
	fresh := resumed.Network()
	for i, p := range fresh.Params() {
		assert.NotEqual(t, trained.Graph().Values(trained.Params()[i].Handle), fresh.Graph().Values(p.Handle),
			"superbatch 2 weights differ from superbatch 3 weights")
	}

	more, err := resumed.Run(context.Background(), &cycle{positions: positions(16, 6)})
	require.NoError(t, err)
	require.Len(t, more, 1)
	assert.Equal(t, 3, more[0].Superbatch)
}

func TestRun_NothingLeftAfterResume(t *testing.T) {
	dir := t.TempDir()
	ctx := cpu.New()
	cfg := trainingConfig(dir)
	cfg.Schedule.EndSuperbatch = 2

	tr, err := New(cfg, smallNetwork(t), ctx, ctx, optim.DefaultAdam(), quietLogger())
	require.NoError(t, err)
	reports, err := tr.Run(context.Background(), &cycle{positions: positions(8, 7)})
	require.NoError(t, err)

	require.NoError(t, tr.Resume(reports[1].Checkpoint))
	_, err = tr.Run(context.Background(), &cycle{positions: positions(8, 7)})
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx := cpu.New()
	tr, err := New(trainingConfig(""), smallNetwork(t), ctx, ctx, optim.DefaultAdamW(), quietLogger())
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	reports, err := tr.Run(runCtx, &cycle{positions: positions(8, 8)})
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.Empty(t, reports)
}

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	ctx := cpu.New()
	cfg := trainingConfig("")
	cfg.Schedule.BatchSize = 0
	_, err := New(cfg, smallNetwork(t), ctx, ctx, optim.DefaultAdamW(), quietLogger())
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
}
