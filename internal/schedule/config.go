package schedule

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout of a schedule file:
//
//	net_id: ataxx-256
//	eval_scale: 400
//	batch_size: 16384
//	batches_per_superbatch: 6104
//	start_superbatch: 1
//	end_superbatch: 40
//	save_rate: 10
//	wdl: {type: linear, start: 0.2, end: 0.5}
//	lr: {type: step, start: 0.001, gamma: 0.1, step: 15}
//	loss: {type: mpe, power: 2.6}
type fileConfig struct {
	NetID                string     `yaml:"net_id"`
	EvalScale            float32    `yaml:"eval_scale"`
	FtRegularisation     float32    `yaml:"ft_regularisation"`
	BatchSize            int        `yaml:"batch_size"`
	BatchesPerSuperbatch int        `yaml:"batches_per_superbatch"`
	StartSuperbatch      int        `yaml:"start_superbatch"`
	EndSuperbatch        int        `yaml:"end_superbatch"`
	SaveRate             int        `yaml:"save_rate"`
	WDL                  wdlConfig  `yaml:"wdl"`
	LR                   lrConfig   `yaml:"lr"`
	Loss                 lossConfig `yaml:"loss"`
}

type lrConfig struct {
	Type          string  `yaml:"type"`
	Value         float32 `yaml:"value"`
	Start         float32 `yaml:"start"`
	Gamma         float32 `yaml:"gamma"`
	Drop          int     `yaml:"drop"`
	Step          int     `yaml:"step"`
	WarmupBatches int     `yaml:"warmup_batches"`
	WarmupLR      float32 `yaml:"warmup_lr"`
}

type wdlConfig struct {
	Type  string  `yaml:"type"`
	Value float32 `yaml:"value"`
	Start float32 `yaml:"start"`
	End   float32 `yaml:"end"`
}

type lossConfig struct {
	Type  string  `yaml:"type"`
	Power float32 `yaml:"power"`
}

// Load reads and validates a YAML schedule file.
func Load(path string) (TrainingSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrainingSchedule{}, fmt.Errorf("read schedule: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return TrainingSchedule{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML schedule. Fields left out take their values from
// Default, except the net id which defaults to a random UUID.
func Parse(data []byte) (TrainingSchedule, error) {
	def := Default()
	cfg := fileConfig{
		EvalScale:            def.EvalScale,
		BatchSize:            def.BatchSize,
		BatchesPerSuperbatch: def.BatchesPerSuperbatch,
		StartSuperbatch:      def.StartSuperbatch,
		EndSuperbatch:        def.EndSuperbatch,
		SaveRate:             def.SaveRate,
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return TrainingSchedule{}, fmt.Errorf("decode schedule: %w", err)
	}

	s := TrainingSchedule{
		NetID:                cfg.NetID,
		EvalScale:            cfg.EvalScale,
		FtRegularisation:     cfg.FtRegularisation,
		BatchSize:            cfg.BatchSize,
		BatchesPerSuperbatch: cfg.BatchesPerSuperbatch,
		StartSuperbatch:      cfg.StartSuperbatch,
		EndSuperbatch:        cfg.EndSuperbatch,
		SaveRate:             cfg.SaveRate,
	}
	if s.NetID == "" {
		s.NetID = uuid.NewString()
	}

	var err error
	if s.LrScheduler, err = cfg.LR.build(def.LrScheduler); err != nil {
		return TrainingSchedule{}, err
	}
	if s.WdlScheduler, err = cfg.WDL.build(def.WdlScheduler); err != nil {
		return TrainingSchedule{}, err
	}
	if s.Loss, err = cfg.Loss.build(def.Loss); err != nil {
		return TrainingSchedule{}, err
	}

	if err := s.Validate(); err != nil {
		return TrainingSchedule{}, err
	}
	return s, nil
}

func (c lrConfig) build(def LrScheduler) (LrScheduler, error) {
	switch strings.ToLower(c.Type) {
	case "":
		return def, nil
	case "constant":
		return ConstantLR{Value: c.Value}, nil
	case "drop":
		return DropLR{Start: c.Start, Gamma: c.Gamma, Drop: c.Drop}, nil
	case "step":
		return StepLR{Start: c.Start, Gamma: c.Gamma, Step: c.Step}, nil
	case "step_with_warmup":
		return StepWithWarmupLR{
			Start:         c.Start,
			Gamma:         c.Gamma,
			Step:          c.Step,
			WarmupBatches: c.WarmupBatches,
			WarmupLR:      c.WarmupLR,
		}, nil
	case "cosine_annealing":
		return CosineAnnealingLR{Start: c.Start, Gamma: c.Gamma, Step: c.Step}, nil
	default:
		return nil, fmt.Errorf("%w: unknown lr scheduler %q", ErrInvalidSchedule, c.Type)
	}
}

func (c wdlConfig) build(def WdlScheduler) (WdlScheduler, error) {
	switch strings.ToLower(c.Type) {
	case "":
		return def, nil
	case "constant":
		return ConstantWDL{Value: c.Value}, nil
	case "linear":
		return LinearWDL{Start: c.Start, End: c.End}, nil
	default:
		return nil, fmt.Errorf("%w: unknown wdl scheduler %q", ErrInvalidSchedule, c.Type)
	}
}

func (c lossConfig) build(def Loss) (Loss, error) {
	switch strings.ToLower(c.Type) {
	case "":
		return def, nil
	case "mse":
		return SigmoidMSE{}, nil
	case "mpe":
		if c.Power < MinLossPower {
			return nil, fmt.Errorf("%w: mpe power %g", ErrInvalidSchedule, c.Power)
		}
		return SigmoidMPE{P: c.Power}, nil
	default:
		return nil, fmt.Errorf("%w: unknown loss %q", ErrInvalidSchedule, c.Type)
	}
}
