// Package schedule describes a training run: its length, batch sizes, and
// how the learning rate, WDL blend and loss evolve per superbatch.
//
// Schedules are plain values. They can be built in code or loaded from YAML
// with Load and Parse.
package schedule

import (
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// ErrInvalidSchedule is returned by Validate for inconsistent settings.
var ErrInvalidSchedule = errors.New("invalid training schedule")

// TrainingSchedule describes one training run. Superbatches are 1-based and
// run from StartSuperbatch to EndSuperbatch inclusive.
type TrainingSchedule struct {
	NetID                string
	EvalScale            float32
	FtRegularisation     float32
	BatchSize            int
	BatchesPerSuperbatch int
	StartSuperbatch      int
	EndSuperbatch        int
	WdlScheduler         WdlScheduler
	LrScheduler          LrScheduler
	Loss                 Loss
	SaveRate             int
}

// Default returns a short schedule suitable for smoke tests.
func Default() TrainingSchedule {
	return TrainingSchedule{
		NetID:                "net",
		EvalScale:            400,
		BatchSize:            16384,
		BatchesPerSuperbatch: 100,
		StartSuperbatch:      1,
		EndSuperbatch:        10,
		WdlScheduler:         ConstantWDL{Value: 0.5},
		LrScheduler:          StepLR{Start: 0.001, Gamma: 0.1, Step: 5},
		Loss:                 SigmoidMSE{},
		SaveRate:             5,
	}
}

// Validate checks that the schedule can be run.
func (s TrainingSchedule) Validate() error {
	switch {
	case s.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d", ErrInvalidSchedule, s.BatchSize)
	case s.BatchesPerSuperbatch <= 0:
		return fmt.Errorf("%w: batches per superbatch %d", ErrInvalidSchedule, s.BatchesPerSuperbatch)
	case s.StartSuperbatch < 1 || s.EndSuperbatch < s.StartSuperbatch:
		return fmt.Errorf("%w: superbatches %d..%d", ErrInvalidSchedule, s.StartSuperbatch, s.EndSuperbatch)
	case s.SaveRate <= 0:
		return fmt.Errorf("%w: save rate %d", ErrInvalidSchedule, s.SaveRate)
	case s.EvalScale <= 0:
		return fmt.Errorf("%w: eval scale %g", ErrInvalidSchedule, s.EvalScale)
	case s.LrScheduler == nil || s.WdlScheduler == nil || s.Loss == nil:
		return fmt.Errorf("%w: missing scheduler or loss", ErrInvalidSchedule)
	case s.Loss.Power() < MinLossPower:
		return fmt.Errorf("%w: loss power %g below %d", ErrInvalidSchedule, s.Loss.Power(), MinLossPower)
	}

	switch lr := s.LrScheduler.(type) {
	case StepLR:
		if lr.Step <= 0 {
			return fmt.Errorf("%w: lr step %d", ErrInvalidSchedule, lr.Step)
		}
	case StepWithWarmupLR:
		if lr.Step <= 0 {
			return fmt.Errorf("%w: lr step %d", ErrInvalidSchedule, lr.Step)
		}
	case CosineAnnealingLR:
		if lr.Step <= 0 {
			return fmt.Errorf("%w: lr step %d", ErrInvalidSchedule, lr.Step)
		}
	}
	return nil
}

// ShouldSave reports whether a checkpoint is due after superbatch.
func (s TrainingSchedule) ShouldSave(superbatch int) bool {
	return superbatch%s.SaveRate == 0 || superbatch == s.EndSuperbatch
}

// LR returns the learning rate for superbatch.
func (s TrainingSchedule) LR(superbatch int) float32 {
	return s.LrScheduler.LR(superbatch)
}

// WDL returns the result/score blend for superbatch.
func (s TrainingSchedule) WDL(superbatch int) float32 {
	return s.WdlScheduler.Blend(superbatch, s.EndSuperbatch)
}

// Power returns the loss exponent.
func (s TrainingSchedule) Power() float32 {
	return s.Loss.Power()
}

// PositionsPerSuperbatch returns BatchSize * BatchesPerSuperbatch.
func (s TrainingSchedule) PositionsPerSuperbatch() int {
	return s.BatchSize * s.BatchesPerSuperbatch
}

// Rows returns the schedule as label/value pairs in display order.
func (s TrainingSchedule) Rows(colour bool) [][]string {
	ftReg := "-"
	if s.FtRegularisation != 0 {
		ftReg = paint(fmt.Sprintf("%.0f", 1/s.FtRegularisation), colour)
	}
	return [][]string{
		{"Net ID", paint(s.NetID, colour)},
		{"Scale", paint(fmt.Sprintf("%.0f", s.EvalScale), colour)},
		{"1 / FT Regularisation", ftReg},
		{"Batch Size", paint(s.BatchSize, colour)},
		{"Batches / Superbatch", paint(s.BatchesPerSuperbatch, colour)},
		{"Positions / Superbatch", paint(s.PositionsPerSuperbatch(), colour)},
		{"Start Superbatch", paint(s.StartSuperbatch, colour)},
		{"End Superbatch", paint(s.EndSuperbatch, colour)},
		{"Save Rate", paint(s.SaveRate, colour)},
		{"Loss", s.Loss.String()},
		{"WDL Scheduler", s.WdlScheduler.Describe(colour)},
		{"LR Scheduler", s.LrScheduler.Describe(colour)},
	}
}

// Display writes the schedule to w as a table.
func (s TrainingSchedule) Display(w io.Writer, colour bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Setting", "Value"})
	table.SetAutoWrapText(false)
	table.AppendBulk(s.Rows(colour))
	table.Render()
}
