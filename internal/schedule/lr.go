package schedule

import (
	"fmt"

	"github.com/chewxy/math32"
)

// LrScheduler maps a superbatch (1-based) to a learning rate. The set of
// schedulers is closed; see the types in this file.
type LrScheduler interface {
	LR(superbatch int) float32
	// Describe renders the scheduler for display, colouring numbers when
	// colour is true.
	Describe(colour bool) string

	isLrScheduler()
}

// ConstantLR keeps the learning rate fixed.
type ConstantLR struct {
	Value float32
}

// DropLR drops the rate once, by Gamma, after superbatch Drop.
type DropLR struct {
	Start float32
	Gamma float32
	Drop  int
}

// StepLR drops the rate by Gamma every Step superbatches.
type StepLR struct {
	Start float32
	Gamma float32
	Step  int
}

// StepWithWarmupLR runs StepLR from WarmupLR for the first WarmupBatches
// superbatches, then restarts it from Start.
type StepWithWarmupLR struct {
	Start         float32
	Gamma         float32
	Step          int
	WarmupBatches int
	WarmupLR      float32
}

// CosineAnnealingLR decays by Gamma every superbatch and follows a cosine
// curve that resets with a period that doubles as training goes on.
type CosineAnnealingLR struct {
	Start float32
	Gamma float32
	Step  int
}

const cosineFloor = 0.00001

func stepsTaken(superbatch, step int) int {
	return max(superbatch-1, 0) / step
}

// LR returns Value.
func (s ConstantLR) LR(int) float32 {
	return s.Value
}

// LR returns Start, or Start*Gamma once superbatch exceeds Drop.
func (s DropLR) LR(superbatch int) float32 {
	if superbatch > s.Drop {
		return s.Start * s.Gamma
	}
	return s.Start
}

// LR returns Start * Gamma^((superbatch-1)/Step).
func (s StepLR) LR(superbatch int) float32 {
	return s.Start * math32.Pow(s.Gamma, float32(stepsTaken(superbatch, s.Step)))
}

// LR applies the step rule from WarmupLR during warmup and from Start after.
func (s StepWithWarmupLR) LR(superbatch int) float32 {
	if superbatch <= s.WarmupBatches {
		return s.WarmupLR * math32.Pow(s.Gamma, float32(stepsTaken(superbatch, s.Step)))
	}
	actual := superbatch - s.WarmupBatches
	return s.Start * math32.Pow(s.Gamma, float32(stepsTaken(actual, s.Step)))
}

// period returns the current reset period: Step until superbatch 2*Step,
// then 2*Step, 4*Step and finally 8*Step.
func (s CosineAnnealingLR) period(superbatch int) int {
	switch {
	case superbatch < s.Step*2:
		return s.Step
	case superbatch < s.Step*4:
		return s.Step * 2
	case superbatch < s.Step*8:
		return s.Step * 4
	default:
		return s.Step * 8
	}
}

// LR returns 0.5 * Start * Gamma^superbatch * (1 + 1e-5 + cos(π·(superbatch mod p)/p)).
func (s CosineAnnealingLR) LR(superbatch int) float32 {
	p := s.period(superbatch)
	decay := math32.Pow(s.Gamma, float32(superbatch))
	phase := math32.Pi * float32(superbatch%p) / float32(p)
	return 0.5 * s.Start * decay * (1 + cosineFloor + math32.Cos(phase))
}

func (s ConstantLR) Describe(colour bool) string {
	return "constant " + paint(s.Value, colour)
}

func (s DropLR) Describe(colour bool) string {
	return fmt.Sprintf("start %s gamma %s drop at %s superbatches",
		paint(s.Start, colour), paint(s.Gamma, colour), paint(s.Drop, colour))
}

func (s StepLR) Describe(colour bool) string {
	return fmt.Sprintf("start %s gamma %s drop every %s superbatches",
		paint(s.Start, colour), paint(s.Gamma, colour), paint(s.Step, colour))
}

func (s StepWithWarmupLR) Describe(colour bool) string {
	return fmt.Sprintf("warmup %s for %s superbatches, start %s gamma %s drop every %s superbatches",
		paint(s.WarmupLR, colour), paint(s.WarmupBatches, colour),
		paint(s.Start, colour), paint(s.Gamma, colour), paint(s.Step, colour))
}

func (s CosineAnnealingLR) Describe(colour bool) string {
	return fmt.Sprintf("start %s gamma %s resets every %s superbatches",
		paint(s.Start, colour), paint(s.Gamma, colour), paint(s.Step, colour))
}

func (ConstantLR) isLrScheduler()        {}
func (DropLR) isLrScheduler()            {}
func (StepLR) isLrScheduler()            {}
func (StepWithWarmupLR) isLrScheduler()  {}
func (CosineAnnealingLR) isLrScheduler() {}
