package schedule

import "fmt"

// WdlScheduler maps a superbatch to the blend between game result and
// evaluation score used as the training target.
type WdlScheduler interface {
	Blend(superbatch, end int) float32
	Describe(colour bool) string

	isWdlScheduler()
}

// ConstantWDL keeps the blend fixed.
type ConstantWDL struct {
	Value float32
}

// LinearWDL tapers linearly from Start at superbatch 1 to End at the final
// superbatch.
type LinearWDL struct {
	Start float32
	End   float32
}

// Blend returns Value.
func (s ConstantWDL) Blend(int, int) float32 {
	return s.Value
}

// Blend interpolates between Start and End.
func (s LinearWDL) Blend(superbatch, end int) float32 {
	grad := (s.End - s.Start) / float32(max(end-1, 1))
	return s.Start + grad*float32(superbatch-1)
}

func (s ConstantWDL) Describe(colour bool) string {
	return "constant " + paint(s.Value, colour)
}

func (s LinearWDL) Describe(colour bool) string {
	return fmt.Sprintf("linear taper start %s end %s", paint(s.Start, colour), paint(s.End, colour))
}

func (ConstantWDL) isWdlScheduler() {}
func (LinearWDL) isWdlScheduler()   {}
