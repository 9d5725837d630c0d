package schedule

import "fmt"

// Loss selects the training loss on sigmoid(eval) against the blended
// target. It is either SigmoidMSE or SigmoidMPE.
type Loss interface {
	// Power is the exponent applied to |sigmoid(eval) - target|.
	Power() float32
	String() string

	isLoss()
}

// MinLossPower is the smallest exponent a loss may use. Below 1 the
// derivative of |d|^P is unbounded as d approaches 0.
const MinLossPower = 1

// SigmoidMSE is the squared error between sigmoid(eval) and the target.
type SigmoidMSE struct{}

// SigmoidMPE generalises SigmoidMSE to an arbitrary power.
type SigmoidMPE struct {
	P float32
}

// Power returns 2.
func (SigmoidMSE) Power() float32 { return 2 }

// Power returns P.
func (l SigmoidMPE) Power() float32 { return l.P }

func (SigmoidMSE) String() string { return "sigmoid mse" }

func (l SigmoidMPE) String() string { return fmt.Sprintf("sigmoid mpe (power %g)", l.P) }

func (SigmoidMSE) isLoss() {}
func (SigmoidMPE) isLoss() {}
