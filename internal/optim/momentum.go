package optim

import "fmt"

// Momentum is SGD with momentum: p -= lr * m where m = beta*m + (1-beta)*g.
//
// It reuses the Adam kernel without the denominator, so velocity is still
// tracked and checkpointed.
type Momentum struct {
	Beta float32
}

// Name returns a description of the rule.
func (r Momentum) Name() string {
	return fmt.Sprintf("momentum(beta=%g)", r.Beta)
}

func (Momentum) isRule() {}
