package optim

import "fmt"

// AdamW is Adam with decoupled weight decay followed by clipping every weight
// into [MinWeight, MaxWeight].
//
// Update rule, per element:
//
//	p = p * (1 - lr*decay)
//	m = beta1*m + (1-beta1)*g
//	v = beta2*v + (1-beta2)*g²
//	p = clamp(p - lr*m/(sqrt(v)+eps), min, max)
//
// No bias correction is applied.
type AdamW struct {
	Beta1     float32
	Beta2     float32
	Decay     float32
	MinWeight float32
	MaxWeight float32
}

// DefaultAdamW returns the usual NNUE training settings.
func DefaultAdamW() AdamW {
	return AdamW{
		Beta1:     0.9,
		Beta2:     0.999,
		Decay:     0.01,
		MinWeight: -1.98,
		MaxWeight: 1.98,
	}
}

// Name returns a description of the rule.
func (r AdamW) Name() string {
	return fmt.Sprintf("adamw(beta1=%g, beta2=%g, decay=%g, clip=[%g, %g])",
		r.Beta1, r.Beta2, r.Decay, r.MinWeight, r.MaxWeight)
}

func (AdamW) isRule() {}

// Adam is the plain Adam rule without bias correction, decay or clipping.
type Adam struct {
	Beta1 float32
	Beta2 float32
}

// DefaultAdam returns Adam with beta1 = 0.9 and beta2 = 0.999.
func DefaultAdam() Adam {
	return Adam{Beta1: 0.9, Beta2: 0.999}
}

// Name returns a description of the rule.
func (r Adam) Name() string {
	return fmt.Sprintf("adam(beta1=%g, beta2=%g)", r.Beta1, r.Beta2)
}

func (Adam) isRule() {}
