package optim

// SGD is stochastic gradient descent with optional classical momentum.
type SGD struct {
	LearningRate float64
	Momentum     float64

	velocity map[int][]float64
}

func NewSGD(lr float64) *SGD { return &SGD{LearningRate: lr} }

// NewMomentumSGD returns an SGD optimizer that keeps a velocity per
// parameter group.
func NewMomentumSGD(lr, momentum float64) *SGD {
	return &SGD{LearningRate: lr, Momentum: momentum}
}

// Step updates weights in place: w -= lr * g.
func (o *SGD) Step(weights, grads []float64) {
	for i := range weights {
		weights[i] -= o.LearningRate * grads[i]
	}
}

// Update applies a momentum step to the parameter group identified by key.
// With zero momentum it is equivalent to Step.
func (o *SGD) Update(key int, weights, grads []float64) {
	if o.Momentum == 0 {
		o.Step(weights, grads)
		return
	}
	if o.velocity == nil {
		o.velocity = make(map[int][]float64)
	}
	v, ok := o.velocity[key]
	if !ok {
		v = make([]float64, len(weights))
		o.velocity[key] = v
	}
	for i := range weights {
		v[i] = o.Momentum*v[i] - o.LearningRate*grads[i]
		weights[i] += v[i]
	}
}
