// Package elmanrnn implements the forward pass of
// multi-layer, optionally bidirectional Elman recurrent
// neural networks.
//
// The package follows the conventional batched RNN shape
// contract: sequences may be passed unbatched as
// (seq, feature) tensors or batched as rank-3 tensors in
// either sequence-first or batch-first order, while
// hidden-state tensors always lead with the
// layer/direction axis.
package elmanrnn

import "github.com/unixpickle/anydiff"

// A Parameterizer is anything with learnable variables.
//
// The parameters of a Parameterizer must be in the same
// order every time Parameters() is called.
type Parameterizer interface {
	Parameters() []*anydiff.Var
}

// AllParameters gathers the parameters of every argument
// which implements Parameterizer.
func AllParameters(items ...interface{}) []*anydiff.Var {
	var res []*anydiff.Var
	for _, x := range items {
		if p, ok := x.(Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}
