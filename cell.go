package elmanrnn

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Cell
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCell)
}

// A Cell is a single Elman recurrence layer.
//
// At every timestep, the previous hidden state and the
// current input are concatenated and passed through one
// affine transformation followed by the activation:
//
//     h[t] := s(W*concat(h[t-1], x[t]) + b)
//
// The weight matrix has OutCount rows and OutCount+InCount
// columns; the first OutCount columns act on the hidden
// state and the remaining InCount columns on the input.
type Cell struct {
	InCount  int
	OutCount int

	Weights *anydiff.Var
	Biases  *anydiff.Var

	Activation Activation
}

// DeserializeCell deserializes a Cell.
func DeserializeCell(d []byte) (*Cell, error) {
	var w, b *anyvecsave.S
	var act Activation
	if err := serializer.DeserializeAny(d, &w, &b, &act); err != nil {
		return nil, essentials.AddCtx("deserialize Cell", err)
	}
	out := b.Vector.Len()
	if out == 0 || w.Vector.Len()%out != 0 || w.Vector.Len()/out <= out {
		return nil, errors.New("deserialize Cell: invalid matrix dimensions")
	}
	return &Cell{
		InCount:    w.Vector.Len()/out - out,
		OutCount:   out,
		Weights:    anydiff.NewVar(w.Vector),
		Biases:     anydiff.NewVar(b.Vector),
		Activation: act,
	}, nil
}

// NewCell creates a new, randomized Cell.
// Weights are drawn from a normal distribution and scaled
// to target an output variance of 1, given that the
// inputs have a variance of 1.
func NewCell(c anyvec.Creator, in, out int, activation Activation) *Cell {
	res := NewCellZero(c, in, out, activation)
	anyvec.Rand(res.Weights.Vector, anyvec.Normal, nil)
	res.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in+out))))
	return res
}

// NewCellZero creates a new, zero'd out Cell.
func NewCellZero(c anyvec.Creator, in, out int, activation Activation) *Cell {
	return &Cell{
		InCount:    in,
		OutCount:   out,
		Weights:    anydiff.NewVar(c.MakeVector(out * (in + out))),
		Biases:     anydiff.NewVar(c.MakeVector(out)),
		Activation: activation,
	}
}

// Step computes one timestep for a batch.
//
// The hidden state h and the input x are row-major
// matrices with batch rows; h has OutCount columns and x
// has InCount columns. The result has the same layout as
// h.
func (c *Cell) Step(h, x anydiff.Res, batch int) anydiff.Res {
	if h.Output().Len() != batch*c.OutCount {
		panic(fmt.Sprintf("state length should be %d, but got %d",
			batch*c.OutCount, h.Output().Len()))
	}
	if x.Output().Len() != batch*c.InCount {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			batch*c.InCount, x.Output().Len()))
	}
	joined := concatRows(h, x, batch)
	weightMat := &anydiff.Matrix{
		Data: c.Weights,
		Rows: c.OutCount,
		Cols: c.OutCount + c.InCount,
	}
	inMat := &anydiff.Matrix{
		Data: joined,
		Rows: batch,
		Cols: c.OutCount + c.InCount,
	}
	weighted := anydiff.MatMul(false, true, inMat, weightMat)
	return c.Activation.Apply(anydiff.AddRepeated(weighted.Data, c.Biases))
}

// Run evaluates the cell over a canonical (seqLen, batch,
// InCount) input sequence, strictly in time order.
//
// If h0 is nil, the start state is all zeros; otherwise
// it must be a (batch, OutCount) matrix. The output is
// the packed (seqLen, batch, OutCount) sequence of hidden
// states along with the final hidden state.
func (c *Cell) Run(x anydiff.Res, seqLen, batch int, h0 anydiff.Res) (out,
	hidden anydiff.Res, err error) {
	const op = "run cell"
	if seqLen < 1 || batch < 1 {
		return nil, nil, shapeErrorf(op, "sequence and batch must be non-empty")
	}
	if x.Output().Len() != seqLen*batch*c.InCount {
		return nil, nil, shapeErrorf(op, "input length %d does not match shape (%d, %d, %d)",
			x.Output().Len(), seqLen, batch, c.InCount)
	}
	if h0 == nil {
		h0 = anydiff.NewConst(x.Output().Creator().MakeVector(batch * c.OutCount))
	} else if h0.Output().Len() != batch*c.OutCount {
		return nil, nil, shapeErrorf(op, "initial state length %d does not match shape (%d, %d)",
			h0.Output().Len(), batch, c.OutCount)
	}
	state := h0
	steps := make([]anydiff.Res, seqLen)
	stepLen := batch * c.InCount
	for t := range steps {
		in := anydiff.Slice(x, t*stepLen, (t+1)*stepLen)
		state = c.Step(state, in, batch)
		steps[t] = state
	}
	return anydiff.Concat(steps...), state, nil
}

// Parameters returns the weights and the biases, in that
// order.
func (c *Cell) Parameters() []*anydiff.Var {
	return []*anydiff.Var{c.Weights, c.Biases}
}

// SerializerType returns the unique ID used to serialize
// a Cell with the serializer package.
func (c *Cell) SerializerType() string {
	return "github.com/unixpickle/elmanrnn.Cell"
}

// Serialize serializes the Cell.
func (c *Cell) Serialize() ([]byte, error) {
	w := &anyvecsave.S{Vector: c.Weights.Vector}
	b := &anyvecsave.S{Vector: c.Biases.Vector}
	return serializer.SerializeAny(w, b, c.Activation)
}
