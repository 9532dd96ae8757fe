package elmanrnn

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s Stack
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeStack)
}

// A Stack composes Cells vertically: the first cell's
// output sequence is fed as the second cell's input
// sequence, and so on.
//
// Dropout, when configured, is applied to the sequences
// passed between cells. It is never applied to the last
// cell's output or to any recurrent connection.
type Stack struct {
	Cells   []*Cell
	Dropout *Dropout
}

// DeserializeStack deserializes a Stack.
func DeserializeStack(d []byte) (*Stack, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Stack", err)
	}
	if len(slice) < 2 {
		return nil, errors.New("deserialize Stack: not enough objects")
	}
	dropout, ok := slice[len(slice)-1].(*Dropout)
	if !ok {
		return nil, fmt.Errorf("deserialize Stack: not a Dropout: %T", slice[len(slice)-1])
	}
	res := &Stack{Cells: make([]*Cell, len(slice)-1), Dropout: dropout}
	for i, x := range slice[:len(slice)-1] {
		cell, ok := x.(*Cell)
		if !ok {
			return nil, fmt.Errorf("deserialize Stack: not a Cell: %T", x)
		}
		res.Cells[i] = cell
	}
	return res, nil
}

// NewStack creates a new, randomized Stack of numLayers
// cells. The bottom cell maps in inputs to hidden
// outputs; deeper cells map hidden to hidden.
//
// The dropout argument is the probability of dropping a
// component between layers and must be in [0, 1). The
// resulting Dropout starts out disabled.
func NewStack(c anyvec.Creator, in, hidden, numLayers int, activation Activation,
	dropout float64) (*Stack, error) {
	if in < 1 {
		return nil, &ConfigError{Field: "input size", Reason: "must be positive"}
	}
	if hidden < 1 {
		return nil, &ConfigError{Field: "hidden size", Reason: "must be positive"}
	}
	if numLayers < 1 {
		return nil, &ConfigError{Field: "num layers", Reason: "must be at least 1"}
	}
	if dropout < 0 || dropout >= 1 {
		return nil, &ConfigError{Field: "dropout", Reason: "must be in [0, 1)"}
	}
	if activation != Tanh && activation != ReLU {
		return nil, &ConfigError{Field: "nonlinearity",
			Reason: fmt.Sprintf("unknown activation: %d", activation)}
	}
	cells := make([]*Cell, numLayers)
	for i := range cells {
		if i == 0 {
			cells[i] = NewCell(c, in, hidden, activation)
		} else {
			cells[i] = NewCell(c, hidden, hidden, activation)
		}
	}
	return &Stack{Cells: cells, Dropout: &Dropout{Prob: dropout}}, nil
}

// Run evaluates the stack over a canonical (seqLen,
// batch, in) input sequence.
//
// The h0s argument optionally holds one initial hidden
// state per cell, each a (batch, hidden) matrix; nil
// means all zeros. The returned out is the last cell's
// output sequence, and hiddens holds the final state of
// every cell, bottom cell first.
func (s *Stack) Run(x anydiff.Res, seqLen, batch int, h0s []anydiff.Res) (out anydiff.Res,
	hiddens []anydiff.Res, err error) {
	if len(s.Cells) == 0 {
		return nil, nil, &ConfigError{Field: "num layers", Reason: "must be at least 1"}
	}
	if h0s != nil && len(h0s) != len(s.Cells) {
		return nil, nil, shapeErrorf("run stack", "got %d initial states for %d layers",
			len(h0s), len(s.Cells))
	}
	hiddens = make([]anydiff.Res, len(s.Cells))
	for i, cell := range s.Cells {
		var h0 anydiff.Res
		if h0s != nil {
			h0 = h0s[i]
		}
		var hidden anydiff.Res
		x, hidden, err = cell.Run(x, seqLen, batch, h0)
		if err != nil {
			return nil, nil, err
		}
		hiddens[i] = hidden
		if i+1 < len(s.Cells) && s.Dropout != nil {
			x = s.Dropout.Apply(x)
		}
	}
	return x, hiddens, nil
}

// Parameters returns the parameters of every cell, bottom
// cell first.
func (s *Stack) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, c := range s.Cells {
		res = append(res, c.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Stack with the serializer package.
func (s *Stack) SerializerType() string {
	return "github.com/unixpickle/elmanrnn.Stack"
}

// Serialize serializes the Stack.
func (s *Stack) Serialize() ([]byte, error) {
	objs := make([]serializer.Serializer, 0, len(s.Cells)+1)
	for _, c := range s.Cells {
		objs = append(objs, c)
	}
	objs = append(objs, s.Dropout)
	return serializer.SerializeSlice(objs)
}
