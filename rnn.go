package elmanrnn

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r RNN
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeRNN)
}

// A Config specifies an RNN.
type Config struct {
	// InCount is the input feature size.
	InCount int

	// HiddenCount is the hidden state size.
	HiddenCount int

	// NumLayers is the number of stacked layers per
	// direction. A zero value means 1.
	NumLayers int

	// Activation is the per-step nonlinearity.
	Activation Activation

	// BatchFirst makes rank-3 inputs and outputs use the
	// (batch, seq, feature) layout rather than the default
	// (seq, batch, feature). Hidden-state tensors are not
	// affected.
	BatchFirst bool

	// Dropout is the probability of dropping a component
	// between stacked layers. It must be in [0, 1).
	Dropout float64

	// Bidirectional adds a second, independent stack which
	// consumes the time-reversed sequence. The two stacks
	// share no parameters.
	Bidirectional bool

	// AlignOutputs re-reverses the backward direction's
	// output sequence so that every output position
	// combines the two directions at the same original
	// timestep. It has no effect unless Bidirectional is
	// set.
	AlignOutputs bool
}

// An RNN is a multi-layer, optionally bidirectional Elman
// network.
//
// An RNN keeps no state between calls to Apply: with
// dropout disabled, the same input always produces the
// same output.
type RNN struct {
	BatchFirst bool

	Forward  *Stack
	Backward *Stack

	Align bool
}

// DeserializeRNN deserializes an RNN.
func DeserializeRNN(d []byte) (*RNN, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize RNN", err)
	}
	if len(slice) != 2 && len(slice) != 3 {
		return nil, errors.New("deserialize RNN: unexpected object count")
	}
	flags, ok1 := slice[0].(serializer.Int)
	forward, ok2 := slice[1].(*Stack)
	if !ok1 || !ok2 {
		return nil, errors.New("deserialize RNN: unexpected object types")
	}
	res := &RNN{
		BatchFirst: flags&1 != 0,
		Forward:    forward,
		Align:      flags&2 != 0,
	}
	if len(slice) == 3 {
		backward, ok := slice[2].(*Stack)
		if !ok {
			return nil, errors.New("deserialize RNN: unexpected object types")
		}
		res.Backward = backward
	}
	return res, nil
}

// NewRNN creates a new, randomized RNN from a
// configuration.
func NewRNN(c anyvec.Creator, conf Config) (*RNN, error) {
	layers := conf.NumLayers
	if layers == 0 {
		layers = 1
	}
	forward, err := NewStack(c, conf.InCount, conf.HiddenCount, layers,
		conf.Activation, conf.Dropout)
	if err != nil {
		return nil, err
	}
	res := &RNN{
		BatchFirst: conf.BatchFirst,
		Forward:    forward,
		Align:      conf.AlignOutputs,
	}
	if conf.Bidirectional {
		res.Backward, err = NewStack(c, conf.InCount, conf.HiddenCount, layers,
			conf.Activation, conf.Dropout)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Apply runs the network over an input sequence.
//
// The input x is rank 2 (seq, feature) for a single
// unbatched sequence, or rank 3 for a batch laid out
// according to BatchFirst. The optional h0 provides
// initial hidden states; its leading axis is always the
// layer/direction axis (forward layers first, bottom
// layer first, then backward layers), with a middle batch
// axis when and only when x is batched.
//
// The output mirrors x's convention with the feature axis
// equal to the hidden size, doubled when bidirectional.
// The returned hidden state mirrors the h0 layout and is
// never reordered by BatchFirst.
func (r *RNN) Apply(x, h0 *Tensor) (out, hidden *Tensor, err error) {
	inCount := r.Forward.Cells[0].InCount
	hiddenCount := r.Forward.Cells[len(r.Forward.Cells)-1].OutCount

	vec, seqLen, batch, batched, err := normalizeInput(x, inCount, r.BatchFirst)
	if err != nil {
		return nil, nil, err
	}
	numStates := len(r.Forward.Cells)
	if r.Backward != nil {
		numStates += len(r.Backward.Cells)
	}
	h0s, err := splitStates(h0, numStates, batch, hiddenCount, batched)
	if err != nil {
		return nil, nil, err
	}

	inRes := anydiff.NewConst(vec)
	var outRes anydiff.Res
	var hiddens []anydiff.Res
	if r.Backward != nil {
		b := &Bidir{Forward: r.Forward, Backward: r.Backward, Align: r.Align}
		outRes, hiddens, err = b.Run(inRes, seqLen, batch, h0s)
	} else {
		outRes, hiddens, err = r.Forward.Run(inRes, seqLen, batch, h0s)
	}
	if err != nil {
		return nil, nil, err
	}

	outFeat := outRes.Output().Len() / (seqLen * batch)
	out = denormalizeOutput(outRes.Output(), seqLen, batch, outFeat, r.BatchFirst, batched)
	hidden = joinStates(hiddens, batch, hiddenCount, batched)
	return out, hidden, nil
}

// SetTraining enables or disables dropout.
func (r *RNN) SetTraining(training bool) {
	r.Forward.Dropout.Enabled = training
	if r.Backward != nil {
		r.Backward.Dropout.Enabled = training
	}
}

// Parameters returns the parameters of the forward stack,
// followed by those of the backward stack if there is
// one.
func (r *RNN) Parameters() []*anydiff.Var {
	if r.Backward == nil {
		return r.Forward.Parameters()
	}
	return AllParameters(r.Forward, r.Backward)
}

// SerializerType returns the unique ID used to serialize
// an RNN with the serializer package.
func (r *RNN) SerializerType() string {
	return "github.com/unixpickle/elmanrnn.RNN"
}

// Serialize serializes the RNN.
func (r *RNN) Serialize() ([]byte, error) {
	flags := serializer.Int(0)
	if r.BatchFirst {
		flags |= 1
	}
	if r.Align {
		flags |= 2
	}
	objs := []serializer.Serializer{flags, r.Forward}
	if r.Backward != nil {
		objs = append(objs, r.Backward)
	}
	return serializer.SerializeSlice(objs)
}

// splitStates validates a caller-provided initial hidden
// state tensor and splits it into per-layer (batch,
// hidden) matrices.
func splitStates(h0 *Tensor, layers, batch, hidden int, batched bool) ([]anydiff.Res, error) {
	if h0 == nil {
		return nil, nil
	}
	const op = "split hidden state"
	if err := h0.checkLen(op); err != nil {
		return nil, err
	}
	want := []int{layers, hidden}
	if batched {
		want = []int{layers, batch, hidden}
	}
	if !equalDims(h0.Dims, want) {
		return nil, shapeErrorf(op, "expected dims %v, but got %v", want, h0.Dims)
	}
	res := make([]anydiff.Res, layers)
	chunk := batch * hidden
	for i := range res {
		res[i] = anydiff.NewConst(h0.Data.Slice(i*chunk, (i+1)*chunk))
	}
	return res, nil
}

// joinStates stacks per-layer final states into the
// externally visible hidden tensor, whose leading axis is
// the layer/direction axis.
func joinStates(hiddens []anydiff.Res, batch, hidden int, batched bool) *Tensor {
	vecs := make([]anyvec.Vector, len(hiddens))
	for i, h := range hiddens {
		vecs[i] = h.Output()
	}
	joined := vecs[0].Creator().Concat(vecs...)
	if !batched {
		return &Tensor{Data: joined, Dims: []int{len(hiddens), hidden}}
	}
	return &Tensor{Data: joined, Dims: []int{len(hiddens), batch, hidden}}
}

func equalDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, x := range a {
		if x != b[i] {
			return false
		}
	}
	return true
}
