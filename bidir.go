package elmanrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b Bidir
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBidir)
}

// A Bidir runs two independent Stacks, one over the input
// sequence as given and one over the time-reversed input,
// and concatenates the results.
//
// Output features are ordered forward first, then
// backward. By default the backward outputs are emitted
// in the order the backward stack produced them, i.e.
// over the reversed sequence; setting Align re-reverses
// them so that every output position combines the two
// directions at the same original timestep.
type Bidir struct {
	Forward  *Stack
	Backward *Stack

	Align bool
}

// DeserializeBidir deserializes a Bidir.
func DeserializeBidir(d []byte) (*Bidir, error) {
	var res Bidir
	var align serializer.Int
	if err := serializer.DeserializeAny(d, &res.Forward, &res.Backward, &align); err != nil {
		return nil, essentials.AddCtx("deserialize Bidir", err)
	}
	res.Align = align == 1
	return &res, nil
}

// Run evaluates both directions over a canonical (seqLen,
// batch, in) input sequence.
//
// The h0s argument optionally holds one initial state per
// cell, all forward cells first (bottom cell first), then
// all backward cells. The returned hiddens use the same
// ordering; the returned out has the two directions'
// features concatenated per position.
func (b *Bidir) Run(x anydiff.Res, seqLen, batch int, h0s []anydiff.Res) (out anydiff.Res,
	hiddens []anydiff.Res, err error) {
	numForward := len(b.Forward.Cells)
	var fwdH0s, bwdH0s []anydiff.Res
	if h0s != nil {
		if len(h0s) != numForward+len(b.Backward.Cells) {
			return nil, nil, shapeErrorf("run bidir", "got %d initial states for %d layers",
				len(h0s), numForward+len(b.Backward.Cells))
		}
		fwdH0s = h0s[:numForward]
		bwdH0s = h0s[numForward:]
	}
	fwdOut, fwdHiddens, err := b.Forward.Run(x, seqLen, batch, fwdH0s)
	if err != nil {
		return nil, nil, err
	}
	reversed := anydiff.NewConst(reverseTime(x.Output(), seqLen))
	bwdOut, bwdHiddens, err := b.Backward.Run(reversed, seqLen, batch, bwdH0s)
	if err != nil {
		return nil, nil, err
	}
	if b.Align {
		bwdOut = anydiff.NewConst(reverseTime(bwdOut.Output(), seqLen))
	}
	out = concatRows(fwdOut, bwdOut, seqLen*batch)
	hiddens = append(fwdHiddens, bwdHiddens...)
	return out, hiddens, nil
}

// Parameters returns the parameters of the forward stack
// followed by those of the backward stack.
func (b *Bidir) Parameters() []*anydiff.Var {
	return AllParameters(b.Forward, b.Backward)
}

// SerializerType returns the unique ID used to serialize
// a Bidir with the serializer package.
func (b *Bidir) SerializerType() string {
	return "github.com/unixpickle/elmanrnn.Bidir"
}

// Serialize serializes the Bidir.
func (b *Bidir) Serialize() ([]byte, error) {
	align := serializer.Int(0)
	if b.Align {
		align = 1
	}
	return serializer.SerializeAny(b.Forward, b.Backward, align)
}
