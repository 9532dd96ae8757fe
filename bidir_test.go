package elmanrnn

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

func testBidir(t *testing.T, align bool) (*Bidir, anydiff.Res) {
	c := anyvec32.CurrentCreator()
	forward, err := NewStack(c, 3, 2, 2, Tanh, 0)
	if err != nil {
		t.Fatal(err)
	}
	backward, err := NewStack(c, 3, 2, 2, Tanh, 0)
	if err != nil {
		t.Fatal(err)
	}
	return &Bidir{Forward: forward, Backward: backward, Align: align},
		randomInput(c, 4*2*3)
}

// sliceRows extracts columns [start, end) of every row of
// a packed row-major matrix.
func sliceRows(v anyvec.Vector, rows, rowLen, start, end int) anyvec.Vector {
	var chunks []anyvec.Vector
	for i := 0; i < rows; i++ {
		chunks = append(chunks, v.Slice(i*rowLen+start, i*rowLen+end))
	}
	return v.Creator().Concat(chunks...)
}

func TestBidirConcatOrder(t *testing.T) {
	b, input := testBidir(t, false)
	const seqLen, batch, hidden = 4, 2, 2

	out, hiddens, err := b.Run(input, seqLen, batch, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Output().Len() != seqLen*batch*2*hidden {
		t.Fatalf("expected output length %d, but got %d", seqLen*batch*2*hidden,
			out.Output().Len())
	}

	fwdOut, fwdHiddens, err := b.Forward.Run(input, seqLen, batch, nil)
	if err != nil {
		t.Fatal(err)
	}
	reversed := anydiff.NewConst(reverseTime(input.Output(), seqLen))
	bwdOut, bwdHiddens, err := b.Backward.Run(reversed, seqLen, batch, nil)
	if err != nil {
		t.Fatal(err)
	}

	rows := seqLen * batch
	firstHalf := sliceRows(out.Output(), rows, 2*hidden, 0, hidden)
	if !vecsClose(firstHalf, fwdOut.Output()) {
		t.Error("first features should come from the forward stack")
	}
	secondHalf := sliceRows(out.Output(), rows, 2*hidden, hidden, 2*hidden)
	if !vecsClose(secondHalf, bwdOut.Output()) {
		t.Error("last features should come from the backward stack, in emission order")
	}

	if len(hiddens) != 4 {
		t.Fatalf("expected 4 hidden states, but got %d", len(hiddens))
	}
	for i, h := range fwdHiddens {
		if !vecsClose(hiddens[i].Output(), h.Output()) {
			t.Errorf("forward hidden %d mismatch", i)
		}
	}
	for i, h := range bwdHiddens {
		if !vecsClose(hiddens[2+i].Output(), h.Output()) {
			t.Errorf("backward hidden %d mismatch", i)
		}
	}
}

func TestBidirAlign(t *testing.T) {
	b, input := testBidir(t, true)
	const seqLen, batch, hidden = 4, 2, 2

	out, _, err := b.Run(input, seqLen, batch, nil)
	if err != nil {
		t.Fatal(err)
	}
	reversed := anydiff.NewConst(reverseTime(input.Output(), seqLen))
	bwdOut, _, err := b.Backward.Run(reversed, seqLen, batch, nil)
	if err != nil {
		t.Fatal(err)
	}

	rows := seqLen * batch
	secondHalf := sliceRows(out.Output(), rows, 2*hidden, hidden, 2*hidden)
	realigned := reverseTime(bwdOut.Output(), seqLen)
	if !vecsClose(secondHalf, realigned) {
		t.Error("aligned backward features should be in original time order")
	}
}

func TestBidirH0Split(t *testing.T) {
	b, input := testBidir(t, false)
	const seqLen, batch, hidden = 4, 2, 2
	c := anyvec32.CurrentCreator()

	h0s := make([]anydiff.Res, 4)
	for i := range h0s {
		h0s[i] = randomInput(c, batch*hidden)
	}
	out, _, err := b.Run(input, seqLen, batch, h0s)
	if err != nil {
		t.Fatal(err)
	}
	fwdOut, _, err := b.Forward.Run(input, seqLen, batch, h0s[:2])
	if err != nil {
		t.Fatal(err)
	}
	rows := seqLen * batch
	firstHalf := sliceRows(out.Output(), rows, 2*hidden, 0, hidden)
	if !vecsClose(firstHalf, fwdOut.Output()) {
		t.Error("forward stack did not receive the first initial states")
	}

	if _, _, err := b.Run(input, seqLen, batch, h0s[:3]); !isShapeError(err) {
		t.Errorf("expected ShapeError for short state list, but got %v", err)
	}
}
