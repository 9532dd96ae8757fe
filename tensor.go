package elmanrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Tensor is a dense, row-major tensor.
//
// The Data length must equal the product of Dims.
type Tensor struct {
	Data anyvec.Vector
	Dims []int
}

// NewTensor creates a zero'd out Tensor.
func NewTensor(c anyvec.Creator, dims ...int) *Tensor {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return &Tensor{Data: c.MakeVector(n), Dims: dims}
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int {
	return len(t.Dims)
}

func (t *Tensor) checkLen(op string) error {
	n := 1
	for _, d := range t.Dims {
		n *= d
	}
	if t.Data.Len() != n {
		return shapeErrorf(op, "data length %d does not match dims %v", t.Data.Len(), t.Dims)
	}
	return nil
}

// normalizeInput converts an input tensor to the internal
// canonical layout, a packed (seqLen, batch, feat) vector
// in sequence-first order.
//
// A rank-2 input is treated as a single unbatched
// sequence. The batched flag records whether the caller
// passed a batched tensor at all, which is deliberately
// kept distinct from the batch size happening to be 1.
func normalizeInput(x *Tensor, feat int, batchFirst bool) (vec anyvec.Vector,
	seqLen, batch int, batched bool, err error) {
	const op = "normalize input"
	if x == nil {
		return nil, 0, 0, false, shapeErrorf(op, "input is nil")
	}
	if err := x.checkLen(op); err != nil {
		return nil, 0, 0, false, err
	}
	switch x.Rank() {
	case 2:
		if x.Dims[1] != feat {
			return nil, 0, 0, false, shapeErrorf(op, "input features should be %d, but got %d",
				feat, x.Dims[1])
		}
		if x.Dims[0] < 1 {
			return nil, 0, 0, false, shapeErrorf(op, "sequence must be non-empty")
		}
		// A (seq, feat) layout is identical to (seq, 1, feat).
		return x.Data, x.Dims[0], 1, false, nil
	case 3:
		if x.Dims[2] != feat {
			return nil, 0, 0, false, shapeErrorf(op, "input features should be %d, but got %d",
				feat, x.Dims[2])
		}
		seqLen, batch = x.Dims[0], x.Dims[1]
		if batchFirst {
			seqLen, batch = batch, seqLen
		}
		if seqLen < 1 || batch < 1 {
			return nil, 0, 0, false, shapeErrorf(op, "sequence and batch must be non-empty")
		}
		vec = x.Data
		if batchFirst {
			vec = transpose01(x.Data, batch, seqLen, feat)
		}
		return vec, seqLen, batch, true, nil
	}
	return nil, 0, 0, false, shapeErrorf(op, "input rank should be 2 or 3, but got %d", x.Rank())
}

// denormalizeOutput converts a canonical (seqLen, batch,
// feat) result back to the caller's convention: the batch
// axis is dropped if the input was unbatched, and the two
// leading axes are swapped back if batchFirst is set.
func denormalizeOutput(v anyvec.Vector, seqLen, batch, feat int,
	batchFirst, batched bool) *Tensor {
	if !batched {
		return &Tensor{Data: v, Dims: []int{seqLen, feat}}
	}
	if batchFirst {
		return &Tensor{Data: transpose01(v, seqLen, batch, feat), Dims: []int{batch, seqLen, feat}}
	}
	return &Tensor{Data: v, Dims: []int{seqLen, batch, feat}}
}

// transpose01 swaps the two leading axes of a rank-3
// tensor with dims (dim0, dim1, feat).
func transpose01(v anyvec.Vector, dim0, dim1, feat int) anyvec.Vector {
	chunks := make([]anyvec.Vector, 0, dim0*dim1)
	for j := 0; j < dim1; j++ {
		for i := 0; i < dim0; i++ {
			start := (i*dim1 + j) * feat
			chunks = append(chunks, v.Slice(start, start+feat))
		}
	}
	return v.Creator().Concat(chunks...)
}

// reverseTime reverses a canonical (seqLen, batch, feat)
// tensor along its time axis.
func reverseTime(v anyvec.Vector, seqLen int) anyvec.Vector {
	if seqLen <= 1 {
		return v
	}
	rowLen := v.Len() / seqLen
	chunks := make([]anyvec.Vector, seqLen)
	for t := range chunks {
		start := (seqLen - 1 - t) * rowLen
		chunks[t] = v.Slice(start, start+rowLen)
	}
	return v.Creator().Concat(chunks...)
}

// concatRows concatenates two row-major matrices along
// the feature axis, producing rows with the features of a
// followed by the features of b.
func concatRows(a, b anydiff.Res, rows int) anydiff.Res {
	return anydiff.Pool(a, func(a anydiff.Res) anydiff.Res {
		return anydiff.Pool(b, func(b anydiff.Res) anydiff.Res {
			aLen := a.Output().Len() / rows
			bLen := b.Output().Len() / rows
			var res []anydiff.Res
			for i := 0; i < rows; i++ {
				res = append(res, anydiff.Slice(a, i*aLen, (i+1)*aLen),
					anydiff.Slice(b, i*bLen, (i+1)*bLen))
			}
			return anydiff.Concat(res...)
		})
	})
}
