package elmanrnn

import (
	"fmt"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

func testCell() *Cell {
	return &Cell{
		InCount:  2,
		OutCount: 3,
		Weights: anydiff.NewVar(anyvec32.MakeVectorData([]float32{
			0.5, -0.3, 0.1, 0.8, -1.2,
			1.0, 0.2, -0.7, 0.3, 0.5,
			-0.4, 0.9, 0.6, -0.1, 0.2,
		})),
		Biases: anydiff.NewVar(anyvec32.MakeVectorData([]float32{
			0.1, -0.2, 0.3,
		})),
		Activation: Tanh,
	}
}

func TestCellRunOutput(t *testing.T) {
	cell := testCell()
	input := anydiff.NewConst(anyvec32.MakeVectorData([]float32{
		1, 2, -1, -3,
		2, -1, 0.5, 1,
		-1.5, 2, 1, 0,
	}))
	out, hidden, err := cell.Run(input, 3, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	expected := anyvec32.MakeVectorData([]float32{
		-0.905148, 0.800499, 0.537050, 0.993963, -0.964028, -0.197375,
		0.978498, -0.839944, 0.862938, 0.066355, 0.883021, -0.732284,
		-0.990501, 0.505341, 0.216913, 0.533513, 0.693962, 0.484468,
	})
	if !vecsClose(out.Output(), expected) {
		t.Errorf("expected %v but got %v", expected.Data(), out.Output().Data())
	}
	lastStep := expected.Slice(12, 18)
	if !vecsClose(hidden.Output(), lastStep) {
		t.Errorf("expected hidden %v but got %v", lastStep.Data(), hidden.Output().Data())
	}
}

func TestCellRunH0(t *testing.T) {
	cell := testCell()
	h0 := anydiff.NewConst(anyvec32.MakeVectorData([]float32{
		0.1, -0.2, 0.3,
		0, 0.5, -0.5,
	}))
	input := anydiff.NewConst(anyvec32.MakeVectorData([]float32{
		1, 2, -1, -3,
	}))
	out, hidden, err := cell.Run(input, 1, 2, h0)
	if err != nil {
		t.Fatal(err)
	}
	expected := anyvec32.MakeVectorData([]float32{
		-0.876393, 0.739783, 0.507977, 0.991007, -0.913785, -0.049958,
	})
	if !vecsClose(out.Output(), expected) {
		t.Errorf("expected %v but got %v", expected.Data(), out.Output().Data())
	}
	if !vecsClose(hidden.Output(), expected) {
		t.Errorf("expected hidden %v but got %v", expected.Data(), hidden.Output().Data())
	}
}

func TestCellStepReLU(t *testing.T) {
	cell := testCell()
	cell.Activation = ReLU
	h0 := anydiff.NewConst(anyvec32.MakeVectorData([]float32{
		0.1, -0.2, 0.3,
		0, 0.5, -0.5,
	}))
	input := anydiff.NewConst(anyvec32.MakeVectorData([]float32{
		1, 2, -1, -3,
	}))
	actual := cell.Step(h0, input, 2)
	expected := anyvec32.MakeVectorData([]float32{
		0, 0.95, 0.56, 2.7, 0, 0,
	})
	if !vecsClose(actual.Output(), expected) {
		t.Errorf("expected %v but got %v", expected.Data(), actual.Output().Data())
	}
}

func TestCellSingleStepReduction(t *testing.T) {
	c := anyvec32.CurrentCreator()
	cell := NewCell(c, 4, 5, Tanh)
	inVec := c.MakeVector(3 * 4)
	anyvec.Rand(inVec, anyvec.Normal, nil)
	input := anydiff.NewConst(inVec)

	out, hidden, err := cell.Run(input, 1, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	zeroState := anydiff.NewConst(c.MakeVector(3 * 5))
	direct := cell.Step(zeroState, input, 3)
	if !vecsClose(out.Output(), direct.Output()) {
		t.Errorf("expected %v but got %v", direct.Output().Data(), out.Output().Data())
	}
	if !vecsClose(hidden.Output(), direct.Output()) {
		t.Errorf("expected hidden %v but got %v", direct.Output().Data(),
			hidden.Output().Data())
	}
}

func TestCellShapeErrors(t *testing.T) {
	cell := testCell()
	badInput := anydiff.NewConst(anyvec32.MakeVector(7))
	if _, _, err := cell.Run(badInput, 3, 2, nil); !isShapeError(err) {
		t.Errorf("expected ShapeError for bad input, but got %v", err)
	}
	input := anydiff.NewConst(anyvec32.MakeVector(3 * 2 * 2))
	badH0 := anydiff.NewConst(anyvec32.MakeVector(5))
	if _, _, err := cell.Run(input, 3, 2, badH0); !isShapeError(err) {
		t.Errorf("expected ShapeError for bad state, but got %v", err)
	}
	if _, _, err := cell.Run(input, 0, 2, nil); !isShapeError(err) {
		t.Errorf("expected ShapeError for empty sequence, but got %v", err)
	}
}

func isShapeError(err error) bool {
	_, ok := err.(*ShapeError)
	return ok
}

func isConfigError(err error) bool {
	_, ok := err.(*ConfigError)
	return ok
}

func vecsClose(v1, v2 anyvec.Vector) bool {
	if v1.Len() != v2.Len() {
		return false
	}
	diff := v1.Copy()
	diff.Sub(v2)
	max := anyvec.AbsMax(diff)
	switch max := max.(type) {
	case float32:
		return max < 1e-3
	case float64:
		return max < 1e-5
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", max))
	}
}
