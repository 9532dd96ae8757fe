package elmanrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var d Dropout
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDropout)
}

// A Dropout randomly zeros components of the sequences
// passed between stacked layers.
//
// It uses the inverted-dropout convention: surviving
// components are scaled by 1/(1-Prob) so that the
// expected magnitude is unchanged. When Enabled is false,
// or Prob is 0, the operator is the identity.
type Dropout struct {
	Enabled bool

	// The probability of dropping any given component.
	Prob float64
}

// DeserializeDropout deserializes a Dropout.
func DeserializeDropout(d []byte) (*Dropout, error) {
	var enabled serializer.Int
	var prob serializer.Float64
	if err := serializer.DeserializeAny(d, &enabled, &prob); err != nil {
		return nil, essentials.AddCtx("deserialize Dropout", err)
	}
	return &Dropout{
		Enabled: enabled == 1,
		Prob:    float64(prob),
	}, nil
}

// Apply applies the operator, drawing one fresh Bernoulli
// mask over the entire input.
func (d *Dropout) Apply(in anydiff.Res) anydiff.Res {
	if !d.Enabled || d.Prob == 0 {
		return in
	}
	c := in.Output().Creator()
	keep := 1 - d.Prob
	mask := c.MakeVector(in.Output().Len())
	anyvec.Rand(mask, anyvec.Uniform, nil)
	anyvec.LessThan(mask, c.MakeNumeric(keep))
	mask.Scale(c.MakeNumeric(1 / keep))
	return anydiff.Mul(in, anydiff.NewConst(mask))
}

// SerializerType returns the unique ID used to serialize
// a Dropout with the serializer package.
func (d *Dropout) SerializerType() string {
	return "github.com/unixpickle/elmanrnn.Dropout"
}

// Serialize serializes the Dropout.
func (d *Dropout) Serialize() ([]byte, error) {
	enabledFlag := serializer.Int(0)
	if d.Enabled {
		enabledFlag = 1
	}
	return serializer.SerializeAny(enabledFlag, serializer.Float64(d.Prob))
}
