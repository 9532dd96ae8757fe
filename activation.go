package elmanrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/serializer"
)

func init() {
	var a Activation
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeActivation)
}

// An Activation is the per-step squashing function of a
// recurrence.
type Activation int

// These are the supported activation functions.
const (
	Tanh Activation = iota
	ReLU
)

// ActivationByName finds the Activation with the given
// conventional name, either "tanh" or "relu".
func ActivationByName(name string) (Activation, error) {
	switch name {
	case "tanh":
		return Tanh, nil
	case "relu":
		return ReLU, nil
	}
	return 0, &ConfigError{Field: "nonlinearity", Reason: "unknown name: " + name}
}

// DeserializeActivation deserializes an Activation.
func DeserializeActivation(d []byte) (Activation, error) {
	if len(d) != 1 {
		return 0, fmt.Errorf("deserialize Activation: data length (%d) should be 1", len(d))
	}
	a := Activation(d[0])
	if a > ReLU {
		return 0, fmt.Errorf("deserialize Activation: unknown activation ID: %d", a)
	}
	return a, nil
}

// Apply applies the activation function component-wise.
func (a Activation) Apply(in anydiff.Res) anydiff.Res {
	switch a {
	case Tanh:
		return anydiff.Tanh(in)
	case ReLU:
		return anydiff.ClipPos(in)
	default:
		panic(fmt.Sprintf("unknown activation: %d", a))
	}
}

// SerializerType returns the unique ID used to serialize
// an Activation.
func (a Activation) SerializerType() string {
	return "github.com/unixpickle/elmanrnn.Activation"
}

// Serialize serializes the activation.
func (a Activation) Serialize() ([]byte, error) {
	return []byte{byte(a)}, nil
}
