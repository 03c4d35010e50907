package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestScalarMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	s := (*Scalar)(big.NewInt(1234567890))
	wrapped := map[string]*Scalar{"s": s}

	b, err := json.Marshal(wrapped)
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*Scalar
	c.Assert(json.Unmarshal(b, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["s"], qt.DeepEquals, s)
}

func TestScalarMarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	s := (*Scalar)(big.NewInt(1234567890))
	wrapped := map[string]*Scalar{"s": s}

	b, err := cbor.Marshal(wrapped)
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*Scalar
	c.Assert(cbor.Unmarshal(b, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["s"], qt.DeepEquals, s)
}

func TestScalarUnmarshalJSONNumeric(t *testing.T) {
	c := qt.New(t)

	var fromString Scalar
	c.Assert(json.Unmarshal([]byte(`"123456789"`), &fromString), qt.IsNil)
	c.Assert(fromString.String(), qt.Equals, "123456789")

	var fromNumber Scalar
	c.Assert(json.Unmarshal([]byte(`123456789`), &fromNumber), qt.IsNil)
	c.Assert(fromNumber.String(), qt.Equals, "123456789")
}

func TestScalarEqualAndZero(t *testing.T) {
	c := qt.New(t)

	zero := NewScalar(0)
	c.Assert(zero.IsZero(), qt.IsTrue)

	a := ScalarFromBigInt(big.NewInt(42))
	b := ScalarFromBigInt(big.NewInt(42))
	c.Assert(a.Equal(b), qt.IsTrue)
	c.Assert(a.Equal(zero), qt.IsFalse)

	var nilScalar *Scalar
	c.Assert(nilScalar.Equal(nil), qt.IsTrue)
	c.Assert(nilScalar.Equal(zero), qt.IsFalse)
}
