// Package types holds serialization-facing value types: field elements and
// raw byte blobs that need stable JSON/CBOR/text encodings independent of
// how they are represented internally. No other package of this module
// imports it.
package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// Scalar is a big.Int wrapper representing an element of the BN128 scalar
// field. It marshals to a decimal string so that values exceeding the range
// of any JSON numeric type round-trip exactly. A nil pointer marshals as "0".
type Scalar big.Int

// NewScalar creates a new Scalar from the given small integer value.
func NewScalar(x int) *Scalar {
	return new(Scalar).SetInt(x)
}

// ScalarFromBigInt wraps an existing *big.Int as a *Scalar without copying.
func ScalarFromBigInt(x *big.Int) *Scalar {
	return (*Scalar)(x)
}

// MarshalText returns the decimal string representation of the scalar.
// If the receiver is nil, it returns "0".
func (s *Scalar) MarshalText() ([]byte, error) {
	if s == nil {
		return []byte("0"), nil
	}
	return (*big.Int)(s).MarshalText()
}

// UnmarshalText parses the decimal text representation into the scalar.
func (s *Scalar) UnmarshalText(data []byte) error {
	if s == nil {
		return fmt.Errorf("cannot unmarshal into nil Scalar")
	}
	return (*big.Int)(s).UnmarshalText(data)
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both quoted string
// and bare numeric JSON representations.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	if s == nil {
		return fmt.Errorf("cannot unmarshal into nil Scalar")
	}
	if len(data) > 0 && data[0] == '"' {
		return s.UnmarshalText(data[1 : len(data)-1])
	}
	return s.UnmarshalText(data)
}

// MarshalCBOR encodes the scalar as a CBOR text string holding its decimal
// representation, matching the §6 FoldedProof/StepState encoding.
func (s *Scalar) MarshalCBOR() ([]byte, error) {
	txt, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(txt))
}

// UnmarshalCBOR decodes a CBOR text string into the scalar.
func (s *Scalar) UnmarshalCBOR(data []byte) error {
	var txt string
	if err := cbor.Unmarshal(data, &txt); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(txt))
}

// String returns the decimal string representation of the scalar.
func (s *Scalar) String() string {
	return (*big.Int)(s).String()
}

// MathBigInt converts s to a math/big *Int, sharing storage.
func (s *Scalar) MathBigInt() *big.Int {
	return (*big.Int)(s)
}

// SetInt sets the scalar to a small non-negative integer.
func (s *Scalar) SetInt(x int) *Scalar {
	return (*Scalar)(s.MathBigInt().SetUint64(uint64(x)))
}

// SetBigInt sets the scalar's value from x.
func (s *Scalar) SetBigInt(x *big.Int) *Scalar {
	return (*Scalar)(s.MathBigInt().Set(x))
}

// IsZero reports whether the scalar is exactly zero.
func (s *Scalar) IsZero() bool {
	return s.MathBigInt().Sign() == 0
}

// Equal reports whether two scalars hold the same value. Two nil pointers
// are equal; a nil and a non-nil pointer are not.
func (s *Scalar) Equal(o *Scalar) bool {
	if s == nil || o == nil {
		return (s == nil) == (o == nil)
	}
	return s.MathBigInt().Cmp(o.MathBigInt()) == 0
}
