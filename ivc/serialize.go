package ivc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"

	"github.com/mach34/grapevine/apperrors"
	"github.com/mach34/grapevine/circuit"
)

// wireFoldedProof is the §6 JSON shape: WrapProof as a hex string of its
// canonical serialization, State as twelve decimal strings, and Depth as
// the number of StepCircuit applications folded into WrapProof.
type wireFoldedProof struct {
	WrapProof string     `json:"wrap_proof,omitempty"`
	State     [12]string `json:"state"`
	Depth     int        `json:"depth"`
}

// MarshalJSON implements §6's serialized FoldedProof format.
func (p *FoldedProof) MarshalJSON() ([]byte, error) {
	wire := wireFoldedProof{Depth: p.Depth}
	if p.WrapProof != nil {
		var wrapBuf bytes.Buffer
		if _, err := p.WrapProof.WriteTo(&wrapBuf); err != nil {
			return nil, fmt.Errorf("marshal folded proof: serialize wrap proof: %w", err)
		}
		wire.WrapProof = hex.EncodeToString(wrapBuf.Bytes())
	}
	for i := 0; i < circuit.StateWidth; i++ {
		if p.State[i] == nil {
			return nil, fmt.Errorf("%w: nil state slot %d", apperrors.ErrMalformedInput, i)
		}
		wire.State[i] = p.State[i].String()
	}
	return json.Marshal(wire)
}

// UnmarshalJSON parses §6's serialized FoldedProof format.
func (p *FoldedProof) UnmarshalJSON(data []byte) error {
	var wire wireFoldedProof
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: unmarshal folded proof: %v", apperrors.ErrMalformedInput, err)
	}

	if wire.WrapProof != "" {
		wrapBytes, err := hex.DecodeString(wire.WrapProof)
		if err != nil {
			return fmt.Errorf("%w: decode wrap proof hex: %v", apperrors.ErrMalformedInput, err)
		}
		wrapProof := groth16.NewProof(ecc.BLS12_377)
		if _, err := wrapProof.ReadFrom(bytes.NewReader(wrapBytes)); err != nil {
			return fmt.Errorf("%w: deserialize wrap proof: %v", apperrors.ErrMalformedInput, err)
		}
		p.WrapProof = wrapProof
	}

	for i := 0; i < circuit.StateWidth; i++ {
		v, ok := new(big.Int).SetString(wire.State[i], 10)
		if !ok {
			return fmt.Errorf("%w: state slot %d is not a decimal integer", apperrors.ErrMalformedInput, i)
		}
		p.State[i] = v
	}
	p.Depth = wire.Depth
	return nil
}
