// Package poseidon wraps the iden3 Poseidon hash implementation with the
// fixed-arity entry points the folding protocol actually uses (arity 2, 3,
// and 6), plus a chunk-and-recurse helper for the rare case a caller needs
// to hash an input vector of unbounded length.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// maxChunk is the largest arity the underlying iden3 implementation accepts
// in a single call.
const maxChunk = 16

// Hash2 computes Poseidon(a, b), used to derive an address from a public key.
func Hash2(a, b *big.Int) (*big.Int, error) {
	return hashArity(2, a, b)
}

// Hash3 computes Poseidon(a, b, c), for callers that need a 3-input
// commitment. The auth message Poseidon(nullifier, recipient_addr) is
// computed with Hash2, not with this function.
func Hash3(a, b, c *big.Int) (*big.Int, error) {
	return hashArity(3, a, b, c)
}

// Hash6 computes Poseidon over six field elements, used to hash the
// six-element phrase encoding into a PhraseState.phraseHash.
func Hash6(inputs [6]*big.Int) (*big.Int, error) {
	return hashArity(6, inputs[:]...)
}

func hashArity(n int, inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) != n {
		return nil, fmt.Errorf("poseidon: expected %d inputs, got %d", n, len(inputs))
	}
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("poseidon: input %d is nil", i)
		}
	}
	return poseidon.Hash(inputs)
}

// MultiHash computes the Poseidon hash of an arbitrary number of inputs. It
// chunks them into groups of 16, hashes each chunk, and recursively hashes
// the resulting digests together, the way the reference system's
// MultiPoseidon handles inputs too long for a single Poseidon permutation.
// Returns an error if no inputs are provided.
func MultiHash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("poseidon: no inputs provided")
	}

	if len(inputs) <= maxChunk {
		return poseidon.Hash(inputs)
	}

	numChunks := (len(inputs) + maxChunk - 1) / maxChunk
	hashes := make([]*big.Int, 0, numChunks)
	for i := 0; i < len(inputs); i += maxChunk {
		end := min(i+maxChunk, len(inputs))
		h, err := poseidon.Hash(inputs[i:end])
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}

	if len(hashes) == 1 {
		return hashes[0], nil
	}
	if len(hashes) <= maxChunk {
		return poseidon.Hash(hashes)
	}
	return MultiHash(hashes...)
}
