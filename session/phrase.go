package session

import (
	"fmt"
	"math/big"

	"github.com/mach34/grapevine/apperrors"
	"github.com/mach34/grapevine/crypto/poseidon"
)

const (
	phraseChunks    = 6
	phraseChunkSize = 31
	maxPhraseBytes  = phraseChunks * phraseChunkSize
)

// EncodePhrase packs a UTF-8 phrase into six little-endian 31-byte
// field-element chunks (186 bytes total, the 6x31 padding target) and
// hashes them with Poseidon-6, implementing §6's phrase encoding and §3's
// PhraseState canonical handle. The phrase itself is never retained by the
// returned values beyond what the chunks encode.
func EncodePhrase(phrase string) (chunks [phraseChunks]*big.Int, phraseHash *big.Int, err error) {
	raw := []byte(phrase)
	if len(raw) > maxPhraseBytes {
		return chunks, nil, fmt.Errorf("%w: phrase exceeds %d bytes", apperrors.ErrMalformedInput, maxPhraseBytes)
	}

	var padded [maxPhraseBytes]byte
	copy(padded[:], raw)

	for i := 0; i < phraseChunks; i++ {
		start := i * phraseChunkSize
		chunk := padded[start : start+phraseChunkSize]
		le := make([]byte, phraseChunkSize)
		for j := range chunk {
			le[phraseChunkSize-1-j] = chunk[j]
		}
		chunks[i] = new(big.Int).SetBytes(le)
	}

	phraseHash, err = poseidon.Hash6(chunks)
	if err != nil {
		return chunks, nil, fmt.Errorf("encode phrase: %w", err)
	}
	return chunks, phraseHash, nil
}
