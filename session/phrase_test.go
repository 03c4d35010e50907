package session

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestEncodePhraseDeterministic(t *testing.T) {
	c := qt.New(t)
	_, h1, err := EncodePhrase("It was cryptography all along")
	c.Assert(err, qt.IsNil)
	_, h2, err := EncodePhrase("It was cryptography all along")
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Equals, 0)

	_, h3, err := EncodePhrase("a different phrase entirely")
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h3), qt.Not(qt.Equals), 0)
}

func TestEncodePhraseRejectsOversizedInput(t *testing.T) {
	c := qt.New(t)
	_, _, err := EncodePhrase(strings.Repeat("x", maxPhraseBytes+1))
	c.Assert(err, qt.ErrorMatches, "malformed input:.*")
}
