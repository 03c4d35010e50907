package ivc

import (
	"math/big"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/mach34/grapevine/circuit"
	nativeeddsa "github.com/mach34/grapevine/crypto/eddsa"
	"github.com/mach34/grapevine/crypto/poseidon"
)

func TestInitReturnsZeroState(t *testing.T) {
	c := qt.New(t)
	proof, state := Init()
	c.Assert(proof.WrapProof, qt.IsNil)
	for i := 0; i < circuit.StateWidth; i++ {
		c.Assert(state[i].Sign(), qt.Equals, 0)
	}
}

func TestVerifyRejectsNilInputs(t *testing.T) {
	c := qt.New(t)
	c.Assert(Verify(nil, nil, [circuit.StateWidth]*big.Int{}), qt.IsFalse)

	_, state := Init()
	c.Assert(Verify(&PublicParams{}, nil, state), qt.IsFalse)
}

func TestVerifyRejectsNonChaffExpectedState(t *testing.T) {
	c := qt.New(t)
	proof, state := Init()
	state[0] = big.NewInt(1)
	c.Assert(Verify(&PublicParams{}, proof, state), qt.IsFalse)
}

func TestVerifyRejectsStateMismatch(t *testing.T) {
	c := qt.New(t)
	proof, _ := Init()

	expected := proof.State
	expected[1] = big.NewInt(99)
	c.Assert(Verify(&PublicParams{}, proof, expected), qt.IsFalse)
}

func TestStepRejectsPriorStateMismatch(t *testing.T) {
	c := qt.New(t)
	prior, priorState := Init()

	wrongState := priorState
	wrongState[1] = big.NewInt(5)

	w := &circuit.StepWitness{StepIn: wrongState}
	_, _, err := Step(&PublicParams{}, prior, wrongState, w)
	// prior.State is all-zero, wrongState is not, so this must be rejected
	// as a state mismatch before any circuit work is attempted.
	c.Assert(err, qt.ErrorMatches, "state mismatch:.*")
}

func TestStepRejectsNilArgs(t *testing.T) {
	c := qt.New(t)
	_, _, err := Step(nil, nil, [circuit.StateWidth]*big.Int{}, nil)
	c.Assert(err, qt.ErrorMatches, "malformed input:.*")
}

// TestFoldIdentityStepThenChaffVerifies runs Setup, folds a real identity
// step and its mandatory chaff, and verifies the result, driving the full
// genesis and first wrap generation through actual Groth16 proving rather
// than only the early-return paths above. Setup compiles MaxFoldDepth+1
// circuits, so this is gated the way the reference system gates its own
// circuit-level tests (e.g. statetransition_test.go's RUN_CIRCUIT_TESTS).
func TestFoldIdentityStepThenChaffVerifies(t *testing.T) {
	if os.Getenv("RUN_CIRCUIT_TESTS") == "" {
		t.Skip("skipping circuit tests; set RUN_CIRCUIT_TESTS=1 to run")
	}
	c := qt.New(t)

	pp, err := Setup()
	c.Assert(err, qt.IsNil)

	prover := nativeeddsa.GenerateKey()
	proof, state := Init()

	proverAddr, err := poseidon.Hash2(prover.Public().X, prover.Public().Y)
	c.Assert(err, qt.IsNil)
	scopeSig, err := nativeeddsa.Sign(prover, proverAddr)
	c.Assert(err, qt.IsNil)

	idWitness := &circuit.StepWitness{StepIn: state, ProverPubkey: prover.Public(), ScopeSignature: scopeSig}
	proof, state, err = Step(pp, proof, state, idWitness)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Depth, qt.Equals, 1)

	chaffWitness := &circuit.StepWitness{StepIn: state, IsChaff: true}
	proof, state, err = Step(pp, proof, state, chaffWitness)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Depth, qt.Equals, 2)
	c.Assert(state[0].Sign(), qt.Equals, 0)

	c.Assert(Verify(pp, proof, state), qt.IsTrue)

	tampered := state
	tampered[1] = big.NewInt(99)
	c.Assert(Verify(pp, proof, tampered), qt.IsFalse)
}
