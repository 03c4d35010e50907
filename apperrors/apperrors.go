// Package apperrors defines the sentinel error kinds returned by the core
// Grapevine packages. Call sites wrap one of these sentinels with
// fmt.Errorf("...: %w", ...) to attach context; callers identify the kind
// with errors.Is against the sentinel, never by inspecting message text.
package apperrors

import "errors"

var (
	// ErrMalformedInput covers a scalar out of field range, a malformed
	// curve point or signature encoding, a phrase longer than the byte
	// budget, or a requested degree above the protocol maximum.
	ErrMalformedInput = errors.New("malformed input")

	// ErrConstraintViolation covers a witness that does not satisfy the
	// per-step circuit relation, e.g. a supplied auth or scope signature
	// that fails to verify against the claimed public key.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrStateMismatch covers a prior state passed to a step call that
	// disagrees with the folded proof's actual terminal state.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrVerificationFailure covers a folded proof that fails verification:
	// a malformed or inconsistent accumulator, a terminal state that does
	// not match the expected state, or a non-chaff terminal step.
	ErrVerificationFailure = errors.New("verification failure")

	// ErrProtocolViolation covers a nullifier reuse attempt, a missing
	// reverse-direction relationship, or extending a proof whose scope
	// differs from the caller's target scope.
	ErrProtocolViolation = errors.New("protocol violation")
)

// Is reports whether err (or any error it wraps) matches kind. It is a thin
// wrapper over errors.Is kept so call sites can read
// apperrors.Is(err, apperrors.ErrConstraintViolation) next to the sentinels
// themselves.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
