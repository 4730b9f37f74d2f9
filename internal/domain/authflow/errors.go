package authflow

import "errors"

// State validation failures. Handlers collapse all of these into one generic
// response; the distinction exists for internal logging only.
var (
	// ErrStateExpired means the embedded issued-at is older than the allowed age.
	ErrStateExpired = errors.New("state token expired")
	// ErrStateTampered means the authentication tag failed to verify.
	ErrStateTampered = errors.New("state token failed authentication")
	// ErrStateMalformed means the token does not parse into the expected shape.
	ErrStateMalformed = errors.New("state token malformed")
	// ErrStateAlreadyConsumed means the ledger entry was used before: a replay.
	ErrStateAlreadyConsumed = errors.New("state token already consumed")
	// ErrStateNotFound means no ledger entry exists for the token.
	ErrStateNotFound = errors.New("state token not registered")
)

// IsStateError reports whether err is any of the state validation failures.
func IsStateError(err error) bool {
	return errors.Is(err, ErrStateExpired) ||
		errors.Is(err, ErrStateTampered) ||
		errors.Is(err, ErrStateMalformed) ||
		errors.Is(err, ErrStateAlreadyConsumed) ||
		errors.Is(err, ErrStateNotFound)
}
