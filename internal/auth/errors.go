package auth

import "errors"

// ErrUnauthenticated means a required credential is missing, invalid or was
// rejected by a provider. Protected operations must not proceed past it;
// the HTTP boundary converts it into a challenge, never swallows it.
var ErrUnauthenticated = errors.New("auth: unauthenticated")
