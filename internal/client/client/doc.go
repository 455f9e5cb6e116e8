// Package client talks to the authcore session service.
//
// GRPCClient holds one token pair in memory, attaches the access token to
// outgoing calls and, when the server answers "token expired", rotates the
// refresh token once and retries. Rotations are serialised so a refresh
// token is never presented twice by the same client, which the server
// would treat as theft.
//
// TokenStore keeps the pair in a local SQLite file so the CLI can resume a
// session across runs.
//
// Common conditions are exposed as sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrRateLimited, ErrNotLoggedIn.
package client
