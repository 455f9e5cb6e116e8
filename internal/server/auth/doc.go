// Package auth signs and verifies the two token kinds of the session core.
//
// Access tokens are short-lived HS256 JWTs carrying the caller identity. They
// are verified from their own content and the clock only.
//
// Refresh tokens are HS256 JWT envelopes carrying {sub, jti, exp}. The
// signature proves the envelope was minted here; whether it is still usable
// is decided by the session store row named by jti, not by this package.
//
// Both kinds are signed with separate keys derived from one configured
// secret, and carry a "typ" claim, so neither can be replayed as the other.
package auth
