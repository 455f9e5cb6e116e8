package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// InternalKeyHeaderName carries the shared key of trusted internal callers
// (the credential service) that are allowed to open sessions.
const InternalKeyHeaderName = "x-internal-key"

// SessionIDBytes is the number of random bytes in a session identifier.
const SessionIDBytes = 32
