package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultPageLimit caps list queries that arrive without an explicit limit.
const DefaultPageLimit = 150
