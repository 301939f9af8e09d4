// Package session obtains bearer tokens from the external auth provider.
//
// Only "get current session" is consumed here. The provider issuing tokens and
// the server validating them are both external; an empty token is a valid
// answer (the stream then runs unauthenticated and the server decides).
package session
