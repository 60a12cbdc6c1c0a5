// Package reveal gates decoding of sealed record values behind a signed
// challenge.
//
// A Gate moves through these states:
//
//	Idle -> Challenging -> Authorized -> Revealed
//	            |
//	            +-> Denied
//
// Revealed is only reachable through Authorized, and Authorized only after
// the owner signed the session challenge. The signature authenticates the
// request; it does not derive any decryption key.
package reveal
