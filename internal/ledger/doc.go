// Package ledger is the client side of the authenticated key-value ledger
// that stores the catalog.
//
// The catalog only ever needs five operations, captured by Client. Several
// backends implement it:
//
//   - Memory: an in-process map for tests and demos.
//   - SQLite: a local file ledger using the same pragmas and migration
//     scheme as the rest of the tooling.
//   - Bolt: a local bbolt file ledger.
//   - HTTPClient: a remote ledger served by Server, where every write is
//     signed by the owner's wallet.
//
// Local backends have no notion of an owner. Authorize wraps them so each
// write is approved first; a refused approval surfaces as ErrRejected just
// as a refused signature does on a remote ledger.
//
// An empty value read from any backend means "absent". Backends never
// distinguish a missing key from one holding zero bytes.
package ledger
