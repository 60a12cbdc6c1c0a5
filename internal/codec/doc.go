// Package codec defines the catalog record and index payloads stored on the
// ledger, and the canonical JSON writer both are encoded with.
//
// codec imports nothing internal. Every other package that touches ledger
// bytes goes through it.
//
// Key layout:
//   - IndexKey ("extension_keys") holds a JSON array of record ids
//   - RecordKey(id) ("extension_<id>") holds one record object
//
// Record payloads are objects with the fields name, value, timestamp,
// category and description. The id is not embedded; it is carried by the key.
package codec
