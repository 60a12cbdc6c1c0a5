// Package catalog synchronizes the local record list with the ledger.
//
// LoadAll reads the index and every indexed payload, dropping (and logging)
// records that are missing or undecodable. Submit validates a draft, seals
// its value, writes the payload and only then appends the id to the index,
// so every indexed id has a payload. A failure between the two writes leaves
// an orphaned payload, reported through SubmitError.
//
// The catalog keeps the last successful load as a read-through cache. It is
// never persisted.
package catalog
