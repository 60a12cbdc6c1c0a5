// Package cipher seals the numeric value carried by each catalog record.
//
// Placeholder is the default and is a reversible encoding, not encryption:
// anyone holding the ledger bytes can recover the value. It exists so the
// storage format and the reveal flow can run end to end until a real scheme
// is plugged in. Secretbox is such a scheme and must be chosen explicitly.
//
// Every Cipher satisfies Open(Seal(x)) == x for all finite x.
package cipher
