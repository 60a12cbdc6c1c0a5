package codec

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for digests. The version suffix leaves room for changing
// the algorithm later.
const (
	DomainWrite   = "extkit/write/v1"
	DomainPayload = "extkit/payload/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data ...[]byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// WriteDigest is the message an owner signs to authorize storing value at
// key. The key is length-prefixed so that key/value boundaries are fixed.
func WriteDigest(key string, value []byte) []byte {
	n := len(key)
	prefix := []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	return hashWithDomain(DomainWrite, prefix, []byte(key), value)
}

// PayloadDigest returns a short hex fingerprint of a stored payload, used in
// logs and approval prompts.
func PayloadDigest(value []byte) string {
	return hex.EncodeToString(hashWithDomain(DomainPayload, value))[:16]
}
