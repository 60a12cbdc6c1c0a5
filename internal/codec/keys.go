package codec

import "strings"

// IndexKey is the reserved ledger key holding the serialized index.
const IndexKey = "extension_keys"

// RecordKeyPrefix prefixes every per-record ledger key.
const RecordKeyPrefix = "extension_"

// RecordKey derives the ledger key for a record id.
func RecordKey(id string) string {
	return RecordKeyPrefix + id
}

// RecordIDFromKey is the inverse of RecordKey. It reports false for the
// index key and for keys outside the record namespace.
func RecordIDFromKey(key string) (string, bool) {
	if key == IndexKey || !strings.HasPrefix(key, RecordKeyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, RecordKeyPrefix)
	return id, id != ""
}
