package catalog

import (
	"crypto/rand"
	"strconv"
	"time"
)

// IDGenerator produces record ids.
type IDGenerator interface {
	NewID() string
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// TimeIDGenerator produces ids of the form <unix-millis>-<7 base36 chars>.
type TimeIDGenerator struct {
	Now func() time.Time
}

func (g TimeIDGenerator) NewID() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return strconv.FormatInt(now().UnixMilli(), 10) + "-" + randomBase36(7)
}

// randomBase36 draws n characters uniformly from base36. Bytes at or above
// the largest multiple of 36 are discarded.
func randomBase36(n int) string {
	const limit = 256 - 256%len(base36)
	out := make([]byte, 0, n)
	var buf [16]byte
	for len(out) < n {
		rand.Read(buf[:])
		for _, b := range buf {
			if int(b) < limit && len(out) < n {
				out = append(out, base36[int(b)%len(base36)])
			}
		}
	}
	return string(out)
}
