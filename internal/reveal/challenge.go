package reveal

import (
	"strconv"

	"github.com/roach88/extkit/internal/session"
)

// Challenge builds the message the owner signs to reveal a value. The
// layout is fixed: three labelled lines, no trailing newline.
func Challenge(token, selfAddress string, networkID uint64) string {
	return "publickey:" + token +
		"\ncontractAddresses:" + selfAddress +
		"\ncontractsChainId:" + strconv.FormatUint(networkID, 10)
}

// ChallengeFor builds the challenge for s.
func ChallengeFor(s *session.Session) string {
	return Challenge(s.Token, s.SelfAddress, s.NetworkID)
}
