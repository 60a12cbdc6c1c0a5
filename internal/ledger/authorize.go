package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/wallet"
)

// WriteRequest describes a pending write shown to an Approver.
type WriteRequest struct {
	Key    string
	Value  []byte
	Digest string // short payload fingerprint
}

// Approver decides whether a write may proceed. Returning any error refuses
// the write.
type Approver interface {
	Approve(ctx context.Context, req WriteRequest) error
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req WriteRequest) error

func (f ApproverFunc) Approve(ctx context.Context, req WriteRequest) error {
	return f(ctx, req)
}

// AutoApprove approves every write.
var AutoApprove Approver = ApproverFunc(func(context.Context, WriteRequest) error { return nil })

// DigestSigner signs ledger write digests.
type DigestSigner interface {
	PublicKey() wallet.PublicKey
	SignDigest(digest []byte) ([]byte, error)
}

// OwnerApprover approves a write only when Signer produces a valid signature
// over the write digest for Owner.
type OwnerApprover struct {
	Signer DigestSigner
	Owner  wallet.PublicKey
}

func (a OwnerApprover) Approve(_ context.Context, req WriteRequest) error {
	if !a.Signer.PublicKey().Equal(a.Owner) {
		return fmt.Errorf("signer %s is not the ledger owner", a.Signer.PublicKey().Address())
	}
	sig, err := a.Signer.SignDigest(codec.WriteDigest(req.Key, req.Value))
	if err != nil {
		return err
	}
	if !wallet.VerifyDigest(a.Owner, codec.WriteDigest(req.Key, req.Value), sig) {
		return errors.New("invalid owner signature")
	}
	return nil
}

type authorized struct {
	Client
	approver Approver
}

// Authorize wraps c so every SetBytes is approved first. Any approval
// failure is reported as ErrRejected and nothing is written.
func Authorize(c Client, a Approver) Client {
	return &authorized{Client: c, approver: a}
}

func (a *authorized) SetBytes(ctx context.Context, key string, value []byte) error {
	req := WriteRequest{Key: key, Value: value, Digest: codec.PayloadDigest(value)}
	if err := a.approver.Approve(ctx, req); err != nil {
		if errors.Is(err, ErrRejected) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return a.Client.SetBytes(ctx, key, value)
}
