package wallet

import "context"

// ConfirmFunc asks the owner whether to sign msg.
type ConfirmFunc func(ctx context.Context, msg string) (bool, error)

// ConfirmingSigner asks for confirmation before delegating to the wrapped
// signer. A negative answer is ErrDeclined.
type ConfirmingSigner struct {
	Signer  Signer
	Confirm ConfirmFunc
}

func (s *ConfirmingSigner) Address() string {
	return s.Signer.Address()
}

func (s *ConfirmingSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	ok, err := s.Confirm(ctx, string(msg))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeclined
	}
	return s.Signer.SignMessage(ctx, msg)
}

// Unwrap returns the wrapped signer.
func (s *ConfirmingSigner) Unwrap() Signer {
	return s.Signer
}

// Verify checks sig with the first Verifier found in the wrap chain of s.
// supported is false when no signer in the chain can verify.
func Verify(s Signer, msg, sig []byte) (ok, supported bool) {
	for s != nil {
		if v, isVerifier := s.(Verifier); isVerifier {
			return v.VerifyMessage(msg, sig), true
		}
		u, canUnwrap := s.(interface{ Unwrap() Signer })
		if !canUnwrap {
			break
		}
		s = u.Unwrap()
	}
	return false, false
}
