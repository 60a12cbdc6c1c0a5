package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/registry"
)

// Stage names the step of a submission that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageSeal     Stage = "seal"
	StageEncode   Stage = "encode"
	StagePayload  Stage = "payload"
	StageIndex    Stage = "index"
)

// SubmitError describes a failed submission. Orphaned is set when the
// payload was written but the id never reached the index.
type SubmitError struct {
	Stage    Stage
	ID       string
	Orphaned bool
	Err      error
}

func (e *SubmitError) Error() string {
	msg := fmt.Sprintf("submit failed at %s: %v", e.Stage, e.Err)
	if e.Orphaned {
		msg += fmt.Sprintf(" (payload for %s written but not indexed)", e.ID)
	}
	return msg
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Message is the short text shown to the user.
func (e *SubmitError) Message() string {
	if errors.Is(e.Err, ledger.ErrRejected) {
		return "transaction rejected by user"
	}
	return "submission failed: " + e.Err.Error()
}

// IsSubmitError reports whether err is or wraps a *SubmitError.
func IsSubmitError(err error) bool {
	var se *SubmitError
	return errors.As(err, &se)
}

// Committer durably stores an encoded record.
type Committer interface {
	Commit(ctx context.Context, id string, payload []byte) error
}

// LedgerCommitter writes the payload and then appends the id to the index.
// The index is never touched when the payload write fails.
type LedgerCommitter struct {
	Ledger   ledger.Client
	Registry *registry.Manager
}

func (c LedgerCommitter) Commit(ctx context.Context, id string, payload []byte) error {
	if err := c.Ledger.SetBytes(ctx, codec.RecordKey(id), payload); err != nil {
		return &SubmitError{Stage: StagePayload, ID: id, Err: err}
	}
	if err := c.Registry.AppendID(ctx, id); err != nil {
		return &SubmitError{Stage: StageIndex, ID: id, Orphaned: true, Err: err}
	}
	return nil
}
