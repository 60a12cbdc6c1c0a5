package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/roach88/extkit/internal/ledger"
)

// promptApprover asks on the terminal before every ledger write.
func promptApprover(w io.Writer) ledger.Approver {
	return ledger.ApproverFunc(func(ctx context.Context, req ledger.WriteRequest) error {
		approved := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("Write %d bytes to %s?", len(req.Value), req.Key)).
			Description("payload " + req.Digest).
			Affirmative("Approve").
			Negative("Reject").
			Value(&approved)
		if err := huh.NewForm(huh.NewGroup(confirm)).WithOutput(w).RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return ledger.ErrRejected
			}
			return err
		}
		if !approved {
			return errors.New("user rejected transaction")
		}
		return nil
	})
}

// promptSignature asks on the terminal before signing a reveal challenge.
func promptSignature(ctx context.Context, msg string) (bool, error) {
	approved := false
	confirm := huh.NewConfirm().
		Title("Sign reveal challenge?").
		Description(abbreviateChallenge(msg)).
		Affirmative("Sign").
		Negative("Cancel").
		Value(&approved)
	err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return approved, err
}

// abbreviateChallenge shortens the long session token for display.
func abbreviateChallenge(msg string) string {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if len(line) > 64 {
			lines[i] = line[:40] + "..." + line[len(line)-8:]
		}
	}
	return strings.Join(lines, "\n")
}
