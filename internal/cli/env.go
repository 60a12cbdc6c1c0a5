package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/extkit/internal/catalog"
	"github.com/roach88/extkit/internal/cipher"
	"github.com/roach88/extkit/internal/config"
	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/logging"
	"github.com/roach88/extkit/internal/wallet"
)

// env is the per-invocation runtime built from flags and config.
type env struct {
	opts    *RootOptions
	cfg     *config.Config
	logger  *slog.Logger
	out     *OutputFormatter
	errw    io.Writer
	closers []io.Closer
}

func newEnv(cmd *cobra.Command, opts *RootOptions) (*env, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, out.Fail("failed to load config", configError(err))
	}

	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Verbose:    opts.Verbose,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, out.Fail("failed to set up logging", configError(err))
	}
	slog.SetDefault(logger)

	return &env{
		opts:    opts,
		cfg:     cfg,
		logger:  logger,
		out:     out,
		errw:    cmd.ErrOrStderr(),
		closers: []io.Closer{closer},
	}, nil
}

// Close releases everything opened for the invocation, newest first.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			e.logger.Error("error closing resource", "error", err)
		}
	}
}

// interactive reports whether prompts can be shown.
func (e *env) interactive() bool {
	return !e.opts.Yes && e.opts.Format == "text" && term.IsTerminal(int(os.Stdin.Fd()))
}

// spin runs fn behind a spinner when stderr is a terminal.
func (e *env) spin(msg string, fn func() error) error {
	f, ok := e.errw.(*os.File)
	if !ok || e.opts.Format != "text" || !term.IsTerminal(int(f.Fd())) {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + msg
	s.Start()
	defer s.Stop()
	return fn()
}

func (e *env) loadKey() (*wallet.Key, error) {
	key, err := wallet.Load(e.cfg.Wallet.KeyFile)
	if err != nil {
		return nil, configError(fmt.Errorf("%w (run `extkit wallet init` first)", err))
	}
	return key, nil
}

// openBackend opens the configured ledger without write approval.
func (e *env) openBackend() (ledger.Client, error) {
	if e.opts.Ledger != nil {
		return e.opts.Ledger, nil
	}

	info := ledger.Info{NetworkID: e.cfg.Ledger.NetworkID}
	switch e.cfg.Ledger.Backend {
	case config.BackendMemory:
		return ledger.NewMemory(ledger.WithInfo(info)), nil
	case config.BackendSQLite:
		s, err := ledger.OpenSQLite(e.cfg.Ledger.Path, ledger.WithLocalInfo(info))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, s)
		return s, nil
	case config.BackendBolt:
		b, err := ledger.OpenBolt(e.cfg.Ledger.Path, ledger.WithLocalInfo(info))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, b)
		return b, nil
	case config.BackendHTTP:
		var signer ledger.DigestSigner
		if key, err := e.loadKey(); err == nil {
			signer = key
		} else {
			e.logger.Debug("no wallet key, remote ledger is read-only", "error", err)
		}
		return ledger.NewHTTPClient(e.cfg.Ledger.URL, signer), nil
	default:
		return nil, configError(fmt.Errorf("unknown ledger backend %q", e.cfg.Ledger.Backend))
	}
}

// openLedger opens the configured ledger with every write routed through
// the approver.
func (e *env) openLedger() (ledger.Client, error) {
	base, err := e.openBackend()
	if err != nil {
		return nil, err
	}
	return ledger.Authorize(base, e.approver()), nil
}

func (e *env) approver() ledger.Approver {
	switch {
	case e.opts.Approver != nil:
		return e.opts.Approver
	case e.opts.Yes:
		return ledger.AutoApprove
	case e.interactive():
		return promptApprover(e.out.GetErrWriter())
	default:
		return ledger.ApproverFunc(func(context.Context, ledger.WriteRequest) error {
			return errors.New("write needs confirmation; rerun with --yes")
		})
	}
}

// signer returns the owner wallet, wrapped in a confirmation step unless
// --yes was given.
func (e *env) signer() (wallet.Signer, error) {
	key, err := e.loadKey()
	if err != nil {
		return nil, err
	}
	switch {
	case e.opts.Confirm != nil:
		return &wallet.ConfirmingSigner{Signer: key, Confirm: e.opts.Confirm}, nil
	case e.opts.Yes:
		return key, nil
	case e.interactive():
		return &wallet.ConfirmingSigner{Signer: key, Confirm: promptSignature}, nil
	default:
		return &wallet.ConfirmingSigner{Signer: key, Confirm: func(context.Context, string) (bool, error) {
			return false, errors.New("signature needs confirmation; rerun with --yes")
		}}, nil
	}
}

func (e *env) openCipher() (cipher.Cipher, error) {
	var key []byte
	if e.cfg.Catalog.Cipher == cipher.SecretboxName {
		k, err := readHexFile(e.cfg.Catalog.SecretboxKeyFile)
		if err != nil {
			return nil, configError(fmt.Errorf("secretbox key: %w", err))
		}
		key = k
	}
	c, err := cipher.New(e.cfg.Catalog.Cipher, key)
	if err != nil {
		return nil, configError(err)
	}
	return c, nil
}

func (e *env) catalog(l ledger.Client, c cipher.Cipher) *catalog.Catalog {
	opts := []catalog.Option{
		catalog.WithLogger(e.logger),
		catalog.WithFetchConcurrency(e.cfg.Catalog.FetchConcurrency),
	}
	if e.opts.Now != nil {
		opts = append(opts, catalog.WithNow(e.opts.Now))
	}
	return catalog.New(l, c, opts...)
}

// openCatalog opens the ledger and cipher and builds a catalog.
func (e *env) openCatalog() (*catalog.Catalog, ledger.Client, error) {
	l, err := e.openLedger()
	if err != nil {
		return nil, nil, err
	}
	c, err := e.openCipher()
	if err != nil {
		return nil, nil, err
	}
	return e.catalog(l, c), l, nil
}

func readHexFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimSpace(string(data)))
}

func writeHexFile(path string, data []byte) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(data)+"\n"), 0o600)
}
