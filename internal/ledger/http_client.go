package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/extkit/internal/codec"
)

const (
	headerPublicKey = "X-Ledger-Public-Key"
	headerSignature = "X-Ledger-Signature"

	maxValueSize = 1 << 20
)

// Status is the body of GET /v1/status.
type Status struct {
	Available bool   `json:"available"`
	Address   string `json:"address"`
	NetworkID uint64 `json:"network_id"`
}

// HTTPClient is a Client for a ledger served by Server.
type HTTPClient struct {
	baseURL    string
	signer     DigestSigner
	httpClient *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.httpClient = c }
}

// NewHTTPClient returns a client for the ledger at baseURL. Writes are signed
// with signer; a nil signer makes the client read-only.
func NewHTTPClient(baseURL string, signer DigestSigner, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signer:     signer,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) dataURL(key string) string {
	return c.baseURL + "/v1/data/" + url.PathEscape(key)
}

func (c *HTTPClient) status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError("ledger status", resp)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode ledger status: %w", err)
	}
	return &st, nil
}

func (c *HTTPClient) IsAvailable(ctx context.Context) (bool, error) {
	st, err := c.status(ctx)
	if err != nil {
		return false, err
	}
	return st.Available, nil
}

func (c *HTTPClient) SelfAddress(ctx context.Context) (string, error) {
	st, err := c.status(ctx)
	if err != nil {
		return "", err
	}
	return st.Address, nil
}

func (c *HTTPClient) NetworkID(ctx context.Context) (uint64, error) {
	st, err := c.status(ctx)
	if err != nil {
		return 0, err
	}
	return st.NetworkID, nil
}

func (c *HTTPClient) GetBytes(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL(key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxValueSize+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if len(body) == 0 {
			return nil, nil
		}
		return body, nil
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	default:
		return nil, responseError("get "+key, resp)
	}
}

func (c *HTTPClient) SetBytes(ctx context.Context, key string, value []byte) error {
	if c.signer == nil {
		return fmt.Errorf("%w: no signing key configured", ErrRejected)
	}
	sig, err := c.signer.SignDigest(codec.WriteDigest(key, value))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.dataURL(key), bytes.NewReader(value))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(headerPublicKey, c.signer.PublicKey().String())
	req.Header.Set(headerSignature, hex.EncodeToString(sig))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		return nil
	}
	return responseError("set "+key, resp)
}

// responseError maps non-success statuses onto the package sentinels.
func responseError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%s: %w: %s", op, ErrRejected, msg)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, msg)
	}
}
