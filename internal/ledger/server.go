package ledger

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/wallet"
)

// Server exposes a Client over HTTP. Only the owner may write.
type Server struct {
	backend Client
	owner   wallet.PublicKey
	logger  *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the request logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer serves backend. Writes must be signed by owner.
func NewServer(backend Client, owner wallet.PublicKey, opts ...ServerOption) *Server {
	s := &Server{backend: backend, owner: owner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers the ledger routes on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/data/{key}", s.handleGet)
	r.Put("/v1/data/{key}", s.handlePut)
}

// Handler returns a router with the ledger routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("ledger request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ok, err := s.backend.IsAvailable(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	addr, err := s.backend.SelfAddress(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id, err := s.backend.NetworkID(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Status{Available: ok, Address: addr, NetworkID: id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := s.backend.GetBytes(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(value) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(value)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	pub, err := wallet.ParsePublicKey(r.Header.Get(headerPublicKey))
	if err != nil {
		http.Error(w, "missing or invalid public key", http.StatusForbidden)
		return
	}
	if !pub.Equal(s.owner) {
		http.Error(w, "not the ledger owner", http.StatusForbidden)
		return
	}
	sig, err := hex.DecodeString(r.Header.Get(headerSignature))
	if err != nil || len(sig) == 0 {
		http.Error(w, "missing or invalid signature", http.StatusForbidden)
		return
	}

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueSize))
	if err != nil {
		http.Error(w, "value too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !wallet.VerifyDigest(s.owner, codec.WriteDigest(key, value), sig) {
		http.Error(w, "signature does not match write", http.StatusForbidden)
		return
	}

	if err := s.backend.SetBytes(r.Context(), key, value); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("ledger write", "key", key, "digest", codec.PayloadDigest(value))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, ErrRejected):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		s.logger.Error("ledger backend error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
