package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"dustchain/config"
	"dustchain/core/runtime"
	"dustchain/core/types"
	"dustchain/observability"
)

const (
	maxRequestBytes = 1 << 20 // 1 MiB
	limiterIdleTTL  = 10 * time.Minute
	requestIDHeader = "X-Request-ID"
)

// Submitter queues calls for the next block.
type Submitter interface {
	Add(call *types.Call) (string, error)
}

type handlerFunc func(r *http.Request, req *RPCRequest) (interface{}, *RPCError)

type method struct {
	module  string
	// scope is the bearer token scope required; empty means public.
	scope   string
	// limited methods count against the per-client submission limiter.
	limited bool
	fn      handlerFunc
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ServerOptions configures the JSON-RPC server.
type ServerOptions struct {
	Auth      config.RPCAuth
	RateLimit config.RateLimit
	Logger    *slog.Logger
}

type Server struct {
	rt      *runtime.Runtime
	pool    Submitter
	auth    *authenticator
	logger  *slog.Logger
	limit   config.RateLimit
	methods map[string]method

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewServer(rt *runtime.Runtime, pool Submitter, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.RateLimit
	if limit.PerSecond <= 0 {
		limit.PerSecond = 20
	}
	if limit.Burst <= 0 {
		limit.Burst = 40
	}
	s := &Server{
		rt:       rt,
		pool:     pool,
		auth:     newAuthenticator(opts.Auth),
		logger:   logger.With("component", "rpc"),
		limit:    limit,
		visitors: make(map[string]*visitor),
	}
	s.methods = map[string]method{
		"dust_submitCall":           {module: "dust", limited: true, fn: s.handleSubmitCall},
		"dust_getBalance":           {module: "dust", fn: s.handleGetBalance},
		"swap_get":                  {module: "swap", fn: s.handleSwapGet},
		"swap_pendingVerifications": {module: "swap", fn: s.handlePendingVerifications},
		"evidence_get":              {module: "evidence", fn: s.handleEvidenceGet},
		"affiliate_chain":           {module: "affiliate", fn: s.handleAffiliateChain},
		"gov_proposal":              {module: "governance", fn: s.handleGovProposal},
		"oracle_submitVerification": {module: "oracle", scope: ScopeOracle, fn: s.handleOracleSubmitVerification},
		"oracle_setPrice":           {module: "oracle", scope: ScopeOracle, fn: s.handleOracleSetPrice},
		"admin_call":                {module: "admin", scope: ScopeAdmin, fn: s.handleAdminCall},
	}
	return s
}

// Router mounts the JSON-RPC endpoint, the health probe and the prometheus
// scrape endpoint.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) int {
	status := rpcErr.status
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
	return status
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) int {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
	return http.StatusOK
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)
	w.Header().Set("Content-Type", "application/json")

	req, rpcErr := decodeRequest(w, r)
	if rpcErr != nil {
		writeError(w, nil, rpcErr)
		return
	}
	m, ok := s.methods[req.Method]
	if !ok {
		status := writeError(w, req.ID, newError(http.StatusNotFound, codeMethodNotFound, "method not found", req.Method))
		observability.ModuleMetrics().Observe("unknown", req.Method, status, time.Since(start))
		return
	}

	status := s.serve(w, r, req, m)
	observability.ModuleMetrics().Observe(m.module, req.Method, status, time.Since(start))
	s.logger.Debug("rpc request",
		"method", req.Method,
		"status", status,
		"request_id", requestID,
		"duration", time.Since(start))
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, req *RPCRequest, m method) int {
	if m.scope != "" {
		if _, authErr := s.auth.authorize(r, m.scope); authErr != nil {
			return writeError(w, req.ID, authErr)
		}
	}
	if m.limited {
		source := clientSource(r)
		if !s.allowSource(source, time.Now()) {
			observability.ModuleMetrics().RecordThrottle(m.module, "rate_limit")
			return writeError(w, req.ID, newError(http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded", source))
		}
	}
	result, rpcErr := m.fn(r, req)
	if rpcErr != nil {
		return writeError(w, req.ID, rpcErr)
	}
	return writeResult(w, req.ID, result)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*RPCRequest, *RPCError) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, newError(http.StatusRequestEntityTooLarge, codeInvalidRequest, fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes), nil)
		}
		return nil, newError(http.StatusBadRequest, codeInvalidRequest, "failed to read request body", err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, newError(http.StatusBadRequest, codeInvalidRequest, "request body required", nil)
	}
	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, newError(http.StatusBadRequest, codeParseError, "invalid JSON payload", err.Error())
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		return nil, newError(http.StatusBadRequest, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
	}
	if req.Method == "" {
		return nil, newError(http.StatusBadRequest, codeInvalidRequest, "method required", nil)
	}
	return req, nil
}

// param decodes the single parameter object of req into out.
func param(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return invalidParams("parameter object required", nil)
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return invalidParams("invalid parameter object", err)
	}
	return nil
}

func (s *Server) allowSource(source string, now time.Time) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > limiterIdleTTL {
			delete(s.visitors, key)
		}
	}
	v, ok := s.visitors[source]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.limit.PerSecond), s.limit.Burst)}
		s.visitors[source] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if candidate != "" {
			return candidate
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// callError converts a runtime error into an RPC error carrying its stable
// name.
func callError(err error) *RPCError {
	var dispatchErr *runtime.DispatchError
	if errors.As(err, &dispatchErr) {
		return newError(http.StatusUnprocessableEntity, codeCallFailed, dispatchErr.Err.Error(), map[string]string{
			"call":  dispatchErr.Call,
			"error": dispatchErr.Name,
		})
	}
	return newError(http.StatusBadRequest, codeCallFailed, err.Error(), map[string]string{"error": runtime.ErrorName(err)})
}
