// Package jsonrpc correlates control requests and responses exchanged with
// the worker over the shared stdio stream.
package jsonrpc

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// defaultRequestTimeout bounds a control request without an override.
const defaultRequestTimeout = 60 * time.Second

// LineWriter is the outbound half of a ports.Channel.
type LineWriter interface {
	WriteLine(ctx context.Context, line []byte) error
}

// Handler serves one inbound control request subtype. Its result becomes
// the success response body; an error becomes an error response.
type Handler func(ctx context.Context, req *messages.ControlRequest) (map[string]any, error)

// Config tunes a Router.
type Config struct {
	Logger  *zap.Logger
	Timeout time.Duration
	Codec   ports.Codec
}

type result struct {
	data map[string]any
	err  error
}

type pendingRequest struct {
	subtype string
	ch      chan result
}

// Router owns request correlation for one session.
type Router struct {
	writer  LineWriter
	codec   ports.Codec
	logger  *zap.Logger
	timeout time.Duration
	counter atomic.Uint64

	mu       sync.Mutex
	pending  map[string]pendingRequest
	inflight map[string]context.CancelFunc
	closed   error

	handlersMu sync.RWMutex
	handlers   map[string]Handler
}

// NewRouter creates a router writing through w.
func NewRouter(w LineWriter, cfg Config) *Router {
	r := &Router{
		writer:   w,
		codec:    cfg.Codec,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
		pending:  make(map[string]pendingRequest),
		inflight: make(map[string]context.CancelFunc),
		handlers: make(map[string]Handler),
	}
	if r.codec == nil {
		r.codec = parse.NewCodec()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.Named("control")
	if r.timeout <= 0 {
		r.timeout = defaultRequestTimeout
	}

	return r
}

// NextID returns a fresh request ID of the form req_<n>_<hex>.
func (r *Router) NextID() string {
	n := r.counter.Add(1)
	id := uuid.New()

	return fmt.Sprintf("req_%d_%s", n, hex.EncodeToString(id[:4]))
}

// SendOption adjusts a single Send call.
type SendOption func(*sendOptions)

type sendOptions struct {
	timeout time.Duration
}

// WithTimeout overrides the router's default timeout for one call.
func WithTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) { o.timeout = d }
}

// Send issues a control request with a generated ID and waits for its
// response.
func (r *Router) Send(
	ctx context.Context,
	subtype string,
	payload map[string]any,
	opts ...SendOption,
) (map[string]any, error) {
	return r.SendWithID(ctx, r.NextID(), subtype, payload, opts...)
}

// SendWithID issues a control request under an explicit ID. An ID that is
// already outstanding fails with ErrDuplicateRequestID before anything is
// written.
func (r *Router) SendWithID(
	ctx context.Context,
	requestID, subtype string,
	payload map[string]any,
	opts ...SendOption,
) (map[string]any, error) {
	o := sendOptions{timeout: r.timeout}
	for _, opt := range opts {
		opt(&o)
	}

	ch, err := r.register(requestID, subtype)
	if err != nil {
		return nil, err
	}
	defer r.unregister(requestID)

	line, err := r.codec.Encode(&messages.ControlRequest{
		RequestID: requestID,
		Subtype:   subtype,
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode control request: %w", err)
	}
	if err := r.writer.WriteLine(ctx, line); err != nil {
		return nil, err
	}

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-timer.C:
		r.logger.Warn("control request timed out",
			zap.String("request_id", requestID),
			zap.String("subtype", subtype),
			zap.Duration("timeout", o.timeout),
		)

		return nil, clauderrs.NewControlTimeoutError(requestID, subtype)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Router) register(requestID, subtype string) (chan result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed != nil {
		return nil, clauderrs.NewChannelClosedError(requestID, subtype, r.closed)
	}
	if _, dup := r.pending[requestID]; dup {
		return nil, clauderrs.NewControlError(
			clauderrs.ErrCodeDuplicateRequestID,
			"request id already outstanding",
			nil,
			requestID,
			subtype,
		)
	}
	ch := make(chan result, 1)
	r.pending[requestID] = pendingRequest{subtype: subtype, ch: ch}

	return ch, nil
}

func (r *Router) unregister(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, requestID)
}

// Deliver resolves the outstanding request matching resp. It reports
// false for responses nobody is waiting on, which are dropped.
func (r *Router) Deliver(resp *messages.ControlResponse) bool {
	r.mu.Lock()
	p, ok := r.pending[resp.RequestID]
	if ok {
		delete(r.pending, resp.RequestID)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("dropping late or unknown control response",
			zap.String("request_id", resp.RequestID),
		)

		return false
	}

	res := result{data: resp.Response}
	if resp.IsError() {
		res = result{err: clauderrs.NewControlError(
			clauderrs.ErrCodeControlFailed,
			resp.Error,
			nil,
			resp.RequestID,
			p.subtype,
		)}
	}
	p.ch <- res

	return true
}

// Close resolves every outstanding request with a ChannelClosed error and
// makes later sends fail immediately. Only the first cause is kept.
func (r *Router) Close(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed == nil {
		if cause == nil {
			cause = clauderrs.ErrChannelClosed
		}
		r.closed = cause
	}
	for id, p := range r.pending {
		p.ch <- result{err: clauderrs.NewChannelClosedError(id, p.subtype, r.closed)}
		delete(r.pending, id)
	}
	for _, cancel := range r.inflight {
		cancel()
	}
}

// Pending reports the number of outstanding outbound requests.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}
