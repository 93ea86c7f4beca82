package jsonrpc

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

// Handle registers h for inbound requests of subtype, replacing any
// previous handler.
func (r *Router) Handle(subtype string, h Handler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.handlers[subtype] = h
}

// HandleRequest runs the handler for an inbound request and writes its
// response. Unknown subtypes get an error response. The returned error is
// only a failure to write.
func (r *Router) HandleRequest(ctx context.Context, req *messages.ControlRequest) error {
	r.handlersMu.RLock()
	h, ok := r.handlers[req.Subtype]
	r.handlersMu.RUnlock()

	if !ok {
		r.logger.Warn("unsupported control request",
			zap.String("request_id", req.RequestID),
			zap.String("subtype", req.Subtype),
		)

		return r.respond(ctx, req.RequestID, nil,
			fmt.Errorf("unsupported control request subtype: %s", req.Subtype))
	}

	hctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.inflight[req.RequestID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.inflight, req.RequestID)
		r.mu.Unlock()
		cancel()
	}()

	data, err := r.invoke(hctx, h, req)
	if err != nil && errors.Is(hctx.Err(), context.Canceled) && ctx.Err() == nil {
		err = fmt.Errorf("request cancelled: %w", err)
	}

	return r.respond(ctx, req.RequestID, data, err)
}

// invoke runs h, converting a panic into an error response.
func (r *Router) invoke(
	ctx context.Context,
	h Handler,
	req *messages.ControlRequest,
) (data map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("control handler panicked",
				zap.String("subtype", req.Subtype),
				zap.Any("panic", p),
			)
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()

	return h(ctx, req)
}

// Cancel cancels the in-flight handler for requestID. It reports whether
// one was running.
func (r *Router) Cancel(requestID string) bool {
	r.mu.Lock()
	cancel, ok := r.inflight[requestID]
	r.mu.Unlock()
	if ok {
		cancel()
	}

	return ok
}

func (r *Router) respond(ctx context.Context, requestID string, data map[string]any, herr error) error {
	resp := &messages.ControlResponse{
		RequestID: requestID,
		Subtype:   messages.ResponseSuccess,
		Response:  data,
	}
	if herr != nil {
		resp = &messages.ControlResponse{
			RequestID: requestID,
			Subtype:   messages.ResponseError,
			Error:     herr.Error(),
		}
	}
	line, err := r.codec.Encode(resp)
	if err != nil {
		return fmt.Errorf("encode control response: %w", err)
	}

	return r.writer.WriteLine(ctx, line)
}
