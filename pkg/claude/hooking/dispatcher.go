package hooking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// DefaultTimeout bounds a single callback when its matcher sets none.
const DefaultTimeout = 60 * time.Second

// Config configures a Dispatcher.
type Config struct {
	Logger *zap.Logger
	// Timeout is the per-callback default. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Registration describes one matcher as announced to the worker.
type Registration struct {
	Matcher     string
	CallbackIDs []string
	Timeout     time.Duration
}

type registered struct {
	HookMatcher
	match matchFunc
	ids   []string
}

type callbackRef struct {
	event   HookEvent
	matcher int
	index   int
}

// Dispatcher runs hook callbacks. Its registrations are fixed at
// construction.
type Dispatcher struct {
	matchers  map[HookEvent][]registered
	callbacks map[string]callbackRef
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDispatcher compiles the matchers and assigns callback IDs in event,
// matcher and callback order.
func NewDispatcher(hooks map[HookEvent][]HookMatcher, cfg Config) (*Dispatcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{
		matchers:  make(map[HookEvent][]registered),
		callbacks: make(map[string]callbackRef),
		timeout:   timeout,
		logger:    logger.Named("hooks"),
	}
	for event := range hooks {
		if !event.Valid() {
			return nil, clauderrs.NewValidationError(
				clauderrs.ErrCodeInvalidFormat,
				fmt.Sprintf("unknown hook event %q", event),
				nil,
				"hooks",
				string(event),
			)
		}
	}
	next := 0
	for _, event := range HookEvents {
		for mi, m := range hooks[event] {
			match, err := compileMatcher(m.Matcher)
			if err != nil {
				return nil, clauderrs.NewValidationError(
					clauderrs.ErrCodeInvalidFormat,
					"invalid hook matcher",
					err,
					"hooks."+string(event),
					m.Matcher,
				)
			}
			reg := registered{
				HookMatcher: HookMatcher{
					Matcher: m.Matcher,
					Hooks:   append([]HookCallback(nil), m.Hooks...),
					Timeout: m.Timeout,
				},
				match: match,
			}
			for ci := range m.Hooks {
				id := fmt.Sprintf("hook_%d", next)
				next++
				reg.ids = append(reg.ids, id)
				d.callbacks[id] = callbackRef{event: event, matcher: mi, index: ci}
			}
			d.matchers[event] = append(d.matchers[event], reg)
		}
	}

	return d, nil
}

// Has reports whether any callback is registered for event.
func (d *Dispatcher) Has(event HookEvent) bool {
	if d == nil {
		return false
	}

	return len(d.matchers[event]) > 0
}

// Registrations returns the matchers per event with their callback IDs.
func (d *Dispatcher) Registrations() map[HookEvent][]Registration {
	if d == nil {
		return nil
	}
	out := make(map[HookEvent][]Registration, len(d.matchers))
	for event, regs := range d.matchers {
		for _, reg := range regs {
			out[event] = append(out[event], Registration{
				Matcher:     reg.Matcher,
				CallbackIDs: append([]string(nil), reg.ids...),
				Timeout:     reg.Timeout,
			})
		}
	}

	return out
}

// Dispatch runs every callback whose matcher applies to input, in
// registration order, stopping at the first decisive output. Callback
// timeouts and failures never stop the dispatch; they are collected in
// Outcome.Errors.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	event HookEvent,
	input HookInput,
	toolUseID *string,
) Outcome {
	out := Outcome{Event: event}
	if d == nil {
		return out
	}
	subject, hasSubject := input.subject()
	for _, reg := range d.matchers[event] {
		if hasSubject && !reg.match(subject) {
			continue
		}
		for i, callback := range reg.Hooks {
			if d.invoke(ctx, &out, reg.ids[i], callback, reg.Timeout, input, toolUseID) {
				return out
			}
		}
	}

	return out
}

// Invoke runs the single callback registered under callbackID. The worker
// uses it through hook_callback control requests.
func (d *Dispatcher) Invoke(
	ctx context.Context,
	callbackID string,
	input HookInput,
	toolUseID *string,
) (Outcome, error) {
	if d == nil {
		return Outcome{}, fmt.Errorf("no hook registered for callback %s", callbackID)
	}
	ref, ok := d.callbacks[callbackID]
	if !ok {
		return Outcome{}, fmt.Errorf("no hook registered for callback %s", callbackID)
	}
	reg := d.matchers[ref.event][ref.matcher]
	out := Outcome{Event: ref.event}
	d.invoke(ctx, &out, callbackID, reg.Hooks[ref.index], reg.Timeout, input, toolUseID)

	return out, nil
}

// invoke runs one callback, merges its output, and reports whether the
// dispatch must stop.
func (d *Dispatcher) invoke(
	ctx context.Context,
	out *Outcome,
	id string,
	callback HookCallback,
	timeout time.Duration,
	input HookInput,
	toolUseID *string,
) bool {
	if err := ctx.Err(); err != nil {
		out.Errors = append(out.Errors, err)

		return true
	}
	if timeout <= 0 {
		timeout = d.timeout
	}
	out.Invoked++
	res, err := d.call(ctx, out.Event, id, callback, timeout, input, toolUseID)
	if err != nil {
		out.Errors = append(out.Errors, err)
		if !clauderrs.IsCallbackError(err) {
			return true
		}
		d.logger.Warn("hook failed open",
			zap.String("event", string(out.Event)),
			zap.String("callback_id", id),
			zap.Error(err),
		)

		return false
	}
	if out.merge(res) {
		d.logger.Debug("hook short-circuited dispatch",
			zap.String("event", string(out.Event)),
			zap.String("callback_id", id),
		)

		return true
	}

	return false
}

type callResult struct {
	output *HookOutput
	err    error
}

// call runs callback in its own goroutine under timeout. Panics and errors
// become HookExecutionErrors, a missed deadline a HookTimeoutError, and
// cancellation of ctx is returned as is.
func (d *Dispatcher) call(
	ctx context.Context,
	event HookEvent,
	id string,
	callback HookCallback,
	timeout time.Duration,
	input HookInput,
	toolUseID *string,
) (*HookOutput, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("hook panicked",
					zap.String("event", string(event)),
					zap.String("callback_id", id),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				resultCh <- callResult{err: fmt.Errorf("hook panicked: %v", r)}
			}
		}()
		output, err := callback(input, toolUseID, HookContext{Signal: callCtx})
		resultCh <- callResult{output: output, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, clauderrs.NewHookExecutionError(string(event), id, res.err)
		}

		return res.output, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, clauderrs.NewHookTimeoutError(string(event), id, timeout)
		}

		return nil, callCtx.Err()
	}
}
