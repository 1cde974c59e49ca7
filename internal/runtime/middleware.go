package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// Middleware enforces runtime limits for tool calls using the Controller.
// It bounds global concurrency, tags each call with a request id, and applies
// an operation timeout.
type Middleware struct {
	ctrl   *Controller
	logger zerolog.Logger
}

// NewMiddleware constructs a Middleware bound to the provided Controller.
func NewMiddleware(ctrl *Controller, logger zerolog.Logger) *Middleware {
	return &Middleware{ctrl: ctrl, logger: logger}
}

type callResult struct {
	res *mcp.CallToolResult
	err error
}

// ToolMiddleware implements mcp-go's tool handler middleware interface.
// Sheet operations do not observe cancellation mid-parse, so the handler runs
// on its own goroutine; on timeout the caller gets a TIMEOUT tool error and
// the handler's eventual result is dropped. The request slot is held until
// the handler actually returns.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		acquireCtx := ctx
		if m.ctrl.limits.AcquireRequestTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, m.ctrl.limits.AcquireRequestTimeout)
			defer cancel()
		}

		if err := m.ctrl.AcquireRequest(acquireCtx); err != nil {
			return mcperr.Wrapf(mcperr.BusyResource, "concurrent request limit reached (max=%d)", m.ctrl.limits.MaxConcurrentRequests), nil
		}

		logger := m.logger.With().
			Str("request_id", uuid.NewString()).
			Str("tool", req.Params.Name).
			Logger()

		callCtx := logger.WithContext(ctx)
		cancel := func() {}
		if m.ctrl.limits.OperationTimeout > 0 {
			callCtx, cancel = context.WithTimeout(callCtx, m.ctrl.limits.OperationTimeout)
		}
		defer cancel()

		start := time.Now()
		done := make(chan callResult, 1)
		go func() {
			defer m.ctrl.ReleaseRequest()
			res, err := next(callCtx, req)
			done <- callResult{res: res, err: err}
		}()

		select {
		case out := <-done:
			if errors.Is(out.err, context.DeadlineExceeded) {
				logger.Warn().Dur("duration", time.Since(start)).Msg("tool call timed out")
				return mcperr.New(mcperr.Timeout, "operation exceeded configured time limit"), nil
			}
			logger.Debug().Dur("duration", time.Since(start)).Msg("tool call finished")
			return out.res, out.err
		case <-callCtx.Done():
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				logger.Warn().Dur("duration", time.Since(start)).Msg("tool call timed out")
				return mcperr.New(mcperr.Timeout, "operation exceeded configured time limit"), nil
			}
			return nil, callCtx.Err()
		}
	}
}
