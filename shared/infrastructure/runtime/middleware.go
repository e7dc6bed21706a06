package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"mavencrawler/shared/application/ports"
)

// HandlerFunc adapts a function to ports.Handler.
type HandlerFunc func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error)

func (f HandlerFunc) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	return f(ctx, req)
}

type Middleware func(next ports.Handler) ports.Handler

// Chain wraps h so that the first middleware is the outermost.
func Chain(h ports.Handler, middlewares ...Middleware) ports.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RecoveryMiddleware turns a panicking handler into a dropped message. A
// message that panics once will panic again, so it is not requeued.
func RecoveryMiddleware(logger ports.Logger) Middleware {
	return func(next ports.Handler) ports.Handler {
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (resp ports.RuntimeResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered",
						"request_id", req.ID,
						"panic", fmt.Sprintf("%v", r),
						"stack", string(debug.Stack()))

					resp = ports.RuntimeResponse{
						Success:   false,
						Retryable: false,
						Error:     fmt.Sprintf("panic recovered: %v", r),
					}
					err = nil
				}
			}()

			return next.Handle(ctx, req)
		})
	}
}

func LoggingMiddleware(logger ports.Logger) Middleware {
	return func(next ports.Handler) ports.Handler {
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			start := time.Now()

			logger.Info("Processing request",
				"request_id", req.ID,
				"type", req.Type,
				"source", req.Source,
				"payload_size", len(req.Payload),
				"redelivered", req.Redelivered)

			resp, err := next.Handle(ctx, req)

			fields := []interface{}{
				"request_id", req.ID,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case err != nil:
				logger.Error("Request failed", append(fields, "error", err.Error())...)
			case !resp.Success:
				logger.Info("Request completed with failure",
					append(fields, "error", resp.Error, "retryable", resp.Retryable)...)
			default:
				logger.Info("Request completed successfully", fields...)
			}

			return resp, err
		})
	}
}

func MetricsMiddleware(metrics ports.Metrics) Middleware {
	return func(next ports.Handler) ports.Handler {
		return HandlerFunc(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			start := time.Now()
			tags := map[string]string{"type": req.Type, "source": req.Source}

			metrics.IncrementCounter("runtime.requests", tags)

			resp, err := next.Handle(ctx, req)

			metrics.RecordHistogram("runtime.duration_seconds", time.Since(start).Seconds(), tags)
			if err != nil || !resp.Success {
				metrics.IncrementCounter("runtime.errors", tags)
			} else {
				metrics.IncrementCounter("runtime.success", tags)
			}

			return resp, err
		})
	}
}
