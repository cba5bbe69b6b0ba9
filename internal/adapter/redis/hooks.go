package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// CommandObserver receives per-command timings. *metrics.RedisMetrics satisfies it.
type CommandObserver interface {
	Command(operation string, failed bool, seconds float64)
	DialFailed()
	BreakerStateChanged(state string)
}

// MetricsHook records every command sent through the client.
type MetricsHook struct {
	observer CommandObserver
}

var _ goredis.Hook = (*MetricsHook)(nil)

func NewMetricsHook(observer CommandObserver) *MetricsHook {
	return &MetricsHook{observer: observer}
}

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.observer.DialFailed()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observer.Command(cmd.Name(), failed(err), time.Since(start).Seconds())
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observer.Command("pipeline", failed(err), time.Since(start).Seconds())
		return err
	}
}

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 15 * time.Second
)

// BreakerHook fails Redis commands fast while Redis is unreachable, so the
// webhook path degrades to "no dedup, no cache" instead of waiting on timeouts.
type BreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ goredis.Hook = (*BreakerHook)(nil)

// NewBreakerHook creates the hook. observer may be nil.
func NewBreakerHook(observer CommandObserver) *BreakerHook {
	settings := gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool { return !failed(err) },
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			if observer != nil {
				observer.BreakerStateChanged(to.String())
			}
		},
	}
	return &BreakerHook{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (h *BreakerHook) State() gobreaker.State {
	return h.cb.State()
}

func (h *BreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return next
}

func (h *BreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		_, err := h.cb.Execute(func() (interface{}, error) {
			return nil, next(ctx, cmd)
		})
		return breakerError(err)
	}
}

func (h *BreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		_, err := h.cb.Execute(func() (interface{}, error) {
			return nil, next(ctx, cmds)
		})
		return breakerError(err)
	}
}

// breakerError keeps goredis.Nil and command errors untouched; only a
// rejected call is wrapped.
func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return err
}

// failed treats a cache miss as success.
func failed(err error) bool {
	return err != nil && !errors.Is(err, goredis.Nil)
}
