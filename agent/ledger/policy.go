package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/arlindoconceicao/vertex-sub000/agent/utils"
	"github.com/avast/retry-go/v4"
	"github.com/golang/glog"
)

// Timer waits between attempts. Tests give one that doesn't sleep.
type Timer = retry.Timer

// Policy is the retry policy of ledger reads. The delay before the n:th retry
// is n*Step capped to MaxDelay.
type Policy struct {
	Attempts uint
	Step     time.Duration
	MaxDelay time.Duration
	Timer    Timer
}

// DefaultPolicy returns the policy of the runtime settings.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: utils.Settings.RetryAttempts(),
		Step:     utils.Settings.RetryStep(),
		MaxDelay: utils.Settings.RetryMaxDelay(),
	}
}

// Delay returns the wait after the failed attempt n, n starting from 0.
func (p Policy) Delay(n uint) time.Duration {
	d := time.Duration(n+1) * p.Step
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) options(ctx context.Context, what string) []retry.Option {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrNotFound)
		}),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return p.Delay(n)
		}),
		retry.OnRetry(func(n uint, err error) {
			glog.V(3).Infof("ledger %s attempt %d: %v", what, n+1, err)
		}),
	}
	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}
	return opts
}

// Do calls fn until it succeeds, returns an error other than ErrNotFound, or
// the attempts run out. It returns the number of calls made.
func Do[T any](ctx context.Context, p Policy, what string, fn func() (T, error)) (v T, attempts int, err error) {
	v, err = retry.DoWithData(func() (T, error) {
		attempts++
		return fn()
	}, p.options(ctx, what)...)
	return v, attempts, err
}
