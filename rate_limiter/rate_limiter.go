package rate_limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// APILimiter paces calls to a remote API. A limiter with a zero fill rate never blocks.
type APILimiter struct {
	Name string

	limiter *rate.Limiter
}

func NewAPILimiter(d *Definition) *APILimiter {
	res := &APILimiter{Name: d.Name}
	if d.FillRate > 0 {
		res.limiter = rate.NewLimiter(d.FillRate, d.BucketSize)
	}
	return res
}

// Unlimited returns a limiter which never blocks
func Unlimited(name string) *APILimiter {
	return &APILimiter{Name: name}
}

func (l *APILimiter) String() string {
	if l.limiter == nil {
		return (&Definition{Name: l.Name}).String()
	}
	return (&Definition{Name: l.Name, FillRate: l.limiter.Limit(), BucketSize: l.limiter.Burst()}).String()
}

// Wait blocks until a call is permitted or the context is done
func (l *APILimiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}
