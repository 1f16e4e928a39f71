package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled shares one token bucket across every call made through the
// returned providers, capping the process-wide request rate to a backend.
type Throttled struct {
	limiter *rate.Limiter
}

// NewThrottle allows rps requests per second with the given burst. A
// non-positive rps disables throttling.
func NewThrottle(rps float64, burst int) *Throttled {
	if rps <= 0 {
		return &Throttled{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Wrap(p Provider) Provider {
	return throttledProvider{next: p, limiter: t.limiter}
}

type throttledProvider struct {
	next    Provider
	limiter *rate.Limiter
}

func (p throttledProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.next.Chat(ctx, messages)
}
