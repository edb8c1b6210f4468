package channel

import (
	"context"
	"fmt"

	"medreminder-backend/internal/reminder/domain"

	"golang.org/x/time/rate"
)

type throttledChannel struct {
	next    Channel
	limiter *rate.Limiter
}

// Throttle limits ch to perSecond deliveries with the given burst.
// A non-positive rate returns ch unchanged.
func Throttle(ch Channel, perSecond float64, burst int) Channel {
	if perSecond <= 0 {
		return ch
	}
	if burst < 1 {
		burst = 1
	}
	return &throttledChannel{
		next:    ch,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *throttledChannel) Deliver(ctx context.Context, recipient string, r *domain.Reminder) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("delivery throttled: %w", err)
	}
	return t.next.Deliver(ctx, recipient, r)
}

func (t *throttledChannel) Verify(ctx context.Context) error {
	return Verify(ctx, t.next)
}
