package channel

import (
	"context"
	"errors"

	"medreminder-backend/internal/reminder/domain"
)

// ErrDeliveryDisabled is returned by the disabled channel. Its message is
// recorded verbatim as the reminder's lastError.
var ErrDeliveryDisabled = errors.New("email disabled")

// Channel delivers one reminder notification to a recipient.
// Implementations report failures as errors and must not panic.
type Channel interface {
	Deliver(ctx context.Context, recipient string, r *domain.Reminder) (messageID string, err error)
}

// Verifier is implemented by channels and transports that can check their
// connection without sending anything.
type Verifier interface {
	Verify(ctx context.Context) error
}

type disabledChannel struct{}

// Disabled returns a channel that never contacts a provider
func Disabled() Channel {
	return disabledChannel{}
}

func (disabledChannel) Deliver(context.Context, string, *domain.Reminder) (string, error) {
	return "", ErrDeliveryDisabled
}

// Verify checks ch when it supports verification and reports nil otherwise
func Verify(ctx context.Context, ch Channel) error {
	if v, ok := ch.(Verifier); ok {
		return v.Verify(ctx)
	}
	return nil
}
