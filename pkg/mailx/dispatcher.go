package mailx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nemunivers/identity/pkg/slogx"
)

// Dispatcher retry schedule. Delays double from RetryBaseDelay up to
// RetryMaxDelay; after MaxAttempts the message is dropped and logged.
const (
	MaxAttempts    = 5
	RetryBaseDelay = time.Second
	RetryMaxDelay  = 12 * time.Second
)

// Dispatcher sends email asynchronously with retries. Dispatch returns
// immediately; delivery failures never propagate to the caller. Callers that
// need delivery to be fatal (tenant registration) use the Sender directly.
type Dispatcher struct {
	sender Sender

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher on top of a provider.
func NewDispatcher(sender Sender) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:      sender,
		maxAttempts: MaxAttempts,
		baseDelay:   RetryBaseDelay,
		maxDelay:    RetryMaxDelay,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Dispatch queues a message for asynchronous delivery and returns its
// message id. The message is validated up front so malformed mail fails
// loudly instead of burning retry attempts.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	log := slogx.FromContext(ctx).With("mail_id", id, "subject", msg.Subject)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(log, msg)
	}()

	return id, nil
}

func (d *Dispatcher) deliver(log *slog.Logger, msg Message) {
	delay := d.baseDelay

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.sender.Send(d.ctx, msg)
		if err == nil {
			log.Debug("mailx: delivered", "attempt", attempt)
			return
		}

		if attempt == d.maxAttempts {
			log.Error("mailx: giving up after max attempts", "attempts", attempt, "err", err)
			return
		}

		log.Warn("mailx: delivery failed, retrying", "attempt", attempt, "retry_in", delay, "err", err)

		select {
		case <-d.ctx.Done():
			log.Warn("mailx: dispatcher shutting down, dropping message")
			return
		case <-time.After(delay):
		}

		delay = min(delay*2, d.maxDelay)
	}
}

// Shutdown stops accepting retries and waits for in-flight deliveries until
// ctx expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
