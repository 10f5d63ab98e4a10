package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

// Options configures delivery.
type Options struct {
	// Timeout bounds one channel delivery including retries.
	Timeout time.Duration
	// MaxAttempts per channel; values below 1 mean a single attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	Logger       *slog.Logger
}

// Dispatcher fans a message out to every channel independently.
type Dispatcher struct {
	channels []Channel
	opts     Options
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(channels []Channel, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{channels: channels, opts: opts, log: log}
}

// Channels returns the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// Dispatch delivers an alert and returns one result per channel, in channel
// order. A failing channel never affects the others.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.AlertEvent) []domain.DeliveryResult {
	return d.Send(ctx, FormatAlert(ev))
}

// Send delivers a rendered message to every channel concurrently.
func (d *Dispatcher) Send(ctx context.Context, msg Message) []domain.DeliveryResult {
	results := make([]domain.DeliveryResult, len(d.channels))

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			results[i] = d.deliver(ctx, ch, msg)
		}(i, ch)
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, msg Message) (res domain.DeliveryResult) {
	res.Channel = ch.Name()
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Status = domain.DeliveryFailed
			res.Err = &domain.DispatchError{Channel: res.Channel, Err: errors.New("channel panicked")}
			d.log.Error("Notification channel panicked", "channel", res.Channel, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	backoff := retry.NewExponential(d.opts.InitialDelay)
	backoff = retry.WithMaxRetries(uint64(d.opts.MaxAttempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res.Attempts++
		if err := ch.Send(ctx, msg); err != nil {
			if isPermanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		res.Status = domain.DeliveryFailed
		res.Err = &domain.DispatchError{Channel: res.Channel, Err: err}
		d.log.Warn("Notification delivery failed",
			"channel", res.Channel,
			"attempts", res.Attempts,
			"error", err,
		)
		return res
	}

	res.Status = domain.DeliverySuccess
	d.log.Debug("Notification delivered", "channel", res.Channel, "attempts", res.Attempts)
	return res
}

// isPermanent reports client errors that a retry cannot fix. 408 and 429 are
// worth another attempt.
func isPermanent(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.StatusCode {
	case 408, 429:
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}
