package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

type fakeChannel struct {
	name  string
	calls atomic.Int32
	send  func(ctx context.Context, call int) error
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, _ Message) error {
	n := int(f.calls.Add(1))
	if f.send == nil {
		return nil
	}
	return f.send(ctx, n)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_FailingChannelIsolated(t *testing.T) {
	bad := &fakeChannel{name: "bad", send: func(context.Context, int) error { return errors.New("boom") }}
	good := &fakeChannel{name: "good"}

	d := NewDispatcher([]Channel{bad, good}, Options{Timeout: time.Second, Logger: quietLogger()})
	results := d.Dispatch(context.Background(), testEvent())

	require.Len(t, results, 2)
	require.Equal(t, "bad", results[0].Channel)
	require.Equal(t, domain.DeliveryFailed, results[0].Status)
	var de *domain.DispatchError
	require.ErrorAs(t, results[0].Err, &de)
	require.Equal(t, "bad", de.Channel)

	require.Equal(t, "good", results[1].Channel)
	require.Equal(t, domain.DeliverySuccess, results[1].Status)
	require.Equal(t, int32(1), good.calls.Load())
}

func TestDispatcher_SlowChannelTimesOut(t *testing.T) {
	slow := &fakeChannel{name: "slow", send: func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	fast := &fakeChannel{name: "fast"}

	d := NewDispatcher([]Channel{slow, fast}, Options{Timeout: 50 * time.Millisecond, Logger: quietLogger()})

	start := time.Now()
	results := d.Send(context.Background(), Message{Title: "t"})
	require.Less(t, time.Since(start), time.Second)

	require.Equal(t, domain.DeliveryFailed, results[0].Status)
	require.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	require.Equal(t, domain.DeliverySuccess, results[1].Status)
}

func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	flaky := &fakeChannel{name: "flaky", send: func(_ context.Context, call int) error {
		if call < 3 {
			return &StatusError{StatusCode: 502}
		}
		return nil
	}}

	d := NewDispatcher([]Channel{flaky}, Options{
		Timeout:      time.Second,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Logger:       quietLogger(),
	})
	results := d.Send(context.Background(), Message{Title: "t"})

	require.Equal(t, domain.DeliverySuccess, results[0].Status)
	require.Equal(t, 3, results[0].Attempts)
}

func TestDispatcher_PermanentFailureNotRetried(t *testing.T) {
	rejected := &fakeChannel{name: "rejected", send: func(context.Context, int) error {
		return &StatusError{StatusCode: 401}
	}}

	d := NewDispatcher([]Channel{rejected}, Options{
		Timeout:      time.Second,
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Logger:       quietLogger(),
	})
	results := d.Send(context.Background(), Message{Title: "t"})

	require.Equal(t, domain.DeliveryFailed, results[0].Status)
	require.Equal(t, 1, results[0].Attempts)
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	bad := &fakeChannel{name: "panics", send: func(context.Context, int) error { panic("nil map") }}
	good := &fakeChannel{name: "good"}

	d := NewDispatcher([]Channel{bad, good}, Options{Logger: quietLogger()})
	results := d.Send(context.Background(), Message{Title: "t"})

	require.Equal(t, domain.DeliveryFailed, results[0].Status)
	require.Equal(t, domain.DeliverySuccess, results[1].Status)
}

func TestDispatcher_NoChannels(t *testing.T) {
	d := NewDispatcher(nil, Options{Logger: quietLogger()})
	require.Empty(t, d.Dispatch(context.Background(), testEvent()))
	require.Empty(t, d.Channels())
}
