package notification

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admbtski/miglee-sub001/internal/domain"
	"github.com/admbtski/miglee-sub001/internal/testutil"
)

func TestRelay_RunOnceRedeliversOldEvents(t *testing.T) {
	old := event(domain.TransitionApproved, "alice")
	old.ID = "ev-old"
	old.OccurredAt = t0.Add(-time.Minute)

	older := event(domain.TransitionKicked, "bob")
	older.ID = "ev-older"
	older.OccurredAt = t0.Add(-time.Hour)

	fresh := event(domain.TransitionBanned, "carol")
	fresh.ID = "ev-fresh"
	fresh.OccurredAt = t0.Add(-time.Second)

	var gotMax, gotLimit int
	outbox := &testutil.MockEventOutbox{
		ListUndeliveredFn: func(_ context.Context, maxAttempts, limit int) ([]domain.TransitionCommitted, error) {
			gotMax, gotLimit = maxAttempts, limit
			return []domain.TransitionCommitted{older, old, fresh}, nil
		},
	}
	pub := &testutil.RecordingPublisher{}
	emitter := newTestEmitter(pub, outbox)
	relay := NewRelay(outbox, emitter, RelayConfig{BatchSize: 20, MaxAttempts: 3}, testutil.FixedClock(t0), slog.New(slog.DiscardHandler))

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, gotMax)
	assert.Equal(t, 20, gotLimit)

	delivered := outbox.DeliveredIDs()
	sort.Strings(delivered)
	assert.Equal(t, []string{"ev-old", "ev-older"}, delivered)
}

func TestRelay_RunOnceCountsOnlySuccesses(t *testing.T) {
	good := event(domain.TransitionApproved, "alice")
	good.ID = "ev-good"
	good.OccurredAt = t0.Add(-time.Hour)
	bad := event(domain.TransitionApproved, "bob")
	bad.ID = "ev-bad"
	bad.OccurredAt = t0.Add(-time.Hour)

	outbox := &testutil.MockEventOutbox{
		ListUndeliveredFn: func(context.Context, int, int) ([]domain.TransitionCommitted, error) {
			return []domain.TransitionCommitted{good, bad}, nil
		},
	}
	pub := &testutil.RecordingPublisher{
		PublishFn: func(_ context.Context, n domain.Notification) error {
			if n.RecipientID == "bob" {
				return errors.New("mailbox full")
			}
			return nil
		},
	}
	relay := NewRelay(outbox, newTestEmitter(pub, outbox), RelayConfig{}, testutil.FixedClock(t0), slog.New(slog.DiscardHandler))

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, failed := outbox.FailedReason("ev-bad")
	assert.True(t, failed)
}

func TestRelay_RunOnceListError(t *testing.T) {
	outbox := &testutil.MockEventOutbox{
		ListUndeliveredFn: func(context.Context, int, int) ([]domain.TransitionCommitted, error) {
			return nil, errors.New("db closed")
		},
	}
	relay := NewRelay(outbox, newTestEmitter(&testutil.RecordingPublisher{}, outbox), RelayConfig{}, nil, slog.New(slog.DiscardHandler))

	_, err := relay.RunOnce(context.Background())
	require.Error(t, err)
}

func TestRelay_StartRejectsBadSchedule(t *testing.T) {
	outbox := &testutil.MockEventOutbox{}
	relay := NewRelay(outbox, newTestEmitter(&testutil.RecordingPublisher{}, outbox), RelayConfig{Schedule: "not a schedule"}, nil, slog.New(slog.DiscardHandler))
	require.Error(t, relay.Start(context.Background()))
}

func TestRelay_StartStop(t *testing.T) {
	outbox := &testutil.MockEventOutbox{
		ListUndeliveredFn: func(context.Context, int, int) ([]domain.TransitionCommitted, error) {
			return nil, nil
		},
	}
	relay := NewRelay(outbox, newTestEmitter(&testutil.RecordingPublisher{}, outbox), RelayConfig{Schedule: "@every 1h"}, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, relay.Start(context.Background()))
	relay.Stop()
}
