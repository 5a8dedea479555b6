package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/observability"
)

func receiveEvent(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return ChangeEvent{}
}

func requireNoEvent(t *testing.T, ch <-chan ChangeEvent) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventFilterMatchesArrivalsAndDepartures(t *testing.T) {
	filter := EventFilter{Entity: EntitySubmission, Status: "Pending"}

	require.True(t, filter.Matches(ChangeEvent{Entity: EntitySubmission, Type: EventCreated, ToStatus: "Pending"}))
	require.True(t, filter.Matches(ChangeEvent{Entity: EntitySubmission, FromStatus: "Pending", ToStatus: "Review"}))
	require.False(t, filter.Matches(ChangeEvent{Entity: EntitySubmission, FromStatus: "Review", ToStatus: "Evaluated"}))
	require.False(t, filter.Matches(ChangeEvent{Entity: EntityBooking, ToStatus: "Pending"}))

	mentor := EventFilter{MentorID: "m1"}
	require.True(t, mentor.Matches(ChangeEvent{Entity: EntitySubmission}))
	require.False(t, mentor.Matches(ChangeEvent{Entity: EntityBooking, MentorID: "m2"}))
}

func TestEventHubDeliversToMatchingSubscribers(t *testing.T) {
	hub := NewEventHub(nil, "", nil, testLogger())

	student, stopStudent := hub.Subscribe(EventFilter{StudentID: "s1"})
	defer stopStudent()
	other, stopOther := hub.Subscribe(EventFilter{StudentID: "s2"})
	defer stopOther()

	hub.Publish(context.Background(), ChangeEvent{Entity: EntitySubmission, Type: EventCreated, RecordID: "sub-1", StudentID: "s1", ToStatus: "Pending"})

	event := receiveEvent(t, student)
	require.Equal(t, "sub-1", event.RecordID)
	require.NotEmpty(t, event.ID)
	require.False(t, event.OccurredAt.IsZero())
	requireNoEvent(t, other)
}

func TestEventHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewEventHub(nil, "", nil, testLogger())
	ch, cleanup := hub.Subscribe(EventFilter{})
	cleanup()
	cleanup()

	_, ok := <-ch
	require.False(t, ok)

	require.NotPanics(t, func() {
		hub.Publish(context.Background(), ChangeEvent{Entity: EntitySubmission})
	})
}

func TestEventHubRelaysRemoteEventsOnce(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	local := NewEventHub(client, "testseries", nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	local.Start(ctx)

	ch, cleanup := local.Subscribe(EventFilter{Entity: EntitySubmission})
	defer cleanup()

	require.Eventually(t, func() bool {
		return len(mini.PubSubChannels("")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	remote := eventEnvelope{Source: "other-node", Event: ChangeEvent{ID: "evt-1", Entity: EntitySubmission, RecordID: "sub-9", ToStatus: "Review"}}
	payload, err := json.Marshal(remote)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "testseries:changes", payload).Err())
	require.NoError(t, client.Publish(ctx, "testseries:changes", payload).Err())

	event := receiveEvent(t, ch)
	require.Equal(t, "sub-9", event.RecordID)
	requireNoEvent(t, ch)
}

func TestEventHubCountsEventsDroppedForSlowSubscribers(t *testing.T) {
	hub := NewEventHub(nil, "", nil, testLogger())
	slow, stop := hub.Subscribe(EventFilter{Entity: EntityBooking})
	defer stop()

	dropped := observability.ChangeEventsDropped().WithLabelValues(EntityBooking)
	before := promtestutil.ToFloat64(dropped)

	for i := 0; i < eventBufferSize+3; i++ {
		hub.Publish(context.Background(), ChangeEvent{Entity: EntityBooking, Type: EventCreated, StudentID: "s1"})
	}

	require.Equal(t, float64(3), promtestutil.ToFloat64(dropped)-before)
	require.Len(t, slow, eventBufferSize)
}
