package broker_test

import (
	"testing"

	"github.com/beforeigo/beforeigo/internal/broker"
	"github.com/stretchr/testify/require"
)

type progressEvent struct {
	Progress  int
	Milestone string
}

func TestChannelBroker(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(t *testing.T, b *broker.ChannelBroker[string, progressEvent])
	}
	tests := []testCase{
		{
			name: "a subscriber receives consecutive events",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[string, progressEvent]) {
				storyID := "momstory"
				events := b.Subscribe(storyID)

				// Two saves in a row must both reach the open stream.
				b.Publish(storyID, progressEvent{Progress: 25, Milestone: "You're doing great!"})
				b.Publish(storyID, progressEvent{Progress: 50, Milestone: "Halfway there!"})

				event := <-events
				require.Equal(t, 25, event.Progress)
				event = <-events
				require.Equal(t, 50, event.Progress, "second event did not reach the subscriber")
			},
		},
		{
			name: "every open subscriber receives each event",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[string, progressEvent]) {
				storyID := "momstory"
				firstTab := b.Subscribe(storyID)
				secondTab := b.Subscribe(storyID)

				b.Publish(storyID, progressEvent{Progress: 75})

				require.Equal(t, 75, (<-firstTab).Progress)
				require.Equal(t, 75, (<-secondTab).Progress)
			},
		},
		{
			name: "publishing without subscribers drops the event",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[string, progressEvent]) {
				b.Publish("no-such-story", progressEvent{Progress: 25})

				// A later subscriber starts from a clean slate.
				events := b.Subscribe("no-such-story")
				require.Empty(t, events)
			},
		},
		{
			name: "unsubscribing closes the channel and stops delivery",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[string, progressEvent]) {
				storyID := "momstory"
				events := b.Subscribe(storyID)
				b.Unsubscribe(storyID, events)

				_, ok := <-events
				require.False(t, ok, "channel not closed on unsubscribe")

				b.Publish(storyID, progressEvent{Progress: 25})
			},
		},
		{
			name: "a stalled subscriber misses events instead of blocking the producer",
			testFunc: func(t *testing.T, b *broker.ChannelBroker[string, progressEvent]) {
				storyID := "momstory"
				events := b.Subscribe(storyID)

				// Nobody reads from the stream while the producer keeps going.
				for i := range cap(events) + 4 {
					b.Publish(storyID, progressEvent{Progress: i})
				}
				// Subscribing elsewhere waits out the in-flight delivery.
				b.Subscribe("other")

				require.Len(t, events, cap(events))
				require.Equal(t, 0, (<-events).Progress, "oldest buffered event lost")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := broker.NewChannelBroker[string, progressEvent]()
			go br.Start()
			t.Cleanup(func() {
				br.Stop()
			})
			tt.testFunc(t, br)
		})
	}
}
