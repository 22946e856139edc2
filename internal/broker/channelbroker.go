// Package broker fans live events out to consumers, used to push story
// progress updates to every browser holding an open SSE stream.
package broker

type publishContent[TID comparable, TPayload any] struct {
	ID      TID
	Payload TPayload
}

type subscriptionContent[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

// ChannelBroker delivers every published payload to every subscriber of the
// payload's ID. Publishing never blocks on a consumer: a subscriber that
// falls a full buffer behind misses events instead of stalling the producer,
// and the browser re-reads the persisted state on the next page load anyway.
//
// The producer here is the request that persists an answer and emits
// progress, milestone, and completion events. The subscribers are the HTTP
// handlers holding the storyteller's SSE streams, one per open tab.
type ChannelBroker[TID comparable, TPayload any] struct {
	stopChannel        chan struct{}
	publishChannel     chan publishContent[TID, TPayload]
	subscribeChannel   chan subscriptionContent[TID, TPayload]
	unsubscribeChannel chan subscriptionContent[TID, TPayload]
}

// NewChannelBroker creates a new ChannelBroker. Call Start() in a goroutine
// to serve it and Stop() to stop it.
func NewChannelBroker[TID comparable, TPayload any]() *ChannelBroker[TID, TPayload] {
	broker := ChannelBroker[TID, TPayload]{
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan publishContent[TID, TPayload]),
		subscribeChannel:   make(chan subscriptionContent[TID, TPayload]),
		unsubscribeChannel: make(chan subscriptionContent[TID, TPayload]),
	}
	return &broker
}

// Start listening for publish, subscribe, and unsubscribe events. This function blocks until Stop() is called,
// so it should be called in a goroutine. It does not handle panics, so it should be wrapped in a recover.
func (b *ChannelBroker[TID, TPayload]) Start() {
	subscribers := map[TID][]chan TPayload{}
	for {
		select {
		case <-b.stopChannel:
			return

		case subscription := <-b.subscribeChannel:
			subscribers[subscription.ID] = append(subscribers[subscription.ID], subscription.Channel)

		case subscription := <-b.unsubscribeChannel:
			remaining := subscribers[subscription.ID][:0]
			for _, channel := range subscribers[subscription.ID] {
				if channel == subscription.Channel {
					close(channel)
					continue
				}
				remaining = append(remaining, channel)
			}
			if len(remaining) == 0 {
				delete(subscribers, subscription.ID)
			} else {
				subscribers[subscription.ID] = remaining
			}

		case publication := <-b.publishChannel:
			for _, channel := range subscribers[publication.ID] {
				select {
				case channel <- publication.Payload:
				default:
					// Subscriber buffer is full, drop the event for it.
				}
			}
		}
	}
}

// Stop the goroutine that handles the broker.
func (b *ChannelBroker[TID, TPayload]) Stop() {
	close(b.stopChannel)
}

// Subscribe to the payloads published under ID. The returned channel stays
// open, receiving every subsequent publication, until Unsubscribe closes it.
func (b *ChannelBroker[TID, TPayload]) Subscribe(id TID) chan TPayload {
	channel := make(chan TPayload, 8)
	b.subscribeChannel <- subscriptionContent[TID, TPayload]{
		ID:      id,
		Channel: channel,
	}
	return channel
}

// Unsubscribe removes the channel from the subscribers of ID and closes it.
func (b *ChannelBroker[TID, TPayload]) Unsubscribe(id TID, channel chan TPayload) {
	b.unsubscribeChannel <- subscriptionContent[TID, TPayload]{
		ID:      id,
		Channel: channel,
	}
}

// Publish the payload under ID to every current subscriber. Payloads
// published while nobody subscribes to the ID are dropped.
func (b *ChannelBroker[TID, TPayload]) Publish(id TID, payload TPayload) {
	b.publishChannel <- publishContent[TID, TPayload]{
		ID:      id,
		Payload: payload,
	}
}
