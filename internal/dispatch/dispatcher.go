// Package dispatch fans domain events out to topic subscribers. Delivery is
// best-effort: a slow or absent subscriber never blocks or fails the
// interaction that produced the event.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

// subscriberBuffer is the per-subscription channel capacity. When a
// subscriber falls this far behind, further events to it are dropped.
const subscriberBuffer = 64

// ArtworkTopic returns the topic live viewers of an artwork subscribe to.
func ArtworkTopic(artworkID string) string {
	return fmt.Sprintf("artwork:%s", artworkID)
}

// UserTopic returns the topic a user's owner notifications go to.
func UserTopic(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// Subscription is one subscriber's handle on a topic. Events arrive on C in
// publish order for that topic.
type Subscription struct {
	Topic string
	C     <-chan domain.DomainEvent

	ch chan domain.DomainEvent
}

// Dispatcher routes domain events to per-topic subscriber channels.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber on a topic.
func (d *Dispatcher) Subscribe(topic string) *Subscription {
	ch := make(chan domain.DomainEvent, subscriberBuffer)
	sub := &Subscription{Topic: topic, C: ch, ch: ch}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs[topic] == nil {
		d.subs[topic] = make(map[*Subscription]struct{})
	}
	d.subs[topic][sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call for
// a subscription that was already removed.
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.subs[sub.Topic]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(d.subs, sub.Topic)
	}
	close(sub.ch)
}

// Publish routes an event to its audiences. Revealed events go to the
// artwork topic and the owner; milestones go to the owner; comments go to
// the artwork topic and to the owner unless the author is the owner
// commenting on their own work.
func (d *Dispatcher) Publish(ev domain.DomainEvent) {
	switch ev.Type {
	case domain.EventArtworkRevealed:
		d.publishTopic(ArtworkTopic(ev.ArtworkID), ev)
		d.publishTopic(UserTopic(ev.ArtistID), ev)
	case domain.EventViewMilestone:
		d.publishTopic(UserTopic(ev.ArtistID), ev)
	case domain.EventCommentAdded:
		d.publishTopic(ArtworkTopic(ev.ArtworkID), ev)
		if ev.AuthorID != ev.ArtistID {
			d.publishTopic(UserTopic(ev.ArtistID), ev)
		}
	}
}

// PublishAll publishes a batch of events in order.
func (d *Dispatcher) PublishAll(events []domain.DomainEvent) {
	for _, ev := range events {
		d.Publish(ev)
	}
}

func (d *Dispatcher) publishTopic(topic string, ev domain.DomainEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for sub := range d.subs[topic] {
		select {
		case sub.ch <- ev:
		default:
			// Subscriber buffer full; drop rather than block the
			// publishing interaction.
		}
	}
}
