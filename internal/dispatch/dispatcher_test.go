package dispatch

import (
	"fmt"
	"testing"
	"time"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

func recv(t *testing.T, sub *Subscription) domain.DomainEvent {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.DomainEvent{}
	}
}

func assertEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event on %s: %+v", sub.Topic, ev)
	default:
	}
}

func TestDispatcher_RevealedRouting(t *testing.T) {
	d := NewDispatcher()
	artworkSub := d.Subscribe(ArtworkTopic("art-1"))
	ownerSub := d.Subscribe(UserTopic("artist-1"))
	otherSub := d.Subscribe(ArtworkTopic("art-2"))

	d.Publish(domain.DomainEvent{
		Type:      domain.EventArtworkRevealed,
		ArtworkID: "art-1",
		ArtistID:  "artist-1",
	})

	if ev := recv(t, artworkSub); ev.Type != domain.EventArtworkRevealed {
		t.Errorf("artwork topic got %q", ev.Type)
	}
	if ev := recv(t, ownerSub); ev.Type != domain.EventArtworkRevealed {
		t.Errorf("owner topic got %q", ev.Type)
	}
	assertEmpty(t, otherSub)
}

func TestDispatcher_MilestoneGoesToOwnerOnly(t *testing.T) {
	d := NewDispatcher()
	artworkSub := d.Subscribe(ArtworkTopic("art-1"))
	ownerSub := d.Subscribe(UserTopic("artist-1"))

	d.Publish(domain.DomainEvent{
		Type:      domain.EventViewMilestone,
		ArtworkID: "art-1",
		ArtistID:  "artist-1",
		ViewCount: 50,
	})

	if ev := recv(t, ownerSub); ev.ViewCount != 50 {
		t.Errorf("ViewCount = %d, want 50", ev.ViewCount)
	}
	assertEmpty(t, artworkSub)
}

func TestDispatcher_CommentRouting(t *testing.T) {
	d := NewDispatcher()
	artworkSub := d.Subscribe(ArtworkTopic("art-1"))
	ownerSub := d.Subscribe(UserTopic("artist-1"))

	d.Publish(domain.DomainEvent{
		Type:      domain.EventCommentAdded,
		ArtworkID: "art-1",
		ArtistID:  "artist-1",
		AuthorID:  "user-2",
		CommentID: "c-1",
	})
	if ev := recv(t, artworkSub); ev.CommentID != "c-1" {
		t.Errorf("artwork topic CommentID = %q", ev.CommentID)
	}
	if ev := recv(t, ownerSub); ev.CommentID != "c-1" {
		t.Errorf("owner topic CommentID = %q", ev.CommentID)
	}

	// The artist commenting on their own artwork is not self-notified.
	d.Publish(domain.DomainEvent{
		Type:      domain.EventCommentAdded,
		ArtworkID: "art-1",
		ArtistID:  "artist-1",
		AuthorID:  "artist-1",
		CommentID: "c-2",
	})
	if ev := recv(t, artworkSub); ev.CommentID != "c-2" {
		t.Errorf("artwork topic CommentID = %q", ev.CommentID)
	}
	assertEmpty(t, ownerSub)
}

func TestDispatcher_FIFOPerTopic(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(ArtworkTopic("art-1"))

	for i := 0; i < 10; i++ {
		d.Publish(domain.DomainEvent{
			Type:      domain.EventCommentAdded,
			ArtworkID: "art-1",
			ArtistID:  "artist-1",
			AuthorID:  "user-2",
			CommentID: fmt.Sprintf("c-%d", i),
		})
	}
	for i := 0; i < 10; i++ {
		if ev := recv(t, sub); ev.CommentID != fmt.Sprintf("c-%d", i) {
			t.Fatalf("event %d = %q, out of order", i, ev.CommentID)
		}
	}
}

func TestDispatcher_SlowSubscriberNeverBlocks(t *testing.T) {
	d := NewDispatcher()
	// Subscribed but never drained.
	d.Subscribe(ArtworkTopic("art-1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			d.Publish(domain.DomainEvent{
				Type:      domain.EventArtworkRevealed,
				ArtworkID: "art-1",
				ArtistID:  "artist-1",
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestDispatcher_PublishWithoutSubscribers(t *testing.T) {
	d := NewDispatcher()
	// Must not panic or block.
	d.Publish(domain.DomainEvent{Type: domain.EventArtworkRevealed, ArtworkID: "a", ArtistID: "b"})
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher()
	sub := d.Subscribe(ArtworkTopic("art-1"))
	d.Unsubscribe(sub)

	// Channel is closed.
	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel after Unsubscribe")
	}

	// Double unsubscribe is safe.
	d.Unsubscribe(sub)

	// Publishing after unsubscribe delivers nowhere.
	d.Publish(domain.DomainEvent{Type: domain.EventArtworkRevealed, ArtworkID: "art-1", ArtistID: "x"})
}

func TestTopicNames(t *testing.T) {
	if got := ArtworkTopic("abc"); got != "artwork:abc" {
		t.Errorf("ArtworkTopic = %q", got)
	}
	if got := UserTopic("u1"); got != "user:u1" {
		t.Errorf("UserTopic = %q", got)
	}
}
