package gallery

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/invisible-gallery/internal/dispatch"
	"github.com/anthropics/invisible-gallery/internal/domain"
	"github.com/anthropics/invisible-gallery/internal/store"
)

var testSecret = []byte("test-gallery-secret")

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db, testSecret, dispatch.NewDispatcher())
}

func TestService_CreateArtwork(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	plaintext := []byte("the secret painting")

	artwork, err := svc.CreateArtwork(ctx, NewArtwork{
		Title:     "Veiled",
		ArtistID:  "artist-1",
		MediaType: "image/png",
		Content:   plaintext,
		Conditions: []NewCondition{
			{Kind: "view_count", ParamsJSON: `{"count":3}`},
			{Kind: "time", ParamsJSON: `{"reveal_at":"2030-01-01T00:00:00Z"}`},
		},
	})
	if err != nil {
		t.Fatalf("CreateArtwork: %v", err)
	}

	stored, err := svc.GetArtwork(ctx, artwork.ArtworkID)
	if err != nil {
		t.Fatalf("GetArtwork: %v", err)
	}
	if stored.IsRevealed {
		t.Error("new artwork must start hidden")
	}
	if bytes.Contains(stored.EncryptedContent, plaintext) {
		t.Error("stored blob contains the plaintext")
	}

	conds, err := svc.ListConditions(ctx, artwork.ArtworkID)
	if err != nil {
		t.Fatalf("ListConditions: %v", err)
	}
	if len(conds) != 2 {
		t.Errorf("len(conds) = %d, want 2", len(conds))
	}
}

func TestService_CreateArtwork_UnknownConditionKind(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateArtwork(context.Background(), NewArtwork{
		Title:    "Bad",
		ArtistID: "artist-1",
		Content:  []byte("x"),
		Conditions: []NewCondition{
			{Kind: "weather", ParamsJSON: `{"forecast":"rain"}`},
		},
	})
	engErr, ok := err.(*domain.EngineError)
	if !ok || engErr.Code != domain.ErrUnknownConditionKind.Code {
		t.Errorf("expected unknown-condition-kind error, got %v", err)
	}
}

func TestService_CreateArtwork_EmptyContent(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateArtwork(context.Background(), NewArtwork{
		Title:    "Empty",
		ArtistID: "artist-1",
	})
	if err != domain.ErrEmptyContent {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
}

func TestService_GetContent_NotRevealed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	artwork, err := svc.CreateArtwork(ctx, NewArtwork{
		Title:    "Veiled",
		ArtistID: "artist-1",
		Content:  []byte("hidden"),
		Conditions: []NewCondition{
			{Kind: "view_count", ParamsJSON: `{"count":100}`},
		},
	})
	if err != nil {
		t.Fatalf("CreateArtwork: %v", err)
	}

	_, _, err = svc.GetContent(ctx, artwork.ArtworkID)
	if err != domain.ErrNotRevealed {
		t.Errorf("expected ErrNotRevealed, got %v", err)
	}
}

func TestService_ViewFlow_RevealsAndServesContent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	plaintext := []byte("now you see me")

	artwork, err := svc.CreateArtwork(ctx, NewArtwork{
		Title:     "Threshold",
		ArtistID:  "artist-1",
		MediaType: "image/jpeg",
		Content:   plaintext,
		Conditions: []NewCondition{
			{Kind: "view_count", ParamsJSON: `{"count":2}`},
		},
	})
	if err != nil {
		t.Fatalf("CreateArtwork: %v", err)
	}

	outcome, err := svc.RecordView(ctx, artwork.ArtworkID, "viewer-1", domain.ViewMetadata{})
	if err != nil {
		t.Fatalf("first RecordView: %v", err)
	}
	if outcome.Revealed {
		t.Fatal("first view must not reveal")
	}

	outcome, err = svc.RecordView(ctx, artwork.ArtworkID, "viewer-2", domain.ViewMetadata{})
	if err != nil {
		t.Fatalf("second RecordView: %v", err)
	}
	if !outcome.Revealed {
		t.Fatal("second view should reveal")
	}

	got, mediaType, err := svc.GetContent(ctx, artwork.ArtworkID)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("decrypted content does not match the original")
	}
	if mediaType != "image/jpeg" {
		t.Errorf("mediaType = %q", mediaType)
	}
}

func TestService_GetContent_WrongSecretUnavailable(t *testing.T) {
	db, err := store.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	writer := NewService(db, []byte("secret-a"), dispatch.NewDispatcher())
	ctx := context.Background()

	artwork, err := writer.CreateArtwork(ctx, NewArtwork{
		Title:    "Mismatch",
		ArtistID: "artist-1",
		Content:  []byte("payload"),
		Conditions: []NewCondition{
			{Kind: "view_count", ParamsJSON: `{"count":1}`},
		},
	})
	if err != nil {
		t.Fatalf("CreateArtwork: %v", err)
	}
	if _, err := writer.RecordView(ctx, artwork.ArtworkID, "v", domain.ViewMetadata{}); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	// A service holding a different secret cannot serve the content, and
	// the failure surfaces as the generic unavailable error.
	reader := NewService(db, []byte("secret-b"), dispatch.NewDispatcher())
	got, _, err := reader.GetContent(ctx, artwork.ArtworkID)
	if err == nil {
		if bytes.Equal(got, []byte("payload")) {
			t.Error("wrong secret served the original plaintext")
		}
	} else if err != domain.ErrContentUnavailable {
		t.Errorf("expected ErrContentUnavailable, got %v", err)
	}
}

func TestService_RecordComment_PublishesEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	artwork, err := svc.CreateArtwork(ctx, NewArtwork{
		Title:    "Chatty",
		ArtistID: "artist-1",
		Content:  []byte("x"),
		Conditions: []NewCondition{
			{Kind: "interactive", ParamsJSON: `{"comment_count":1}`},
		},
	})
	if err != nil {
		t.Fatalf("CreateArtwork: %v", err)
	}

	ownerSub := svc.Dispatcher.Subscribe(dispatch.UserTopic("artist-1"))
	artworkSub := svc.Dispatcher.Subscribe(dispatch.ArtworkTopic(artwork.ArtworkID))

	commentID, outcome, err := svc.RecordComment(ctx, artwork.ArtworkID, "user-2", "wow")
	if err != nil {
		t.Fatalf("RecordComment: %v", err)
	}
	if commentID == "" {
		t.Error("empty comment id")
	}
	if !outcome.Revealed {
		t.Error("single comment should satisfy the interactive condition")
	}

	// Artwork topic sees the comment then the reveal, in publish order.
	types := []domain.EventType{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-artworkSub.C:
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for artwork events")
		}
	}
	if types[0] != domain.EventCommentAdded || types[1] != domain.EventArtworkRevealed {
		t.Errorf("artwork topic order = %v", types)
	}

	// Owner sees both as well (commenter is not the artist).
	for i := 0; i < 2; i++ {
		select {
		case <-ownerSub.C:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for owner events")
		}
	}

	comments, err := svc.ListComments(ctx, artwork.ArtworkID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 || comments[0].Content != "wow" {
		t.Errorf("comments = %v", comments)
	}
}
