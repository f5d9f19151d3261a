// Package domain defines the core types for the Invisible Gallery engine.
package domain

import "fmt"

// ConditionKind identifies the rule family of a reveal condition.
type ConditionKind string

const (
	KindTime        ConditionKind = "time"
	KindViewCount   ConditionKind = "view_count"
	KindLocation    ConditionKind = "location"
	KindInteractive ConditionKind = "interactive"
)

// ParseConditionKind validates a condition kind string. Unknown kinds are
// rejected here, at construction time, so the evaluators never see one.
func ParseConditionKind(s string) (ConditionKind, error) {
	switch ConditionKind(s) {
	case KindTime, KindViewCount, KindLocation, KindInteractive:
		return ConditionKind(s), nil
	}
	return "", NewEngineError(
		ErrUnknownConditionKind.Code,
		fmt.Sprintf("unknown condition kind: %q", s),
	)
}

// Artwork is an encrypted piece of content with its reveal state.
// EncryptedContent is written once at creation and never mutated; IsRevealed
// transitions false->true at most once.
type Artwork struct {
	ArtworkID        string
	Title            string
	Description      string
	ArtistID         string
	MediaType        string
	EncryptedContent []byte
	IsRevealed       bool
	ViewCount        int64
	CreatedAtUnix    int64
	UpdatedAtUnix    int64
}

// RevealCondition is a rule attached to one artwork. ParamsJSON holds the
// kind-specific parameters; IsMet transitions false->true exactly once.
type RevealCondition struct {
	ConditionID   string
	ArtworkID     string
	Kind          ConditionKind
	ParamsJSON    string
	IsMet         bool
	CreatedAtUnix int64
	UpdatedAtUnix int64
}

// InteractionKind distinguishes views from comments.
type InteractionKind string

const (
	InteractionView    InteractionKind = "view"
	InteractionComment InteractionKind = "comment"
)

// Interaction is an append-only record of a view or comment on an artwork.
// ViewerID is empty for anonymous views. Content is set only for comments.
type Interaction struct {
	InteractionID string
	ArtworkID     string
	ViewerID      string
	Kind          InteractionKind
	IPAddress     string
	DeviceJSON    string
	Content       string
	CreatedAtUnix int64
}

// ViewMetadata carries the request-level details recorded with a view.
type ViewMetadata struct {
	IPAddress string
	UserAgent string
	// WithinRegion is the pre-computed geolocation signal for location
	// conditions; region resolution happens outside the engine.
	WithinRegion bool
}

// ArtworkSnapshot is the read-only state the orchestrator evaluates
// conditions against, taken after an interaction has been recorded.
type ArtworkSnapshot struct {
	ArtworkID    string
	Title        string
	ArtistID     string
	IsRevealed   bool
	ViewCount    int64
	CommentCount int64
	WithinRegion bool

	// Interaction that produced this snapshot; empty for sweeper-driven
	// evaluation passes.
	Interaction InteractionKind
	CommentID   string
	AuthorID    string
}

// EventType enumerates the domain events the engine emits.
type EventType string

const (
	EventArtworkRevealed EventType = "artwork_revealed"
	EventViewMilestone   EventType = "view_milestone"
	EventCommentAdded    EventType = "comment_added"
)

// DomainEvent is a transient value produced by the orchestrator and handed
// to the dispatcher. ArtistID is carried for owner-topic routing.
type DomainEvent struct {
	Type          EventType `json:"type"`
	ArtworkID     string    `json:"artwork_id"`
	Title         string    `json:"title,omitempty"`
	ArtistID      string    `json:"artist_id,omitempty"`
	ViewCount     int64     `json:"view_count,omitempty"`
	CommentID     string    `json:"comment_id,omitempty"`
	AuthorID      string    `json:"author_id,omitempty"`
	CreatedAtUnix int64     `json:"created_at"`
}

// RevealOutcome is the result of running one interaction through the
// disclosure orchestrator.
type RevealOutcome struct {
	ArtworkID       string        `json:"artwork_id"`
	AlreadyRevealed bool          `json:"already_revealed"`
	Revealed        bool          `json:"revealed"`
	MetConditionIDs []string      `json:"met_condition_ids,omitempty"`
	ViewCount       int64         `json:"view_count"`
	Events          []DomainEvent `json:"events,omitempty"`
}
