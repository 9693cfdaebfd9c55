package notifications

import (
	"encoding/json"
	"time"

	"verses/internal/models"
)

// Feed event types.
const (
	EventPoemCreated     = "poem_created"
	EventPoemUpdated     = "poem_updated"
	EventPoemDeleted     = "poem_deleted"
	EventPoemLikeUpdated = "poem_like_updated"
)

// FeedEvent is the payload sent to feed subscribers. Poem is the anonymous
// view and is only set for published poems.
type FeedEvent struct {
	Type        string               `json:"type"`
	PoemID      uint                 `json:"poemId"`
	AuthorID    string               `json:"authorId"`
	IsPublished bool                 `json:"isPublished"`
	LikeCount   int64                `json:"likeCount"`
	Poem        *models.PoemResponse `json:"poem,omitempty"`
	At          time.Time            `json:"at"`
}

// NewFeedEvent builds an event of type kind from a poem as returned to its
// caller. The viewer-specific liked flag is cleared and drafts carry no body.
func NewFeedEvent(kind string, poem *models.PoemResponse) FeedEvent {
	ev := FeedEvent{
		Type:        kind,
		PoemID:      poem.ID,
		AuthorID:    poem.Author.ID,
		IsPublished: poem.IsPublished,
		LikeCount:   poem.LikeCount,
		At:          time.Now().UTC(),
	}
	if poem.IsPublished && kind != EventPoemDeleted {
		public := *poem
		public.IsLikedByCurrentUser = false
		ev.Poem = &public
	}
	return ev
}

// Encode returns the JSON form of ev.
func (ev FeedEvent) Encode() (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
