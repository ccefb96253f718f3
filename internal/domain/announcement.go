package domain

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is a broadcast written by a game master.
type Announcement struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"authorId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	MediaURL  *string   `json:"mediaUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnnouncementView adds the author's display name.
type AnnouncementView struct {
	Announcement
	AuthorUsername string `json:"authorUsername"`
}
