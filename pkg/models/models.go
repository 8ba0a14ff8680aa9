package models

import "time"

// Post kinds. Long posts carry a title and a full article body; short
// statuses are timeline snippets.
const (
	KindShort = "short_status"
	KindLong  = "long_post"
)

// Post is one normalized post record. Immutable once produced; the field
// order here is the serialization order, so output files diff cleanly.
type Post struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Nickname     string    `json:"nickname"`
	Title        string    `json:"title,omitempty"`
	BodyText     string    `json:"body_text"`
	CreatedAt    time.Time `json:"created_at"`
	URL          string    `json:"url"`
	Kind         string    `json:"kind"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	RepostCount  int       `json:"repost_count"`
	Symbols      []string  `json:"symbols"`
}

// IsLong reports whether the post is a full article.
func (p *Post) IsLong() bool {
	return p.Kind == KindLong
}

// Profile is a resolved user profile.
type Profile struct {
	ID             int64  `json:"id"`
	Nickname       string `json:"nickname"`
	Description    string `json:"description"`
	FollowersCount int    `json:"followers_count"`
	StatusCount    int    `json:"status_count"`
}

// Stats accumulates per-run counters. Not persisted; returned to the caller.
type Stats struct {
	NewCount   int `json:"new_count"`
	SkipCount  int `json:"skip_count"`
	ErrorCount int `json:"error_count"`
}
