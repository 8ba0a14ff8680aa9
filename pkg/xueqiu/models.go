package xueqiu

// Status is one raw post as the platform returns it, before
// normalization.
type Status struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Text         string     `json:"text"`
	Description  string     `json:"description"`
	Mark         int        `json:"mark"`
	CreatedAt    int64      `json:"created_at"` // millisecond epoch
	LikeCount    int        `json:"like_count"`
	ReplyCount   int        `json:"reply_count"`
	RetweetCount int        `json:"retweet_count"`
	User         StatusUser `json:"user"`
}

// StatusUser is the author stub embedded in a status.
type StatusUser struct {
	ID         int64  `json:"id"`
	ScreenName string `json:"screen_name"`
}

// TimelineResponse is the cursor-paged feed listing.
type TimelineResponse struct {
	Statuses  []Status `json:"statuses"`
	NextMaxID int64    `json:"next_max_id"`
	Total     int      `json:"total"`
}

// ColumnResponse is the offset-paged column listing.
type ColumnResponse struct {
	List    []Status `json:"list"`
	Total   int      `json:"total"`
	MaxPage int      `json:"maxPage"`
}

// StatusDetailResponse is one post with its full body.
type StatusDetailResponse struct {
	Status
}

// ProfileUser is a full user record from profile or search responses.
type ProfileUser struct {
	ID             int64  `json:"id"`
	ScreenName     string `json:"screen_name"`
	Description    string `json:"description"`
	FollowersCount int    `json:"followers_count"`
	StatusCount    int    `json:"status_count"`
}

// ProfileResponse wraps a profile lookup. The platform reports unknown
// users with an error_description field rather than a 404.
type ProfileResponse struct {
	User             *ProfileUser `json:"user"`
	ErrorDescription string       `json:"error_description"`
}

// SearchUserResponse wraps a nickname search.
type SearchUserResponse struct {
	List []ProfileUser `json:"list"`
}
