package xueqiu

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// BaseURL is the site origin.
	BaseURL = "https://xueqiu.com"

	// ProfileEndpoint resolves a numeric user id to a profile.
	ProfileEndpoint = "/v4/user/profile/%d"

	// SearchUserEndpoint resolves a nickname to candidate users.
	SearchUserEndpoint = "/query/v1/search/user.json"

	// ColumnEndpoint lists a user's original articles, paged by offset.
	ColumnEndpoint = "/statuses/original/timeline.json"

	// TimelineEndpoint lists the full feed, paged by the server's own
	// max_id cursor.
	TimelineEndpoint = "/v4/statuses/user_timeline.json"

	// StatusDetailEndpoint returns one post with its full body.
	StatusDetailEndpoint = "/statuses/show.json"
)

// ProfileURL builds the profile lookup path for a numeric user id.
func ProfileURL(userID int64) string {
	return fmt.Sprintf(ProfileEndpoint, userID)
}

// SearchUserParams builds the nickname search query.
func SearchUserParams(nick string, page, size int) url.Values {
	params := url.Values{}
	params.Set("q", nick)
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	return params
}

// ColumnParams builds the offset-paged column query.
func ColumnParams(userID int64, page, count int) url.Values {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("page", strconv.Itoa(page))
	params.Set("count", strconv.Itoa(count))
	return params
}

// TimelineParams builds the cursor-paged timeline query. maxID 0 requests
// the newest batch.
func TimelineParams(userID int64, maxID int64, count int) url.Values {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("count", strconv.Itoa(count))
	if maxID > 0 {
		params.Set("max_id", strconv.FormatInt(maxID, 10))
	}
	return params
}

// PostURL is the canonical web URL of one post.
func PostURL(userID, postID int64) string {
	return fmt.Sprintf("%s/%d/%d", BaseURL, userID, postID)
}
