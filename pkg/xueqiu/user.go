package xueqiu

import (
	"context"
	"strconv"

	"xqcrawl/pkg/errors"
	"xqcrawl/pkg/models"
)

// UserAPI resolves logical user references to canonical profiles.
type UserAPI struct {
	client *Client
}

// NewUserAPI wraps a client.
func NewUserAPI(client *Client) *UserAPI {
	return &UserAPI{client: client}
}

// ResolveProfile resolves a numeric id or a nickname to a profile.
// Unknown users are a fatal UserNotFound, never retried.
func (a *UserAPI) ResolveProfile(ctx context.Context, ref string) (*models.Profile, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return a.profileByID(ctx, id)
	}
	return a.profileByNickname(ctx, ref)
}

func (a *UserAPI) profileByID(ctx context.Context, id int64) (*models.Profile, error) {
	var resp ProfileResponse
	if err := a.client.GetJSON(ctx, ProfileURL(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.ErrorDescription != "" {
		return nil, errors.Newf(errors.ErrorTypeUserNotFound, "no user with id %d", id)
	}
	return profileFromUser(resp.User), nil
}

// profileByNickname searches for an exact screen-name match.
func (a *UserAPI) profileByNickname(ctx context.Context, nick string) (*models.Profile, error) {
	var resp SearchUserResponse
	if err := a.client.GetJSON(ctx, SearchUserEndpoint, SearchUserParams(nick, 1, 10), &resp); err != nil {
		return nil, err
	}
	for i := range resp.List {
		if resp.List[i].ScreenName == nick {
			return profileFromUser(&resp.List[i]), nil
		}
	}
	return nil, errors.Newf(errors.ErrorTypeUserNotFound, "no user with nickname %q", nick)
}

func profileFromUser(u *ProfileUser) *models.Profile {
	return &models.Profile{
		ID:             u.ID,
		Nickname:       u.ScreenName,
		Description:    u.Description,
		FollowersCount: u.FollowersCount,
		StatusCount:    u.StatusCount,
	}
}
