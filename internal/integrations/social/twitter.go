package social

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
)

const defaultTwitterBaseURL = "https://api.twitter.com/1.1"

const twitterActivityCount = 10

// Twitter fetches public profiles and recent tweets by screen name.
type Twitter struct {
	socialIntegration
	BaseURL string
}

func NewTwitter(deps registry.Deps) (registry.Integration, error) {
	return &Twitter{
		socialIntegration: newSocialIntegration("Twitter", deps),
		BaseURL:           defaultTwitterBaseURL,
	}, nil
}

func (t *Twitter) IdentifierFields() identifier.Spec {
	return identifier.Single("twitter")
}

func (t *Twitter) AvailableFields(context.Context, bool) ([]registry.FieldDescriptor, error) {
	return []registry.FieldDescriptor{
		{Name: "profileHandle", Kind: registry.FieldScalar},
		{Name: "profileUrl", Kind: registry.FieldScalar},
		{Name: "name", Kind: registry.FieldScalar},
		{Name: "location", Kind: registry.FieldScalar},
		{Name: "description", Kind: registry.FieldScalar},
		{Name: "url", Kind: registry.FieldScalar},
		{Name: "profileImage", Kind: registry.FieldScalar},
		{Name: "verified", Kind: registry.FieldBoolean},
	}, nil
}

func (t *Twitter) SortFieldsAlphabetically() bool { return true }

type twitterUser struct {
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	ProfileImageURL string `json:"profile_image_url_https"`
	FollowersCount  int    `json:"followers_count"`
	Verified        bool   `json:"verified"`
}

func (t *Twitter) FetchUserData(ctx context.Context, id identifier.Match) (map[string]any, error) {
	handle := handleFrom("twitter", id.Value)
	if handle == "" {
		return nil, nil
	}
	token := t.apiKey("bearer_token")
	if token == "" {
		return nil, errors.New("twitter bearer_token is not configured")
	}

	var user twitterUser
	err := t.client(t.BaseURL, token).getJSON(ctx, "/users/show.json", url.Values{"screen_name": {handle}}, &user)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	profileURL, _ := ProfileURL("twitter", user.ScreenName)
	return compact(map[string]any{
		"profileHandle": user.ScreenName,
		"profileUrl":    profileURL,
		"name":          user.Name,
		"location":      user.Location,
		"description":   user.Description,
		"url":           user.URL,
		"profileImage":  user.ProfileImageURL,
		"followers":     user.FollowersCount,
		"verified":      user.Verified,
	}), nil
}

type tweet struct {
	ID        string `json:"id_str"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func (t *Twitter) FetchPublicActivity(ctx context.Context, id identifier.Match) (map[string]any, error) {
	handle := handleFrom("twitter", id.Value)
	if handle == "" {
		return nil, nil
	}
	token := t.apiKey("bearer_token")
	if token == "" {
		return nil, errors.New("twitter bearer_token is not configured")
	}

	var tweets []tweet
	query := url.Values{
		"screen_name": {handle},
		"count":       {strconv.Itoa(twitterActivityCount)},
	}
	err := t.client(t.BaseURL, token).getJSON(ctx, "/statuses/user_timeline.json", query, &tweets)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(tweets) == 0 {
		return nil, nil
	}

	items := make([]any, 0, len(tweets))
	for _, tw := range tweets {
		items = append(items, map[string]any{
			"id":        tw.ID,
			"text":      tw.Text,
			"createdAt": tw.CreatedAt,
			"url":       "https://twitter.com/" + handle + "/status/" + tw.ID,
		})
	}
	return map[string]any{"tweets": items}, nil
}
