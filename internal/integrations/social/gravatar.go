package social

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/normalize"
)

const defaultGravatarBaseURL = "https://en.gravatar.com"

// Gravatar looks up public profiles by email hash. No api key is needed.
type Gravatar struct {
	socialIntegration
	BaseURL string
}

func NewGravatar(deps registry.Deps) (registry.Integration, error) {
	return &Gravatar{
		socialIntegration: newSocialIntegration("Gravatar", deps),
		BaseURL:           defaultGravatarBaseURL,
	}, nil
}

func (g *Gravatar) IdentifierFields() identifier.Spec {
	return identifier.Single("email")
}

func (g *Gravatar) AvailableFields(context.Context, bool) ([]registry.FieldDescriptor, error) {
	return []registry.FieldDescriptor{
		{Name: "profileHandle", Kind: registry.FieldScalar},
		{Name: "displayName", Kind: registry.FieldScalar},
		{Name: "aboutMe", Kind: registry.FieldScalar},
		{Name: "thumbnailUrl", Kind: registry.FieldScalar},
		{Name: "currentLocation", Kind: registry.FieldScalar},
		{Name: "name", Kind: registry.FieldComposite, SubFields: []string{"givenName", "familyName", "formatted"}},
		{Name: "urls", Kind: registry.FieldURLCollection, SubFields: []string{"website", "blog"}},
	}, nil
}

type gravatarResponse struct {
	Entry []struct {
		PreferredUsername string `json:"preferredUsername"`
		DisplayName       string `json:"displayName"`
		AboutMe           string `json:"aboutMe"`
		ThumbnailURL      string `json:"thumbnailUrl"`
		CurrentLocation   string `json:"currentLocation"`
		Name              struct {
			GivenName  string `json:"givenName"`
			FamilyName string `json:"familyName"`
			Formatted  string `json:"formatted"`
		} `json:"name"`
		URLs []struct {
			Value string `json:"value"`
			Title string `json:"title"`
		} `json:"urls"`
		Accounts []struct {
			Shortname string `json:"shortname"`
			URL       string `json:"url"`
			Username  string `json:"username"`
		} `json:"accounts"`
	} `json:"entry"`
}

func (g *Gravatar) FetchUserData(ctx context.Context, id identifier.Match) (map[string]any, error) {
	email := normalize.Email(id.Value)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil
	}

	var resp gravatarResponse
	err := g.client(g.BaseURL, "").getJSON(ctx, "/"+EmailHash(email)+".json", nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Entry) == 0 {
		return nil, nil
	}

	e := resp.Entry[0]
	profile := map[string]any{
		"profileHandle":   e.PreferredUsername,
		"displayName":     e.DisplayName,
		"aboutMe":         e.AboutMe,
		"thumbnailUrl":    e.ThumbnailURL,
		"currentLocation": e.CurrentLocation,
		"nameGivenName":   e.Name.GivenName,
		"nameFamilyName":  e.Name.FamilyName,
		"nameFormatted":   e.Name.Formatted,
	}
	var urls []any
	for _, u := range e.URLs {
		if u.Value == "" {
			continue
		}
		urls = append(urls, map[string]any{"url": u.Value, "title": u.Title})
	}
	for _, a := range e.Accounts {
		if a.Username == "" {
			continue
		}
		profile[a.Shortname+"ProfileHandle"] = a.Username
		if service, handle, ok := DetectHandle(a.URL); ok && service != a.Shortname {
			profile[service+"ProfileHandle"] = handle
		}
	}
	profile["urls"] = urls
	return compact(profile), nil
}

// EmailHash is the lowercase hex md5 of the normalized address, as Gravatar expects.
func EmailHash(email string) string {
	sum := md5.Sum([]byte(normalize.Email(email)))
	return hex.EncodeToString(sum[:])
}
