package social

import (
	"context"
	"errors"
	"net/url"

	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
)

const defaultFacebookBaseURL = "https://graph.facebook.com/v19.0"

// Facebook fetches public page and profile data through the Graph API and renders share
// buttons.
type Facebook struct {
	socialIntegration
	BaseURL string
}

func NewFacebook(deps registry.Deps) (registry.Integration, error) {
	return &Facebook{
		socialIntegration: newSocialIntegration("Facebook", deps),
		BaseURL:           defaultFacebookBaseURL,
	}, nil
}

func (f *Facebook) IdentifierFields() identifier.Spec {
	return identifier.Single("facebook")
}

func (f *Facebook) AvailableFields(context.Context, bool) ([]registry.FieldDescriptor, error) {
	return []registry.FieldDescriptor{
		{Name: "profileHandle", Kind: registry.FieldScalar},
		{Name: "name", Kind: registry.FieldComposite, SubFields: []string{"givenName", "familyName"}},
		{Name: "link", Kind: registry.FieldScalar, Label: "Profile URL"},
		{Name: "verified", Kind: registry.FieldBoolean},
	}, nil
}

type facebookProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Link      string `json:"link"`
	Verified  bool   `json:"verified"`
}

func (f *Facebook) FetchUserData(ctx context.Context, id identifier.Match) (map[string]any, error) {
	handle := handleFrom("facebook", id.Value)
	if handle == "" {
		return nil, nil
	}
	token := f.apiKey("access_token")
	if token == "" {
		return nil, errors.New("facebook access_token is not configured")
	}

	var p facebookProfile
	query := url.Values{
		"fields":       {"id,username,name,first_name,last_name,link,verified"},
		"access_token": {token},
	}
	err := f.client(f.BaseURL, "").getJSON(ctx, "/"+url.PathEscape(handle), query, &p)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, nil
	}

	profileHandle := p.Username
	if profileHandle == "" {
		profileHandle = handle
	}
	return compact(map[string]any{
		"profileHandle":  profileHandle,
		"nameGivenName":  p.FirstName,
		"nameFamilyName": p.LastName,
		"name":           p.Name,
		"link":           p.Link,
		"verified":       p.Verified,
	}), nil
}
