package social

import (
	"github.com/mktstack/integrationhub/internal/integrations/identifier"
	"github.com/mktstack/integrationhub/internal/integrations/registry"
)

// LinkedIn only contributes a share button.
type LinkedIn struct {
	socialIntegration
}

func NewLinkedIn(deps registry.Deps) (registry.Integration, error) {
	return &LinkedIn{socialIntegration: newSocialIntegration("LinkedIn", deps)}, nil
}

func (l *LinkedIn) IdentifierFields() identifier.Spec {
	return identifier.Single("linkedin")
}
