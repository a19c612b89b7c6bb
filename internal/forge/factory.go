package forge

import (
	"git.home.luguber.info/inful/branchbuilder/internal/config"
)

// NewClient creates the forge client selected by cfg.Forge, with TLS validated
// against cfg.CA when configured.
func NewClient(cfg *config.Config) (Client, error) {
	httpClient, err := NewHTTPClient(cfg.CA, DefaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	switch cfg.Forge {
	case config.ForgeGitHub:
		gh, err := NewGitHubClient(httpClient, cfg.Server, cfg.Token)
		if err != nil {
			return nil, err
		}
		return gh, nil
	case config.ForgeForgejo:
		return NewForgejoClient(httpClient, cfg.Server, cfg.Token), nil
	default:
		return nil, ErrForgeUnsupported.WithContext("type", string(cfg.Forge))
	}
}
