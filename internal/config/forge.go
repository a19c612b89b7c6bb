package config

import "strings"

// ForgeType selects the remote code-hosting API dialect.
type ForgeType string

const (
	ForgeGitHub  ForgeType = "github"
	ForgeForgejo ForgeType = "forgejo"
)

// NormalizeForgeType maps user input to a known forge type, returning "" for unknown values.
// "gitea" is accepted as an alias of forgejo since both share the v1 API.
func NormalizeForgeType(raw string) ForgeType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "github", "github-enterprise", "ghe":
		return ForgeGitHub
	case "forgejo", "gitea":
		return ForgeForgejo
	default:
		return ""
	}
}
