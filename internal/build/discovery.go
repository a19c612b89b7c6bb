package build

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
	"git.home.luguber.info/inful/branchbuilder/internal/observability"
)

// checkAccess verifies that the forge is reachable with the configured credentials.
func (s *Service) checkAccess(ctx context.Context) error {
	var login string
	err := s.policy.Do(ctx, "current_user", func(ctx context.Context) error {
		var err error
		login, err = s.client.CurrentUser(ctx)
		return err
	})
	if err != nil {
		return wrapStartup("forge is not reachable with the configured credentials", err)
	}
	observability.InfoContext(ctx, "Connected to forge",
		logfields.Forge(string(s.client.Type())),
		slog.String("user", login))
	return nil
}

// Discover lists the visible repositories, applies the repository filter
// and returns the branches (and tags when enabled) of the selected ones.
// Failing to list repositories is fatal. Failing to list the refs of one
// repository is logged and that repository is skipped.
func (s *Service) Discover(ctx context.Context) ([]forge.BranchRef, error) {
	ctx = observability.WithStage(ctx, "discover")
	var all []forge.RepositoryRef
	err := s.policy.Do(ctx, "list_repositories", func(ctx context.Context) error {
		var err error
		all, err = s.client.ListRepositories(ctx)
		return err
	})
	if err != nil {
		return nil, wrapStartup("failed to list repositories", err)
	}

	selected := s.filter.Select(all)
	for _, name := range s.filter.MissingWhitelisted(all) {
		observability.DebugContext(ctx, "Whitelisted repository not visible, ignoring", logfields.Repository(name))
	}
	observability.InfoContext(ctx, "Selected repositories",
		logfields.Count(len(selected)),
		slog.Int("visible", len(all)))

	var branches []forge.BranchRef
	for _, repo := range selected {
		refs, err := s.listRefs(ctx, repo)
		if err != nil {
			observability.ErrorContext(ctx, "Failed to list branches, skipping repository",
				logfields.Repository(repo.FullName()),
				logfields.Error(err))
			continue
		}
		branches = append(branches, refs...)
	}
	return branches, nil
}

func (s *Service) listRefs(ctx context.Context, repo forge.RepositoryRef) ([]forge.BranchRef, error) {
	var refs []forge.BranchRef
	err := s.policy.Do(ctx, "list_branches", func(ctx context.Context) error {
		var err error
		refs, err = s.client.ListBranches(ctx, repo)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !s.cfg.IncludeTags {
		return refs, nil
	}
	var tags []forge.BranchRef
	err = s.policy.Do(ctx, "list_tags", func(ctx context.Context) error {
		var err error
		tags, err = s.client.ListTags(ctx, repo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return append(refs, tags...), nil
}

// wrapStartup keeps the category of classified causes so the CLI exit code
// reflects auth or network problems.
func wrapStartup(msg string, err error) error {
	if ce, ok := errors.AsClassified(err); ok {
		return errors.NewError(ce.Category(), msg).
			WithCause(err).
			Fatal().
			Build()
	}
	return errors.NetworkError(msg).WithCause(err).Fatal().Build()
}
