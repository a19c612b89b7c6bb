// Package repository selects the repositories a run works on.
package repository

import (
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/util/sets"
)

// Exclusion reasons returned by Include.
const (
	ReasonNotWhitelisted = "not_in_whitelist"
	ReasonBlacklisted    = "blacklisted"
	ReasonArchived       = "archived"
)

// Filter applies whitelist/blacklist policy by exact full name (owner/name).
// A non-empty whitelist disables the blacklist entirely. Archived repositories
// are read-only on the forge and are excluded unless whitelisted.
type Filter struct {
	whitelist sets.Set[string]
	blacklist sets.Set[string]
}

// NewFilter constructs a Filter. Nil and empty lists are equivalent.
func NewFilter(whitelist, blacklist []string) *Filter {
	return &Filter{whitelist: sets.New(whitelist...), blacklist: sets.New(blacklist...)}
}

// Include reports whether repo is selected, with a reason code when it is not.
func (f *Filter) Include(repo forge.RepositoryRef) (bool, string) {
	if f == nil {
		return true, ""
	}
	name := repo.FullName()
	if f.whitelist.Len() > 0 {
		if f.whitelist.Has(name) {
			return true, ""
		}
		return false, ReasonNotWhitelisted
	}
	if f.blacklist.Has(name) {
		return false, ReasonBlacklisted
	}
	if repo.Archived {
		return false, ReasonArchived
	}
	return true, ""
}

// Select returns the repositories of all that pass the filter, preserving order.
// Duplicate full names are collapsed to their first occurrence.
func (f *Filter) Select(all []forge.RepositoryRef) []forge.RepositoryRef {
	seen := sets.New[string]()
	out := make([]forge.RepositoryRef, 0, len(all))
	for _, repo := range all {
		if seen.Has(repo.FullName()) {
			continue
		}
		seen.Add(repo.FullName())
		if ok, _ := f.Include(repo); ok {
			out = append(out, repo)
		}
	}
	return out
}

// MissingWhitelisted returns whitelist entries that do not name any repository in all.
// They are excluded silently by Select; callers may log them.
func (f *Filter) MissingWhitelisted(all []forge.RepositoryRef) []string {
	if f == nil || f.whitelist.Len() == 0 {
		return nil
	}
	visible := sets.New[string]()
	for _, repo := range all {
		visible.Add(repo.FullName())
	}
	return sets.Sorted(f.whitelist.Difference(visible))
}
