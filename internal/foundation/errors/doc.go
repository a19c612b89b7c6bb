// Package errors provides the classified error primitives used across branchbuilder.
//
// Every failure that crosses a package boundary is a *ClassifiedError carrying a
// category, a severity and a retry strategy. The orchestrator uses the category
// to decide whether a failure is fatal for the run (config, startup) or only for
// a single branch (forge, git, build).
//
//	err := errors.GitError("fetch failed").
//		WithCause(cause).
//		WithContext("repository", "foo/bar").
//		Build()
package errors
