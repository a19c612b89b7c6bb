// Package git materializes a branch or tag at an exact commit in a local
// working tree.
//
// The package handles:
//   - Single-branch clones, or tag clones, with token authentication and a custom CA bundle
//   - Updating an existing working tree by fetch, hard reset and clean
//   - Re-cloning once when an existing tree cannot be updated
//   - Retry of transient network failures through retry.Policy
//   - Typed errors for structured classification
package git
