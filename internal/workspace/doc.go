// Package workspace lays out the output directory for branch checkouts and
// build directories and serializes work per repository and per branch.
//
// Layout:
//
//	<output_dir>/<owner>/<repo>/<branch>/src                       persistent checkout
//	<output_dir>/<owner>/<repo>/<branch>/builds/<timestamp>_<sha>  one directory per build
//	<output_dir>/<owner>/<repo>/<branch>/.lock                     held while the branch is worked on
//	<output_dir>/<owner>/<repo>/~tags/<tag>/...                    same layout for tags
//
// Branch names are path-escaped so that a branch containing "/" gets its own
// directory and cannot collide with another branch's src or builds.
package workspace
