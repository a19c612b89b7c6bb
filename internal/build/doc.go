// Package build orchestrates a run: it discovers the branches of the selected
// repositories, decides per branch whether a build is needed, drives checkout
// and the external build command, publishes commit statuses and records the
// outcome of every branch in a RunReport.
//
// Branches are independent units. A failure in one unit is recorded as that
// unit's outcome and never stops the others. Only startup failures, such as
// an unreachable forge, are returned as errors from Run.
package build
