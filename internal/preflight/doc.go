// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths the pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon reports CheckSystemDeps through its status endpoint.
//   - The CLI "viralvision status" command runs RunAll to display the
//     directory and analysis API health alongside the daemon status.
//
// Checks never mutate state; an unconfigured analysis key is reported as a
// failed check rather than skipped.
package preflight
