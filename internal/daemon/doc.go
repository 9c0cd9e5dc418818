// Package daemon coordinates the long-running viralvision process.
//
// It wires configuration, the job store, the workflow manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances from sharing one database. The API server translates submission,
// polling, and listing requests into api.Service calls and maps the service's
// sentinel errors onto HTTP status codes.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and the request surface.
package daemon
