// Package main hosts the viralvision CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon (serve), manages accounts and
// credits directly against the database, and talks to a running daemon over
// its HTTP API for submissions, job listings, and status. It centralizes
// configuration resolution and API client setup so subcommands can focus on
// rendering.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
