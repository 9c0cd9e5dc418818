// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, account IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry the
//     stage and operation that produced them.
//
// Integrations with external tools and engines live in subpackages (llm,
// ytdlp) and report failures through these markers.
package services
