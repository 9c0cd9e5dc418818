// Package ffprobe reads container metadata for uploaded and downloaded media.
//
// Inspect shells out to ffprobe and decodes its JSON report. Result exposes
// the handful of facts the pipeline cares about: whether the file carries a
// video stream and how long it runs. Duration reports absence explicitly so
// callers can fall back to an unknown-duration cost rather than guessing.
package ffprobe
